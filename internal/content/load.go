package content

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gunzgo/server/internal/collision"
	"github.com/gunzgo/server/internal/geom"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// Table files, in hashing order.
var tableFiles = []string{
	"items.yaml",
	"npcs.yaml",
	"quests.yaml",
	"maps.yaml",
	"world_items.yaml",
	"drops.yaml",
	"melee_motions.yaml",
	"game_types.yaml",
}

type itemFile struct {
	Items []Item `yaml:"items"`
}

type npcFile struct {
	Npcs    []NpcTemplate `yaml:"npcs"`
	NpcSets []NpcSet      `yaml:"npc_sets"`
	Skills  []Skill       `yaml:"skills"`
}

type questFile struct {
	Quests    []Quest    `yaml:"quests"`
	Scenarios []Scenario `yaml:"scenarios"`
}

type mapFile struct {
	Maps []Map `yaml:"maps"`
}

type worldItemFile struct {
	Items []WorldItemDesc `yaml:"items"`
}

type dropFile struct {
	Items []DropEntry `yaml:"items"`
}

type motionFile struct {
	Motions map[string]MeleeMotion `yaml:"motions"`
}

type gameTypeFile struct {
	GameTypes []GameType `yaml:"game_types"`
}

// HashDir computes the content hash of the table files under dir. Missing
// files contribute their name only.
func HashDir(dir string) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	for _, name := range tableFiles {
		h.Write([]byte(name))
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("hash %s: %w", name, err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func readYAML(dir, name string, out any) error {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Load reads every content table from dir and builds the collision trees.
func Load(dir string) (*Catalog, error) {
	var (
		items  itemFile
		npcs   npcFile
		quests questFile
		maps   mapFile
		wi     worldItemFile
		drops  dropFile
		mot    motionFile
		gt     gameTypeFile
	)
	for name, out := range map[string]any{
		"items.yaml":         &items,
		"npcs.yaml":          &npcs,
		"quests.yaml":        &quests,
		"maps.yaml":          &maps,
		"world_items.yaml":   &wi,
		"drops.yaml":         &drops,
		"melee_motions.yaml": &mot,
		"game_types.yaml":    &gt,
	} {
		if err := readYAML(dir, name, out); err != nil {
			return nil, err
		}
	}

	hash, err := HashDir(dir)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		Hash:       hash,
		items:      make(map[int]*Item, len(items.Items)),
		npcs:       make(map[int]*NpcTemplate, len(npcs.Npcs)),
		npcSets:    make(map[string]*NpcSet, len(npcs.NpcSets)),
		skills:     make(map[int]*Skill, len(npcs.Skills)),
		quests:     make(map[int]*Quest, len(quests.Quests)),
		scenarios:  quests.Scenarios,
		maps:       make(map[int]*Map, len(maps.Maps)),
		trees:      make(map[int]*collision.Tree, len(maps.Maps)),
		worldItems: wi.Items,
		drops:      drops.Items,
		motions:    make(map[string]MeleeMotion, len(mot.Motions)),
		gameTypes:  make(map[int]GameType, len(gt.GameTypes)),
	}
	for i := range items.Items {
		c.items[items.Items[i].ID] = &items.Items[i]
	}
	for i := range npcs.Npcs {
		c.npcs[npcs.Npcs[i].ID] = &npcs.Npcs[i]
	}
	for i := range npcs.NpcSets {
		c.npcSets[strings.ToLower(npcs.NpcSets[i].Name)] = &npcs.NpcSets[i]
	}
	for i := range npcs.Skills {
		c.skills[npcs.Skills[i].ID] = &npcs.Skills[i]
	}
	for i := range quests.Quests {
		c.quests[quests.Quests[i].MapID] = &quests.Quests[i]
	}
	for k, v := range mot.Motions {
		c.motions[strings.ToLower(k)] = v
	}
	for _, g := range gt.GameTypes {
		c.gameTypes[g.ID] = g
	}
	for i := range maps.Maps {
		m := &maps.Maps[i]
		c.maps[m.ID] = m
		tree, err := buildTree(m)
		if err != nil {
			return nil, fmt.Errorf("map %d collision: %w", m.ID, err)
		}
		if tree != nil {
			c.trees[m.ID] = tree
		}
	}
	return c, nil
}

func buildTree(m *Map) (*collision.Tree, error) {
	if len(m.Collision.Nodes) > 0 {
		raw := make([]collision.RawNode, len(m.Collision.Nodes))
		for i, n := range m.Collision.Nodes {
			raw[i] = collision.RawNode{
				A: n.Plane[0], B: n.Plane[1], C: n.Plane[2], D: n.Plane[3],
				Pos: n.Pos, Neg: n.Neg, Solid: n.Solid,
			}
		}
		return collision.FromNodes(raw)
	}
	if len(m.Collision.Boxes) == 0 {
		return nil, nil
	}
	boxes := make([]collision.Box, 0, len(m.Collision.Boxes))
	for _, b := range m.Collision.Boxes {
		lo := geom.V(min(b.Min.X, b.Max.X), min(b.Min.Y, b.Max.Y), min(b.Min.Z, b.Max.Z))
		hi := geom.V(max(b.Min.X, b.Max.X), max(b.Min.Y, b.Max.Y), max(b.Min.Z, b.Max.Z))
		boxes = append(boxes, collision.Box{Min: lo, Max: hi})
	}
	return collision.FromBoxes(boxes...), nil
}

// NewCatalog assembles a catalog from in-memory tables. Used by tools and
// tests that do not read from disk.
func NewCatalog(t Tables) *Catalog {
	c := &Catalog{
		Hash:       t.Hash,
		items:      map[int]*Item{},
		npcs:       map[int]*NpcTemplate{},
		npcSets:    map[string]*NpcSet{},
		skills:     map[int]*Skill{},
		quests:     map[int]*Quest{},
		scenarios:  t.Scenarios,
		maps:       map[int]*Map{},
		trees:      map[int]*collision.Tree{},
		worldItems: t.WorldItems,
		drops:      t.Drops,
		motions:    map[string]MeleeMotion{},
		gameTypes:  map[int]GameType{},
	}
	for i := range t.Items {
		c.items[t.Items[i].ID] = &t.Items[i]
	}
	for i := range t.Npcs {
		c.npcs[t.Npcs[i].ID] = &t.Npcs[i]
	}
	for i := range t.NpcSets {
		c.npcSets[strings.ToLower(t.NpcSets[i].Name)] = &t.NpcSets[i]
	}
	for i := range t.Skills {
		c.skills[t.Skills[i].ID] = &t.Skills[i]
	}
	for i := range t.Quests {
		c.quests[t.Quests[i].MapID] = &t.Quests[i]
	}
	for k, v := range t.Motions {
		c.motions[strings.ToLower(k)] = v
	}
	for _, g := range t.GameTypes {
		c.gameTypes[g.ID] = g
	}
	for i := range t.Maps {
		m := &t.Maps[i]
		c.maps[m.ID] = m
	}
	for id, tree := range t.Trees {
		c.trees[id] = tree
	}
	return c
}

// Tables is the in-memory form accepted by NewCatalog.
type Tables struct {
	Hash       string
	Items      []Item
	Npcs       []NpcTemplate
	NpcSets    []NpcSet
	Skills     []Skill
	Quests     []Quest
	Scenarios  []Scenario
	Maps       []Map
	Trees      map[int]*collision.Tree
	WorldItems []WorldItemDesc
	Drops      []DropEntry
	Motions    map[string]MeleeMotion
	GameTypes  []GameType
}
