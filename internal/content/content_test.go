package content

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/gunzgo/server/internal/geom"
	"go.uber.org/zap"
)

const shippedDir = "../../data/yaml"

func TestLoadShippedContent(t *testing.T) {
	c, err := Load(shippedDir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Hash == "" {
		t.Error("empty hash")
	}
	counts := c.Counts()
	for _, k := range []string{"items", "npcs", "maps", "world_items"} {
		if counts[k] == 0 {
			t.Errorf("no %s loaded", k)
		}
	}

	w, ok := c.Weapon(500)
	if !ok || w.Type != "pistol" || w.Magazine != 12 {
		t.Errorf("pistol = %+v", w)
	}
	if g, ok := c.Weapon(800); !ok || g.Type != "fragmentation" {
		t.Errorf("frag alias = %+v", g)
	}
	if q, ok := c.QuestByMap(3); !ok || len(q.Stages) != 2 {
		t.Errorf("quest = %+v", q)
	}
	if sc, ok := c.ScenarioFor("PRISON", 7); !ok || sc.Title != "Prison Break" {
		t.Errorf("scenario fallback = %+v", sc)
	}
	if set, ok := c.NpcSet("Melee_Small"); !ok || set.BaseNpc != 1 {
		t.Errorf("npc set = %+v", set)
	}
	if c.Motion("dash").StunTicks != 10 || c.Motion("missing").StunTicks != 6 {
		t.Error("motion lookup")
	}

	tree := c.Collision(1)
	if tree == nil {
		t.Fatal("mansion has no collision")
	}
	if !tree.Blocked(geom.V(-500, 0, 100), geom.V(500, 0, 100)) {
		t.Error("pillar does not block")
	}
	if c.Collision(2) != nil {
		t.Error("town should be open space")
	}
}

func TestEquipmentStats(t *testing.T) {
	c, err := Load(shippedDir)
	if err != nil {
		t.Fatal(err)
	}
	s := c.EquipmentStats([]int{700, 701, 0, 99999})
	if s.HP != 10 || s.AP != 25 || s.FR != 15 || s.Weight != 7 {
		t.Errorf("stats = %+v", s)
	}
}

func TestWeaponDefaults(t *testing.T) {
	it := &Item{ID: 1, Type: "range"}
	w := it.AsWeapon()
	if w.Damage != DefaultDamage || w.Range != DefaultRange || w.Delay != DefaultDelayMS || w.Type != "range" {
		t.Errorf("defaults = %+v", w)
	}
	if !IsMelee("katana") || IsMelee("pistol") {
		t.Error("IsMelee")
	}
}

func TestSpawnFallbacks(t *testing.T) {
	m := Map{ID: 1}
	m.Spawns.Team2 = []geom.Vec3{geom.V(5, 0, 0)}
	c := NewCatalog(Tables{Maps: []Map{m}})

	if got := c.Spawn(1, 1, true, nil); got != geom.V(5, 0, 0) {
		t.Errorf("team fallback = %v", got)
	}
	if got := c.Spawn(1, 0, false, rand.New(rand.NewPCG(1, 2))); got != (geom.Vec3{}) {
		t.Errorf("empty solo list = %v", got)
	}
	if got := c.Spawn(9, 0, false, nil); got != (geom.Vec3{}) {
		t.Errorf("unknown map = %v", got)
	}
}

func copyDir(t *testing.T, src string) string {
	t.Helper()
	dst := t.TempDir()
	entries, err := os.ReadDir(src)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dst
}

func TestStoreReload(t *testing.T) {
	dir := copyDir(t, shippedDir)
	s, err := NewStore(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	first := s.Current()

	var notified int
	s.OnChange(func(*Catalog) { notified++ })

	if changed, err := s.Reload(); err != nil || changed {
		t.Fatalf("unchanged reload = %v %v", changed, err)
	}

	extra := "\n  - { id: 3, default_round: 1, default_time_sec: 60 }\n"
	f, err := os.OpenFile(filepath.Join(dir, "game_types.yaml"), os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(extra)
	f.Close()

	changed, err := s.Reload()
	if err != nil || !changed {
		t.Fatalf("reload = %v %v", changed, err)
	}
	if notified != 1 || s.Current().Hash == first.Hash {
		t.Errorf("notified=%d hash unchanged=%v", notified, s.Current().Hash == first.Hash)
	}
	if _, ok := s.Current().GameType(3); !ok {
		t.Error("new game type missing")
	}
	if _, ok := first.GameType(3); ok {
		t.Error("old catalog mutated")
	}
}

func TestStoreRejectsBrokenTables(t *testing.T) {
	dir := copyDir(t, shippedDir)
	s, err := NewStore(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	before := s.Current()
	os.WriteFile(filepath.Join(dir, "items.yaml"), []byte("items: [ {"), 0o644)
	if _, err := s.Reload(); err == nil {
		t.Error("broken table accepted")
	}
	if s.Current() != before {
		t.Error("broken reload replaced the catalog")
	}
}
