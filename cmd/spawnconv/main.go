// spawnconv reads the spawn dummies of the client map files (<name>.RS.xml)
// and writes them into data/yaml/maps.yaml, keeping everything else in the
// file as it is.
//
// Dummy names map to spawn lists:
//   - spawn_solo_*  → spawns.solo
//   - spawn_team1_* → spawns.team1
//   - spawn_team2_* → spawns.team2
//   - wait_pos_01   → spawns.solo when a map has no other spawn
//
// Usage:
//
//	go run ./cmd/spawnconv [client-maps-dir] [maps.yaml]
package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gunzgo/server/internal/geom"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// XML structures
// ---------------------------------------------------------------------------

type XMLDummy struct {
	Name     string `xml:"name,attr"`
	Position string `xml:"POSITION"`
}

// ---------------------------------------------------------------------------
// YAML structures
// ---------------------------------------------------------------------------

type Spawns struct {
	Solo  []geom.Vec3 `yaml:"solo"`
	Team1 []geom.Vec3 `yaml:"team1,omitempty"`
	Team2 []geom.Vec3 `yaml:"team2,omitempty"`
}

func (s Spawns) Count() int { return len(s.Solo) + len(s.Team1) + len(s.Team2) }

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

func parsePosition(s string) (geom.Vec3, error) {
	f := strings.Fields(s)
	if len(f) < 3 {
		return geom.Vec3{}, fmt.Errorf("position %q: want 3 values", s)
	}
	var v [3]float64
	for i := range v {
		n, err := strconv.ParseFloat(f[i], 64)
		if err != nil {
			return geom.Vec3{}, fmt.Errorf("position %q: %w", s, err)
		}
		v[i] = n
	}
	return geom.V(v[0], v[1], v[2]), nil
}

// readSpawns collects every DUMMY element of a map file, at any depth.
func readSpawns(r io.Reader) (Spawns, error) {
	var (
		out      Spawns
		fallback *geom.Vec3
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "DUMMY") {
			continue
		}
		var d XMLDummy
		if err := dec.DecodeElement(&d, &start); err != nil {
			return out, err
		}
		pos, err := parsePosition(d.Position)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: dummy %q: %v, skipping\n", d.Name, err)
			continue
		}
		switch {
		case d.Name == "wait_pos_01" && fallback == nil:
			fallback = &pos
		case strings.HasPrefix(d.Name, "spawn_team1_"):
			out.Team1 = append(out.Team1, pos)
		case strings.HasPrefix(d.Name, "spawn_team2_"):
			out.Team2 = append(out.Team2, pos)
		case strings.HasPrefix(d.Name, "spawn_solo_"):
			out.Solo = append(out.Solo, pos)
		}
	}
	if out.Count() == 0 && fallback != nil {
		out.Solo = append(out.Solo, *fallback)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// YAML node helpers
// ---------------------------------------------------------------------------

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, v *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, v)
}

// flowPoints renders every {x, y, z} mapping on one line.
func flowPoints(n *yaml.Node) {
	if n.Kind == yaml.MappingNode && mappingValue(n, "x") != nil {
		n.Style = yaml.FlowStyle
		return
	}
	for _, c := range n.Content {
		flowPoints(c)
	}
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	clientDir := filepath.Join("..", "client", "maps")
	mapsPath := filepath.Join("data", "yaml", "maps.yaml")
	if len(os.Args) >= 2 {
		clientDir = os.Args[1]
	}
	if len(os.Args) >= 3 {
		mapsPath = os.Args[2]
	}

	data, err := os.ReadFile(mapsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", mapsPath, err)
		os.Exit(1)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing %s: %v\n", mapsPath, err)
		os.Exit(1)
	}
	if len(doc.Content) == 0 {
		fmt.Fprintf(os.Stderr, "%s is empty\n", mapsPath)
		os.Exit(1)
	}
	maps := mappingValue(doc.Content[0], "maps")
	if maps == nil || maps.Kind != yaml.SequenceNode {
		fmt.Fprintf(os.Stderr, "%s has no maps list\n", mapsPath)
		os.Exit(1)
	}

	// ---- Convert each map ----
	updated, missing := 0, 0
	for _, m := range maps.Content {
		nameNode := mappingValue(m, "name")
		if nameNode == nil || nameNode.Value == "" {
			continue
		}
		name := nameNode.Value
		path := filepath.Join(clientDir, name, name+".RS.xml")
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v, keeping current spawns\n", name, err)
			missing++
			continue
		}
		spawns, err := readSpawns(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error parsing %s: %v\n", path, err)
			os.Exit(1)
		}
		if spawns.Count() == 0 {
			fmt.Fprintf(os.Stderr, "warning: %s has no spawn dummies, keeping current spawns\n", name)
			continue
		}

		var node yaml.Node
		if err := node.Encode(&spawns); err != nil {
			fmt.Fprintf(os.Stderr, "error encoding spawns for %s: %v\n", name, err)
			os.Exit(1)
		}
		flowPoints(&node)
		setMappingValue(m, "spawns", &node)
		updated++
		fmt.Printf("%-20s solo=%d team1=%d team2=%d\n", name, len(spawns.Solo), len(spawns.Team1), len(spawns.Team2))
	}

	// ---- Write maps.yaml ----
	out, err := os.Create(mapsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", mapsPath, err)
		os.Exit(1)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		out.Close()
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", mapsPath, err)
		os.Exit(1)
	}
	enc.Close()
	out.Close()
	fmt.Printf("Updated spawns of %d maps in %s (%d map files missing)\n", updated, mapsPath, missing)
}
