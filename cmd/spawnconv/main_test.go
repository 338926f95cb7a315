package main

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const rsXML = `<?xml version="1.0"?>
<XML>
  <DUMMYLIST>
    <DUMMY name="wait_pos_01"><POSITION>1 2 3</POSITION></DUMMY>
    <DUMMY name="spawn_solo_01"><POSITION>10 20 0</POSITION></DUMMY>
    <DUMMY name="spawn_team1_01"><POSITION>-5.5 0 0</POSITION></DUMMY>
    <DUMMY name="spawn_team2_01"><POSITION>5.5 0 0</POSITION></DUMMY>
    <DUMMY name="spawn_solo_02"><POSITION>bad</POSITION></DUMMY>
    <DUMMY name="light_01"><POSITION>0 0 100</POSITION></DUMMY>
  </DUMMYLIST>
</XML>`

func TestReadSpawns(t *testing.T) {
	s, err := readSpawns(strings.NewReader(rsXML))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Solo) != 1 || s.Solo[0].X != 10 || s.Solo[0].Y != 20 {
		t.Errorf("solo = %+v", s.Solo)
	}
	if len(s.Team1) != 1 || s.Team1[0].X != -5.5 || len(s.Team2) != 1 {
		t.Errorf("teams = %+v %+v", s.Team1, s.Team2)
	}
}

func TestReadSpawnsWaitFallback(t *testing.T) {
	s, err := readSpawns(strings.NewReader(`<XML><DUMMY name="wait_pos_01"><POSITION>1 2 3</POSITION></DUMMY></XML>`))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Solo) != 1 || s.Solo[0].Z != 3 {
		t.Errorf("solo = %+v", s.Solo)
	}
}

func TestSetSpawnsKeepsOtherKeys(t *testing.T) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte("maps:\n  - id: 1\n    name: Arena\n    mapset: arena\n"), &doc); err != nil {
		t.Fatal(err)
	}
	m := mappingValue(doc.Content[0], "maps").Content[0]

	var node yaml.Node
	if err := node.Encode(&Spawns{Solo: nil}); err != nil {
		t.Fatal(err)
	}
	setMappingValue(m, "spawns", &node)
	flowPoints(&doc)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"mapset: arena", "spawns:"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
