package world

import "slices"

// QuestMode tells a simple per-map stage list from a scenario run.
type QuestMode string

const (
	QuestSimple   QuestMode = "simple"
	QuestScenario QuestMode = "scenario"
)

// Sector is one scenario stage.
type Sector struct {
	ID         int
	NpcSets    []string
	MeleeSpawn int
	RangeSpawn int
	Boss       bool
}

// Quest is the progress of a match's PvE content.
type Quest struct {
	Mode       QuestMode
	QuestID    int
	Stage      int
	Completed  bool
	Title      string
	XP         int
	BP         int
	Sectors    []Sector
	Transition int64 // tick the next stage spawns, 0 when none is pending
}

// Stages returns the number of stages, or -1 when a simple quest's length
// comes from the content catalog.
func (q *Quest) Stages() int {
	if q.Mode == QuestScenario {
		return len(q.Sectors)
	}
	return -1
}

// Duel is the fighter rotation of duel mode, keyed by user id.
type Duel struct {
	Queue []string
	P1    string
	P2    string
}

// Fighter reports whether userID is currently in the ring.
func (d *Duel) Fighter(userID string) bool {
	return userID != "" && (d.P1 == userID || d.P2 == userID)
}

// Lose moves a defeated fighter to the back of the queue.
func (d *Duel) Lose(userID string) {
	switch userID {
	case "":
		return
	case d.P1:
		d.P1 = ""
	case d.P2:
		d.P2 = ""
	default:
		return
	}
	d.Queue = append(d.Queue, userID)
}

// Fill seats waiting players in empty fighter slots.
func (d *Duel) Fill() {
	if d.P1 == "" && len(d.Queue) > 0 {
		d.P1, d.Queue = d.Queue[0], d.Queue[1:]
	}
	if d.P2 == "" && len(d.Queue) > 0 {
		d.P2, d.Queue = d.Queue[0], d.Queue[1:]
	}
}

// Drop removes a user from the rotation entirely.
func (d *Duel) Drop(userID string) {
	if d.P1 == userID {
		d.P1 = ""
	}
	if d.P2 == userID {
		d.P2 = ""
	}
	d.Queue = slices.DeleteFunc(d.Queue, func(id string) bool { return id == userID })
}
