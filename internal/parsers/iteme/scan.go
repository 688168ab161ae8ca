package iteme

import (
	"math"

	"notam_parser/internal/notam"
)

// scanState is the accumulation state of the coordinate scanner.
type scanState int

const (
	// stateIdle: no working sequence yet.
	stateIdle scanState = iota
	// stateAccumulating: appending to a working sequence.
	stateAccumulating
	// stateJustClosed: a sequence was closed and the next match starts a new one.
	stateJustClosed
)

func (s scanState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAccumulating:
		return "accumulating"
	case stateJustClosed:
		return "just_closed"
	}
	return "unknown"
}

// scanAction is what happened to one coordinate token.
type scanAction string

const (
	actionStandalone  scanAction = "standalone"
	actionSkipped     scanAction = "skipped"
	actionAppended    scanAction = "appended"
	actionClosed      scanAction = "closed"
	actionRepeat      scanAction = "repeat"
	actionUndecodable scanAction = "undecodable"
)

// Rounding scales for position keys: about 1 m and about 111 m.
const (
	exactScale  = 1e6
	coarseScale = 1e3
)

type posKey struct {
	lat, lon int64
}

func keyAt(c notam.Coordinate, scale float64) posKey {
	return posKey{
		lat: int64(math.Round(c.Lat * scale)),
		lon: int64(math.Round(c.Lon * scale)),
	}
}

// scanner groups coordinate tokens into shapes.
//
// A position that repeats inside the working sequence closes it as a ring.
// Every member of a closed ring is remembered at coarse precision so a later
// restatement of the same area is discarded.
type scanner struct {
	state   scanState
	current notam.CoordinateGroup
	exact   map[posKey]bool
	closed  map[posKey]bool
	groups  []notam.CoordinateGroup
}

func newScanner() *scanner {
	return &scanner{
		state:  stateIdle,
		exact:  make(map[posKey]bool),
		closed: make(map[posKey]bool),
	}
}

// standalone emits c as its own group without touching the working sequence.
func (s *scanner) standalone(c notam.Coordinate) scanAction {
	s.groups = append(s.groups, notam.CoordinateGroup{c})
	return actionStandalone
}

// feed runs one coordinate through the accumulation rules.
func (s *scanner) feed(c notam.Coordinate) scanAction {
	if s.exact[keyAt(c, exactScale)] {
		s.flush()
		s.state = stateJustClosed
		return actionClosed
	}
	if s.closed[keyAt(c, coarseScale)] {
		return actionRepeat
	}

	s.current = append(s.current, c)
	s.exact[keyAt(c, exactScale)] = true
	s.state = stateAccumulating
	return actionAppended
}

func (s *scanner) flush() {
	if len(s.current) == 0 {
		return
	}
	for _, c := range s.current {
		s.closed[keyAt(c, coarseScale)] = true
	}
	s.groups = append(s.groups, s.current)
	s.current = nil
	s.exact = make(map[posKey]bool)
}

// finish emits any open working sequence and returns all groups in the
// order they were completed.
func (s *scanner) finish() []notam.CoordinateGroup {
	if len(s.current) > 0 {
		s.groups = append(s.groups, s.current)
		s.current = nil
	}
	s.state = stateIdle
	return s.groups
}
