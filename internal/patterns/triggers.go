package patterns

import (
	"strings"
)

// TriggerKind names one family of keywords that enables coordinate extraction.
type TriggerKind string

const (
	TriggerPSN          TriggerKind = "PSN"
	TriggerCentre       TriggerKind = "CENTRE"
	TriggerObstacle     TriggerKind = "OBST"
	TriggerObstacleCode TriggerKind = "QOB"
	TriggerArea         TriggerKind = "AREA"
)

// AllTriggers lists every trigger kind in evaluation order.
var AllTriggers = []TriggerKind{
	TriggerPSN,
	TriggerCentre,
	TriggerObstacle,
	TriggerObstacleCode,
	TriggerArea,
}

// areaLookahead is how far past an area keyword a coordinate may start and
// still anchor the extraction start index.
const areaLookahead = 40

// KeywordHit is one accepted keyword occurrence.
type KeywordHit struct {
	Kind  TriggerKind `json:"kind"`
	Text  string      `json:"text"`
	Start int         `json:"start"`
	End   int         `json:"end"`
}

// Triggers is the result of matching the trigger set against an E) item.
type Triggers struct {
	Hits []KeywordHit `json:"hits,omitempty"`

	// StartIndex is where polygon candidates begin. Coordinates before it are
	// treated as unrelated prose. Zero when no area keyword anchors a list.
	StartIndex int `json:"start_index"`

	fired map[TriggerKind]bool
}

// Any reports whether extraction should run.
func (t Triggers) Any() bool {
	return len(t.fired) > 0
}

// Has reports whether a trigger kind fired.
func (t Triggers) Has(kind TriggerKind) bool {
	return t.fired[kind]
}

// Fired returns the kinds that fired, in AllTriggers order.
func (t Triggers) Fired() []TriggerKind {
	var out []TriggerKind
	for _, k := range AllTriggers {
		if t.fired[k] {
			out = append(out, k)
		}
	}
	return out
}

// MatchTriggers evaluates the trigger set against upper-cased E) text and
// the notice's Q-code in a single pass over the text.
func MatchTriggers(eText, qCode string) Triggers {
	t := Triggers{fired: make(map[TriggerKind]bool)}

	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(qCode)), "QOB") {
		t.fired[TriggerObstacleCode] = true
	}

	names := TriggerPattern.SubexpNames()
	anchored := false

	for _, idx := range TriggerPattern.FindAllStringSubmatchIndex(eText, -1) {
		kind := triggerKindOf(names, idx)
		start, end := idx[0], idx[1]

		if kind == TriggerArea && restrictedInPattern.MatchString(eText[:start]) {
			continue
		}

		t.fired[kind] = true
		t.Hits = append(t.Hits, KeywordHit{Kind: kind, Text: eText[start:end], Start: start, End: end})

		if kind == TriggerArea && !anchored {
			if loc := CoordTokenPattern.FindStringIndex(eText[end:]); loc != nil && loc[0] <= areaLookahead {
				t.StartIndex = start
				anchored = true
			}
		}
	}

	return t
}

// triggerKindOf maps the participating named group of a TriggerPattern match
// to its kind.
func triggerKindOf(names []string, idx []int) TriggerKind {
	for i := 1; i < len(names); i++ {
		if idx[2*i] < 0 {
			continue
		}
		switch names[i] {
		case "psn":
			return TriggerPSN
		case "centre":
			return TriggerCentre
		case "obst":
			return TriggerObstacle
		case "area":
			return TriggerArea
		}
	}
	return ""
}
