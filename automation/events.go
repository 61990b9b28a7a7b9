package automation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Target names an element on the page. Selector is tried first, then
// Alternatives in order, then text and attribute based XPath heuristics.
// Optional targets that never resolve are skipped instead of failing.
type Target struct {
	Selector     string   `json:"selector"`
	Alternatives []string `json:"alternatives,omitempty"`
	Text         string   `json:"text,omitempty"`
	Optional     bool     `json:"optional,omitempty"`
}

// Event is one step of a browser flow. The concrete types below are the
// only implementations; the engine dispatches on them with a type switch.
type Event interface {
	Kind() string
}

type Click struct {
	Target Target `json:"target"`
}

type Input struct {
	Target Target `json:"target"`
	Text   string `json:"text"`
	Clear  bool   `json:"clear,omitempty"`
}

type Wait struct {
	Duration time.Duration `json:"duration"`
}

type Navigate struct {
	URL string `json:"url"`
}

// Extract reads text or an attribute from an element into the result map.
type Extract struct {
	Target    Target `json:"target"`
	Attribute string `json:"attribute,omitempty"`
	Key       string `json:"key"`
}

type WaitForElement struct {
	Target  Target        `json:"target"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Keyboard sends a named key (enter, tab, escape, down) to the page.
type Keyboard struct {
	Key string `json:"key"`
}

// PopupDismiss accepts any open javascript dialog; a no-op when none is up.
type PopupDismiss struct{}

// Conditional runs Then when the If target resolves, Else otherwise.
type Conditional struct {
	If   Target  `json:"if"`
	Then []Event `json:"then"`
	Else []Event `json:"else,omitempty"`
}

type Loop struct {
	Times int     `json:"times"`
	Body  []Event `json:"body"`
}

// Unknown stands in for an event kind this build does not understand.
// The engine logs and skips it.
type Unknown struct {
	Raw string
}

func (Click) Kind() string          { return "click" }
func (Input) Kind() string          { return "input" }
func (Wait) Kind() string           { return "wait" }
func (Navigate) Kind() string       { return "navigate" }
func (Extract) Kind() string        { return "extract" }
func (WaitForElement) Kind() string { return "wait_for_element" }
func (Keyboard) Kind() string       { return "keyboard" }
func (PopupDismiss) Kind() string   { return "popup_dismiss" }
func (Conditional) Kind() string    { return "conditional" }
func (Loop) Kind() string           { return "loop" }
func (u Unknown) Kind() string      { return u.Raw }

// rawEvent is the wire shape: a kind tag plus the event's own fields, with
// durations in milliseconds.
type rawEvent struct {
	Kind string `json:"kind"`

	Target    Target          `json:"target"`
	Text      string          `json:"text"`
	Clear     bool            `json:"clear"`
	DurationMs int64          `json:"duration_ms"`
	URL       string          `json:"url"`
	Attribute string          `json:"attribute"`
	Key       string          `json:"key"`
	TimeoutMs int64           `json:"timeout_ms"`
	If        Target          `json:"if"`
	Then      json.RawMessage `json:"then"`
	Else      json.RawMessage `json:"else"`
	Times     int             `json:"times"`
	Body      json.RawMessage `json:"body"`
}

// DecodeFlow parses a JSON array of events. Unknown kinds decode to
// Unknown rather than failing, so new event types in a flow file do not
// break older builds.
func DecodeFlow(data []byte) ([]Event, error) {
	var raws []rawEvent
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("invalid flow: %w", err)
	}

	events := make([]Event, 0, len(raws))
	for _, r := range raws {
		ev, err := decodeEvent(r)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeEvent(r rawEvent) (Event, error) {
	switch r.Kind {
	case "click":
		return Click{Target: r.Target}, nil
	case "input":
		return Input{Target: r.Target, Text: r.Text, Clear: r.Clear}, nil
	case "wait":
		return Wait{Duration: time.Duration(r.DurationMs) * time.Millisecond}, nil
	case "navigate":
		return Navigate{URL: r.URL}, nil
	case "extract":
		return Extract{Target: r.Target, Attribute: r.Attribute, Key: r.Key}, nil
	case "wait_for_element":
		return WaitForElement{Target: r.Target, Timeout: time.Duration(r.TimeoutMs) * time.Millisecond}, nil
	case "keyboard":
		return Keyboard{Key: r.Key}, nil
	case "popup_dismiss":
		return PopupDismiss{}, nil
	case "conditional":
		then, err := decodeBranch(r.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeBranch(r.Else)
		if err != nil {
			return nil, err
		}
		return Conditional{If: r.If, Then: then, Else: els}, nil
	case "loop":
		body, err := decodeBranch(r.Body)
		if err != nil {
			return nil, err
		}
		return Loop{Times: r.Times, Body: body}, nil
	default:
		return Unknown{Raw: r.Kind}, nil
	}
}

func decodeBranch(data json.RawMessage) ([]Event, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return DecodeFlow(data)
}
