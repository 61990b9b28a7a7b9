package automation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFlow(t *testing.T) {
	data := []byte(`[
		{"kind": "navigate", "url": "http://example.com"},
		{"kind": "input", "target": {"selector": "#txtUsername"}, "text": "adm075", "clear": true},
		{"kind": "wait", "duration_ms": 500},
		{"kind": "keyboard", "key": "enter"},
		{"kind": "wait_for_element", "target": {"selector": "#MainContent_txtTrxDate"}, "timeout_ms": 15000},
		{"kind": "extract", "target": {"selector": "#lblStatus"}, "key": "status"}
	]`)

	events, err := DecodeFlow(data)
	require.NoError(t, err)
	require.Len(t, events, 6)

	assert.Equal(t, Navigate{URL: "http://example.com"}, events[0])
	assert.Equal(t, Input{Target: Target{Selector: "#txtUsername"}, Text: "adm075", Clear: true}, events[1])
	assert.Equal(t, Wait{Duration: 500 * time.Millisecond}, events[2])
	assert.Equal(t, Keyboard{Key: "enter"}, events[3])
	assert.Equal(t, WaitForElement{Target: Target{Selector: "#MainContent_txtTrxDate"}, Timeout: 15 * time.Second}, events[4])
	assert.Equal(t, Extract{Target: Target{Selector: "#lblStatus"}, Key: "status"}, events[5])
}

func TestDecodeFlowUnknownKind(t *testing.T) {
	events, err := DecodeFlow([]byte(`[
		{"kind": "click", "target": {"selector": "#ok"}},
		{"kind": "hologram", "foo": 1}
	]`))
	require.NoError(t, err)
	require.Len(t, events, 2)

	unknown, ok := events[1].(Unknown)
	require.True(t, ok)
	assert.Equal(t, "hologram", unknown.Kind())
}

func TestDecodeFlowNested(t *testing.T) {
	events, err := DecodeFlow([]byte(`[
		{"kind": "conditional",
		 "if": {"selector": ".popup"},
		 "then": [{"kind": "popup_dismiss"}],
		 "else": [{"kind": "wait", "duration_ms": 100}]},
		{"kind": "loop", "times": 3, "body": [{"kind": "keyboard", "key": "tab"}]}
	]`))
	require.NoError(t, err)
	require.Len(t, events, 2)

	cond, ok := events[0].(Conditional)
	require.True(t, ok)
	assert.Equal(t, ".popup", cond.If.Selector)
	require.Len(t, cond.Then, 1)
	require.Len(t, cond.Else, 1)

	loop, ok := events[1].(Loop)
	require.True(t, ok)
	assert.Equal(t, 3, loop.Times)
	require.Len(t, loop.Body, 1)
}

func TestDecodeFlowInvalidJSON(t *testing.T) {
	_, err := DecodeFlow([]byte(`{"kind": "click"}`))
	assert.Error(t, err)
}
