package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEngineRunSequence(t *testing.T) {
	page := newFakePage()
	date := visibleElement()
	page.add("#MainContent_txtTrxDate", date)
	status := &fakeElement{visible: true, enabled: true, text: "OK"}
	page.add("#lblStatus", status)

	e := NewEngine(page, zap.NewNop())
	res := e.Run(context.Background(), []Event{
		Navigate{URL: "http://mill.local/form"},
		Input{Target: Target{Selector: "#MainContent_txtTrxDate"}, Text: "12/06/2025", Clear: true},
		Keyboard{Key: "enter"},
		Extract{Target: Target{Selector: "#lblStatus"}, Key: "status"},
	})

	assert.True(t, res.Success)
	assert.Equal(t, 4, res.EventsExecuted)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "OK", res.Extracted["status"])
	assert.Equal(t, 1, date.cleared)
	assert.Equal(t, "12/06/2025", date.value)
	assert.Equal(t, []string{"enter"}, page.keys)
	assert.Equal(t, []string{"http://mill.local/form"}, page.navigated)
}

func TestEngineCriticalErrorAborts(t *testing.T) {
	page := newFakePage()
	after := visibleElement()
	page.add("#after", after)

	e := NewEngine(page, zap.NewNop())
	res := e.Run(context.Background(), []Event{
		Click{Target: Target{Selector: "#missing"}},
		Click{Target: Target{Selector: "#after"}},
	})

	assert.False(t, res.Success)
	assert.Zero(t, res.EventsExecuted)
	require.Len(t, res.Errors, 1)
	assert.True(t, res.Errors[0].Critical)
	assert.Zero(t, after.clicks) // never reached
}

func TestEngineOptionalTargetSkipped(t *testing.T) {
	page := newFakePage()
	after := visibleElement()
	page.add("#after", after)

	e := NewEngine(page, zap.NewNop())
	res := e.Run(context.Background(), []Event{
		Click{Target: Target{Selector: "#maybe-popup", Optional: true}},
		Click{Target: Target{Selector: "#after"}},
	})

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.EventsExecuted)
	assert.Equal(t, 1, after.clicks)
}

func TestEngineUnknownEventSkipped(t *testing.T) {
	page := newFakePage()
	e := NewEngine(page, zap.NewNop())

	res := e.Run(context.Background(), []Event{
		Unknown{Raw: "hologram"},
		Keyboard{Key: "tab"},
	})

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.EventsExecuted)
}

func TestEngineStop(t *testing.T) {
	page := newFakePage()
	e := NewEngine(page, zap.NewNop())
	e.Stop()

	res := e.Run(context.Background(), []Event{Keyboard{Key: "tab"}})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrStopped.Error(), res.Errors[0].Message)
	assert.Zero(t, res.EventsExecuted)

	e.ResetStop()
	res = e.Run(context.Background(), []Event{Keyboard{Key: "tab"}})
	assert.True(t, res.Success)
}

func TestEnginePauseResume(t *testing.T) {
	page := newFakePage()
	e := NewEngine(page, zap.NewNop())
	e.Pause()

	done := make(chan Result, 1)
	go func() {
		done <- e.Run(context.Background(), []Event{Keyboard{Key: "tab"}})
	}()

	select {
	case <-done:
		t.Fatal("run finished while paused")
	case <-time.After(100 * time.Millisecond):
	}
	assert.True(t, e.Paused())

	e.Resume()

	select {
	case res := <-done:
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.EventsExecuted)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not resume")
	}
}

func TestEngineStopWhilePaused(t *testing.T) {
	page := newFakePage()
	e := NewEngine(page, zap.NewNop())
	e.Pause()

	done := make(chan Result, 1)
	go func() {
		done <- e.Run(context.Background(), []Event{Keyboard{Key: "tab"}})
	}()

	time.Sleep(50 * time.Millisecond)
	e.Stop()

	select {
	case res := <-done:
		assert.False(t, res.Success)
		assert.Zero(t, res.EventsExecuted)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not wake paused run")
	}
}

func TestEngineConditional(t *testing.T) {
	page := newFakePage()
	popup := visibleElement()
	page.add(".popup", popup)
	page.add(".popup-close", popup)

	e := NewEngine(page, zap.NewNop())
	res := e.Run(context.Background(), []Event{
		Conditional{
			If:   Target{Selector: ".popup"},
			Then: []Event{Click{Target: Target{Selector: ".popup-close"}}},
			Else: []Event{Keyboard{Key: "escape"}},
		},
	})

	assert.True(t, res.Success)
	assert.Equal(t, 1, popup.clicks)
	assert.Empty(t, page.keys)
}

func TestEngineConditionalBranchFailureAborts(t *testing.T) {
	page := newFakePage()
	page.add(".popup", visibleElement())
	after := visibleElement()
	page.add("#after", after)

	e := NewEngine(page, zap.NewNop())
	res := e.Run(context.Background(), []Event{
		Conditional{
			If:   Target{Selector: ".popup"},
			Then: []Event{Click{Target: Target{Selector: "#missing-required"}}},
		},
		Click{Target: Target{Selector: "#after"}},
	})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.True(t, res.Errors[0].Critical)
	assert.Zero(t, after.clicks) // sequence must not continue past the failed branch
}

func TestEngineConditionalBranchOptionalStillRecoverable(t *testing.T) {
	page := newFakePage()
	page.add(".popup", visibleElement())
	after := visibleElement()
	page.add("#after", after)

	e := NewEngine(page, zap.NewNop())
	res := e.Run(context.Background(), []Event{
		Conditional{
			If:   Target{Selector: ".popup"},
			Then: []Event{Click{Target: Target{Selector: "#maybe", Optional: true}}},
		},
		Click{Target: Target{Selector: "#after"}},
	})

	assert.True(t, res.Success)
	assert.Equal(t, 1, after.clicks)
}

func TestEngineLoopBodyFailureAborts(t *testing.T) {
	page := newFakePage()
	after := visibleElement()
	page.add("#after", after)

	e := NewEngine(page, zap.NewNop())
	res := e.Run(context.Background(), []Event{
		Loop{Times: 2, Body: []Event{Input{Target: Target{Selector: "#missing-field"}, Text: "x"}}},
		Click{Target: Target{Selector: "#after"}},
	})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.True(t, res.Errors[0].Critical)
	assert.Zero(t, after.clicks)
}

func TestEngineLoop(t *testing.T) {
	page := newFakePage()
	e := NewEngine(page, zap.NewNop())

	res := e.Run(context.Background(), []Event{
		Loop{Times: 3, Body: []Event{Keyboard{Key: "down"}}},
	})

	assert.True(t, res.Success)
	assert.Equal(t, []string{"down", "down", "down"}, page.keys)
}

func TestEngineCancelledContext(t *testing.T) {
	page := newFakePage()
	e := NewEngine(page, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Run(ctx, []Event{Keyboard{Key: "tab"}})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.True(t, res.Errors[0].Critical)
}
