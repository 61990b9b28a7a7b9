package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is reported when a run is aborted by Stop.
var ErrStopped = errors.New("execution stopped")

// EventError records a failed step. Critical errors abort the rest of the
// sequence; recoverable ones are logged and the run continues.
type EventError struct {
	Index    int    `json:"index"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Critical bool   `json:"critical"`

	err error
}

func (e EventError) Error() string { return e.Message }

// Unwrap keeps the underlying chain intact so a failure inside a nested
// branch still classifies the same way at the outer level.
func (e EventError) Unwrap() error { return e.err }

// Result is the outcome of running one event sequence.
type Result struct {
	Success        bool              `json:"success"`
	EventsExecuted int               `json:"events_executed"`
	Errors         []EventError      `json:"errors,omitempty"`
	Extracted      map[string]string `json:"extracted,omitempty"`
}

// Engine runs event sequences against a page, one at a time. Pause parks
// the run between events on a condition variable until Resume; Stop aborts
// cooperatively at the next event boundary.
type Engine struct {
	page   Page
	finder *Finder
	log    *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	stopped bool
}

func NewEngine(page Page, log *zap.Logger) *Engine {
	e := &Engine{
		page:   page,
		finder: NewFinder(page, log),
		log:    log,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	e.cond.Broadcast()
}

// Stop aborts the current run at the next event boundary. It also wakes a
// paused run so it can observe the stop.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.cond.Broadcast()
}

// ResetStop clears a previous Stop so the engine can run again.
func (e *Engine) ResetStop() {
	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// gate blocks while paused and reports ErrStopped once Stop has been called.
func (e *Engine) gate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.paused && !e.stopped {
		e.cond.Wait()
	}
	if e.stopped {
		return ErrStopped
	}
	return nil
}

// Run executes the sequence. The result is never nil-like: even an aborted
// run reports how far it got and why.
func (e *Engine) Run(ctx context.Context, events []Event) Result {
	res := Result{Extracted: map[string]string{}}

	for i, ev := range events {
		if err := e.gate(); err != nil {
			res.Errors = append(res.Errors, EventError{
				Index: i, Kind: ev.Kind(), Message: err.Error(), Critical: true, err: err,
			})
			return res
		}
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, EventError{
				Index: i, Kind: ev.Kind(), Message: err.Error(), Critical: true, err: err,
			})
			return res
		}

		if err := e.execute(ctx, ev, &res); err != nil {
			critical := isCritical(err, ev)
			res.Errors = append(res.Errors, EventError{
				Index: i, Kind: ev.Kind(), Message: err.Error(), Critical: critical, err: err,
			})
			e.log.Warn("event failed",
				zap.Int("index", i),
				zap.String("kind", ev.Kind()),
				zap.Bool("critical", critical),
				zap.Error(err))
			if critical {
				return res
			}
			continue
		}
		res.EventsExecuted++
	}

	res.Success = len(res.Errors) == 0
	return res
}

// isCritical classifies failures. Missing required elements and timeouts
// mean the page is not in the expected state, so the rest of the sequence
// cannot be trusted.
func isCritical(err error, ev Event) bool {
	var branch EventError
	if errors.As(err, &branch) && branch.Critical {
		return true
	}
	if errors.Is(err, ErrStopped) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, ErrElementNotFound) {
		switch t := ev.(type) {
		case Click:
			return !t.Target.Optional
		case Input:
			return !t.Target.Optional
		case WaitForElement:
			return !t.Target.Optional
		case Extract:
			return !t.Target.Optional
		}
		return true
	}
	return false
}

// mergeBranch folds a nested run into the outer result. A critical failure
// inside the branch comes back as the error, wrapped so the chain (element
// not found, deadline, stop) survives reclassification at the outer level.
func (e *Engine) mergeBranch(res *Result, sub Result) error {
	res.EventsExecuted += sub.EventsExecuted
	for k, v := range sub.Extracted {
		res.Extracted[k] = v
	}
	for _, ee := range sub.Errors {
		if ee.Critical {
			return fmt.Errorf("branch event %d: %w", ee.Index, ee)
		}
		res.Errors = append(res.Errors, ee)
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, ev Event, res *Result) error {
	switch t := ev.(type) {
	case Click:
		el, err := e.finder.Find(ctx, t.Target)
		if err != nil {
			if t.Target.Optional && errors.Is(err, ErrElementNotFound) {
				return nil
			}
			return err
		}
		return el.Click(ctx)

	case Input:
		el, err := e.finder.Find(ctx, t.Target)
		if err != nil {
			if t.Target.Optional && errors.Is(err, ErrElementNotFound) {
				return nil
			}
			return err
		}
		if t.Clear {
			if err := el.Clear(ctx); err != nil {
				return err
			}
		}
		return el.Input(ctx, t.Text)

	case Wait:
		select {
		case <-time.After(t.Duration):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case Navigate:
		return e.page.Navigate(ctx, t.URL)

	case Extract:
		el, err := e.finder.Find(ctx, t.Target)
		if err != nil {
			return err
		}
		var value string
		if t.Attribute != "" {
			value, err = el.Attribute(ctx, t.Attribute)
		} else {
			value, err = el.Text(ctx)
		}
		if err != nil {
			return err
		}
		res.Extracted[t.Key] = value
		return nil

	case WaitForElement:
		timeout := t.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		for {
			if _, err := e.finder.Find(waitCtx, t.Target); err == nil {
				return nil
			}
			select {
			case <-waitCtx.Done():
				return fmt.Errorf("%w: waiting for %s", context.DeadlineExceeded, describeTarget(t.Target))
			case <-time.After(250 * time.Millisecond):
			}
		}

	case Keyboard:
		return e.page.PressKey(ctx, t.Key)

	case PopupDismiss:
		return e.page.DismissDialog(ctx)

	case Conditional:
		has, err := e.page.Has(ctx, t.If.Selector)
		if err != nil {
			return err
		}
		branch := t.Then
		if !has {
			branch = t.Else
		}
		sub := e.Run(ctx, branch)
		if err := e.mergeBranch(res, sub); err != nil {
			return err
		}
		return nil

	case Loop:
		for i := 0; i < t.Times; i++ {
			sub := e.Run(ctx, t.Body)
			if err := e.mergeBranch(res, sub); err != nil {
				return err
			}
		}
		return nil

	case Unknown:
		e.log.Warn("unknown event kind, skipping", zap.String("kind", t.Raw))
		return nil

	default:
		e.log.Warn("unhandled event type, skipping", zap.String("kind", ev.Kind()))
		return nil
	}
}
