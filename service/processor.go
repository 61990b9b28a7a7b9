package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ptrj.com/venus/automation"
	"ptrj.com/venus/core"
)

// EntryProcessor drives the Millware task register form through the
// automation engine: one browser session, logged in once, reused for every
// record.
type EntryProcessor struct {
	cfg     automation.BrowserConfig
	log     *zap.Logger
	session *automation.Session
	engine  *automation.Engine
}

func NewEntryProcessor(cfg automation.BrowserConfig, log *zap.Logger) *EntryProcessor {
	return &EntryProcessor{cfg: cfg, log: log}
}

func (p *EntryProcessor) Init(ctx context.Context) error {
	return p.withRetry(ctx, "session init", func() error {
		session := automation.NewSession(p.cfg, p.log)
		if err := session.Start(ctx); err != nil {
			return err
		}
		if err := session.Login(ctx); err != nil {
			session.Close()
			return err
		}
		p.session = session
		p.engine = automation.NewEngine(session.Page(), p.log)
		return nil
	})
}

// withRetry covers transient browser and network failures. Three attempts
// with doubling backoff, then the error stands.
func (p *EntryProcessor) withRetry(ctx context.Context, what string, fn func() error) error {
	backoff := 2 * time.Second
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		p.log.Warn("retrying after failure",
			zap.String("step", what), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return err
		}
		backoff *= 2
	}
	return err
}

// Process enters one staging record into the task register. Records with
// both regular and overtime hours produce two form entries.
func (p *EntryProcessor) Process(ctx context.Context, rec *core.StagingRecord, trxDate string) error {
	if p.engine == nil {
		return fmt.Errorf("processor not initialized")
	}

	p.engine.ResetStop()

	ready := automation.TaskRegisterReadyFlow(p.cfg.BaseURL)
	err := p.withRetry(ctx, "task register ready", func() error {
		if res := p.engine.Run(ctx, ready); !res.Success {
			return fmt.Errorf("task register form not ready: %s", firstError(res))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, flow := range automation.TaskRegisterFlows(rec, trxDate) {
		res := p.engine.Run(ctx, flow)
		if !res.Success {
			return fmt.Errorf("form entry failed: %s", firstError(res))
		}
	}

	return nil
}

func (p *EntryProcessor) Stop() {
	if p.engine != nil {
		p.engine.Stop()
	}
}

func (p *EntryProcessor) Engine() *automation.Engine {
	return p.engine
}

func (p *EntryProcessor) Close() {
	if p.session != nil {
		p.session.Close()
	}
}

func firstError(res automation.Result) string {
	if len(res.Errors) == 0 {
		return "unknown error"
	}
	e := res.Errors[0]
	return fmt.Sprintf("event %d (%s): %s", e.Index, e.Kind, e.Message)
}
