package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Page is the slice of browser behaviour the engine needs. The production
// implementation sits on a rod page; tests substitute a fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	Element(ctx context.Context, selector string) (Element, error)
	ElementX(ctx context.Context, xpath string) (Element, error)
	Has(ctx context.Context, selector string) (bool, error)
	PressKey(ctx context.Context, key string) error
	DismissDialog(ctx context.Context) error
}

type Element interface {
	Click(ctx context.Context) error
	Input(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	Visible() bool
	Enabled() bool
}

// BrowserConfig drives the rod launcher and the Millware login.
type BrowserConfig struct {
	Headless bool   `yaml:"headless"`
	Bin      string `yaml:"bin"`
	BaseURL  string `yaml:"base_url"`
	LoginURL string `yaml:"login_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Session owns the browser process and the logged-in Millware page.
type Session struct {
	cfg      BrowserConfig
	log      *zap.Logger
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
}

func NewSession(cfg BrowserConfig, log *zap.Logger) *Session {
	return &Session{cfg: cfg, log: log}
}

// Start launches the browser and opens a blank page.
func (s *Session) Start(ctx context.Context) error {
	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Bin != "" {
		l = l.Bin(s.cfg.Bin)
	}
	s.launcher = l

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	s.log.Info("browser started", zap.Bool("headless", s.cfg.Headless))
	return nil
}

// Login signs into Millware and leaves the session on the landing page.
func (s *Session) Login(ctx context.Context) error {
	p := s.Page()

	if err := p.Navigate(ctx, s.cfg.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	user, err := p.Element(ctx, "#txtUsername")
	if err != nil {
		return fmt.Errorf("login form not found: %w", err)
	}
	if err := user.Input(ctx, s.cfg.Username); err != nil {
		return err
	}

	pass, err := p.Element(ctx, "#txtPassword")
	if err != nil {
		return fmt.Errorf("login form not found: %w", err)
	}
	if err := pass.Input(ctx, s.cfg.Password); err != nil {
		return err
	}
	if err := p.PressKey(ctx, "enter"); err != nil {
		return err
	}

	s.log.Info("logged in to millware", zap.String("user", s.cfg.Username))
	return nil
}

// Page wraps the rod page in the engine-facing interface.
func (s *Session) Page() Page {
	return &rodPage{page: s.page, log: s.log}
}

func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Warn("failed to close browser", zap.Error(err))
		}
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

type rodPage struct {
	page *rod.Page
	log  *zap.Logger
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Element(ctx context.Context, selector string) (Element, error) {
	el, err := p.page.Context(ctx).Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return newRodElement(el), nil
}

func (p *rodPage) ElementX(ctx context.Context, xpath string) (Element, error) {
	el, err := p.page.Context(ctx).Timeout(5 * time.Second).ElementX(xpath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, xpath)
	}
	return newRodElement(el), nil
}

func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	return has, err
}

var keyMap = map[string]input.Key{
	"enter":  input.Enter,
	"tab":    input.Tab,
	"escape": input.Escape,
	"down":   input.ArrowDown,
	"up":     input.ArrowUp,
}

func (p *rodPage) PressKey(ctx context.Context, key string) error {
	k, ok := keyMap[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return p.page.Context(ctx).Keyboard.Press(k)
}

// DismissDialog accepts a javascript dialog if one is open. Chrome answers
// with "No dialog is showing" when there is none, which is the common case
// here; any other failure is a real CDP error and is reported.
func (p *rodPage) DismissDialog(ctx context.Context) error {
	err := proto.PageHandleJavaScriptDialog{Accept: true}.Call(p.page.Context(ctx))
	if err == nil || strings.Contains(err.Error(), "No dialog is showing") {
		return nil
	}
	p.log.Warn("failed to handle dialog", zap.Error(err))
	return err
}

type rodElement struct {
	el      *rod.Element
	visible bool
	enabled bool
}

func newRodElement(el *rod.Element) *rodElement {
	e := &rodElement{el: el}
	if v, err := el.Visible(); err == nil {
		e.visible = v
	}
	e.enabled = true
	if p, err := el.Property("disabled"); err == nil {
		e.enabled = !p.Bool()
	}
	return e
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) Clear(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input("")
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

func (e *rodElement) Visible() bool { return e.visible }
func (e *rodElement) Enabled() bool { return e.enabled }
