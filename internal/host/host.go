// Package host runs a set of list screens headlessly. It owns one engine per
// screen, withholds intents until a screen has been made visible, and exposes
// intents and snapshots over HTTP.
package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Sternrassler/listpager/pkg/paging"
	"github.com/rs/zerolog"
)

var (
	// ErrUnknownScreen is returned for a screen that is not registered.
	ErrUnknownScreen = errors.New("unknown screen")

	// ErrNotVisible is returned for intents sent to a hidden screen.
	ErrNotVisible = errors.New("screen is not visible")

	// ErrUnknownIntent is returned for an intent name the engine does not accept.
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrDuplicateScreen is returned when two controllers share a name.
	ErrDuplicateScreen = errors.New("screen already registered")
)

// Session is the part of the session collaborator the host reports on.
type Session interface {
	Invalidated() bool
	Reset(ctx context.Context) error
}

// ScreenStatus is a screen's snapshot plus its visibility.
type ScreenStatus struct {
	paging.Status
	Visible bool `json:"visible"`
	Shown   bool `json:"shown"`
}

type screen struct {
	ctrl    paging.Controller
	visible bool
	shown   bool
}

// Host owns the registered screens.
type Host struct {
	logger  zerolog.Logger
	session Session

	mu      sync.Mutex
	screens map[string]*screen
	closed  bool
}

// New creates an empty host. session may be nil.
func New(logger zerolog.Logger, session Session) *Host {
	return &Host{
		logger:  logger.With().Str("component", "host").Logger(),
		session: session,
		screens: make(map[string]*screen),
	}
}

// Register adds a controller under its name. The host closes it on Close.
func (h *Host) Register(ctrl paging.Controller) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := ctrl.Name()
	if _, ok := h.screens[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateScreen, name)
	}
	h.screens[name] = &screen{ctrl: ctrl}
	return nil
}

func (h *Host) lookup(name string) (*screen, error) {
	s, ok := h.screens[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScreen, name)
	}
	return s, nil
}

// SetVisible marks a screen visible. The first time a screen is shown its
// InitialLoad intent is issued; the return value reports whether a fetch
// started.
func (h *Host) SetVisible(name string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.lookup(name)
	if err != nil {
		return false, err
	}
	first := !s.shown
	s.visible = true
	s.shown = true

	if !first {
		return false, nil
	}
	started := s.ctrl.InitialLoad()
	h.logger.Debug().Str("screen", name).Bool("started", started).Msg("Screen shown for the first time")
	return started, nil
}

// SetHidden marks a screen hidden. Its state is kept; intents are refused
// until it is visible again.
func (h *Host) SetHidden(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.lookup(name)
	if err != nil {
		return err
	}
	s.visible = false
	return nil
}

// Intent forwards a named intent to a visible screen. params is only used
// by parameters_changed. The return value reports whether a fetch started.
//
// The host lock is held while the intent is dispatched, so a concurrent
// SetHidden or HideAll either runs first, and the intent is refused, or
// waits until the intent has been issued. Controller intents only start fetches and must
// not call back into the host.
func (h *Host) Intent(name string, intent paging.Intent, params paging.Params) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.lookup(name)
	if err != nil {
		return false, err
	}
	if !s.visible {
		return false, fmt.Errorf("%w: %s", ErrNotVisible, name)
	}

	switch intent {
	case paging.IntentInitialLoad:
		return s.ctrl.InitialLoad(), nil
	case paging.IntentRetry:
		return s.ctrl.Retry(), nil
	case paging.IntentRefresh:
		return s.ctrl.Refresh(), nil
	case paging.IntentLoadMore:
		return s.ctrl.LoadMore(), nil
	case paging.IntentParametersChanged:
		return s.ctrl.ParametersChanged(params), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownIntent, intent)
	}
}

// Status returns a screen's current snapshot.
func (h *Host) Status(name string) (ScreenStatus, error) {
	h.mu.Lock()
	s, err := h.lookup(name)
	if err != nil {
		h.mu.Unlock()
		return ScreenStatus{}, err
	}
	visible, shown := s.visible, s.shown
	h.mu.Unlock()

	return ScreenStatus{Status: s.ctrl.Status(), Visible: visible, Shown: shown}, nil
}

// Names returns the registered screen names in sorted order.
func (h *Host) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.screens))
	for name := range h.screens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HideAll hides every screen, e.g. after the session was invalidated.
func (h *Host) HideAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.screens {
		s.visible = false
	}
}

// SessionInvalidated reports the session collaborator's state.
func (h *Host) SessionInvalidated() bool {
	return h.session != nil && h.session.Invalidated()
}

// ResetSession starts a new session episode.
func (h *Host) ResetSession(ctx context.Context) error {
	if h.session == nil {
		return nil
	}
	return h.session.Reset(ctx)
}

// Close closes every registered controller.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	ctrls := make([]paging.Controller, 0, len(h.screens))
	for _, s := range h.screens {
		ctrls = append(ctrls, s.ctrl)
	}
	h.mu.Unlock()

	for _, c := range ctrls {
		c.Close()
	}
}
