package paging

import (
	"time"

	"github.com/Sternrassler/listpager/pkg/apierror"
)

// Intent is a user intent accepted by the engine.
type Intent string

const (
	// IntentInitialLoad loads page 1 once, when the screen first becomes visible.
	IntentInitialLoad Intent = "initial_load"
	// IntentRetry reloads page 1 behind the full-screen loading indicator.
	IntentRetry Intent = "retry"
	// IntentRefresh reloads page 1 while the current items stay visible.
	IntentRefresh Intent = "refresh"
	// IntentLoadMore fetches the page after the last loaded one.
	IntentLoadMore Intent = "load_more"
	// IntentParametersChanged clears the list and loads page 1 with new filter parameters.
	IntentParametersChanged Intent = "parameters_changed"
)

// FetchEvent describes one fetch for hooks.
type FetchEvent struct {
	Screen     string
	Kind       LoadingKind
	Page       int
	Generation uint64
	Duration   time.Duration
	Items      int
	Err        error
	Category   apierror.Category
}

// Hooks are optional callbacks fired outside the engine's locks. They may
// call back into the engine. Completion hooks run after their fetch has
// finished, so they may also call Close.
type Hooks struct {
	OnFetchStart     func(FetchEvent)
	OnFetchApplied   func(FetchEvent)
	OnFetchFailed    func(FetchEvent)
	OnFetchDiscarded func(FetchEvent)
	OnRejected       func(intent Intent, reason string)
}

func (h Hooks) fetchStart(e FetchEvent) {
	if h.OnFetchStart != nil {
		h.OnFetchStart(e)
	}
}

func (h Hooks) fetchApplied(e FetchEvent) {
	if h.OnFetchApplied != nil {
		h.OnFetchApplied(e)
	}
}

func (h Hooks) fetchFailed(e FetchEvent) {
	if h.OnFetchFailed != nil {
		h.OnFetchFailed(e)
	}
}

func (h Hooks) fetchDiscarded(e FetchEvent) {
	if h.OnFetchDiscarded != nil {
		h.OnFetchDiscarded(e)
	}
}

func (h Hooks) rejected(intent Intent, reason string) {
	if h.OnRejected != nil {
		h.OnRejected(intent, reason)
	}
}
