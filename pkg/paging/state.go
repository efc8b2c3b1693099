package paging

import (
	"fmt"
	"maps"

	"github.com/Sternrassler/listpager/pkg/apierror"
)

// LoadingKind identifies which kind of fetch is in flight or last ran.
type LoadingKind int

const (
	// KindNone means no fetch has run yet.
	KindNone LoadingKind = iota

	// KindFullScreen is an initial load, retry or parameter change.
	KindFullScreen

	// KindRefresh is a pull-to-refresh.
	KindRefresh

	// KindLoadMore fetches the page after the last loaded one.
	KindLoadMore
)

// String returns the kind's name.
func (k LoadingKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindFullScreen:
		return "full_screen"
	case KindRefresh:
		return "refresh"
	case KindLoadMore:
		return "load_more"
	default:
		return fmt.Sprintf("LoadingKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k LoadingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *LoadingKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*k = KindNone
	case "full_screen":
		*k = KindFullScreen
	case "refresh":
		*k = KindRefresh
	case "load_more":
		*k = KindLoadMore
	default:
		return fmt.Errorf("unknown loading kind %q", text)
	}
	return nil
}

// Params is the opaque filter set a screen supplies (keywords, region code,
// sort order). Published Params are never mutated; use Clone or With.
type Params map[string]string

// Clone returns a copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Equal reports whether p and other hold the same pairs. A nil set equals an
// empty one.
func (p Params) Equal(other Params) bool {
	return maps.Equal(p, other)
}

// With returns a copy of p with key set to value. An empty value removes the key.
func (p Params) With(key, value string) Params {
	out := make(Params, len(p)+1)
	maps.Copy(out, p)
	if value == "" {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

// Page is one successful fetch result.
type Page[T any] struct {
	Items      []T
	IsLastPage bool
}

// ListState is the snapshot of one screen's list. Snapshots are immutable:
// observers must not modify Items or FilterParams.
type ListState[T any] struct {
	Items []T `json:"items"`

	IsLoading     bool        `json:"is_loading"`
	IsRefreshing  bool        `json:"is_refreshing"`
	IsLoadingMore bool        `json:"is_loading_more"`
	LoadingKind   LoadingKind `json:"loading_kind"`

	IsError       bool              `json:"is_error"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	ErrorCategory apierror.Category `json:"error_category,omitempty"`

	NoMoreData     bool   `json:"no_more_data"`
	LastLoadedPage int    `json:"last_loaded_page"`
	HasLoadedOnce  bool   `json:"has_loaded_once"`
	FilterParams   Params `json:"filter_params,omitempty"`
}

// InFlight returns the kind of the fetch currently running, or KindNone.
func (s ListState[T]) InFlight() LoadingKind {
	switch {
	case s.IsLoading:
		return KindFullScreen
	case s.IsRefreshing:
		return KindRefresh
	case s.IsLoadingMore:
		return KindLoadMore
	default:
		return KindNone
	}
}

// ShowContent reports whether the list itself should be rendered.
// Only a full-screen load or a full-screen error hides the list: IsRefreshing,
// IsLoadingMore and refresh or load-more failures keep it visible, with the
// error shown inline. Callers must not recompute this as !IsError.
func (s ListState[T]) ShowContent() bool {
	return !s.IsLoading && !s.ShowFullScreenError() && len(s.Items) > 0
}

// ShowEmpty reports whether the empty-state view should be rendered. As with
// ShowContent, only a full-screen error suppresses it; an empty list whose
// refresh failed still shows the empty state.
func (s ListState[T]) ShowEmpty() bool {
	return !s.IsLoading && !s.ShowFullScreenError() && len(s.Items) == 0 && s.HasLoadedOnce
}

// ShowFullScreenLoading reports whether the full-screen skeleton should be rendered.
func (s ListState[T]) ShowFullScreenLoading() bool {
	return s.IsLoading && s.LoadingKind == KindFullScreen
}

// ShowFullScreenError reports whether the full-screen error view should be rendered.
func (s ListState[T]) ShowFullScreenError() bool {
	return s.IsError && s.LoadingKind == KindFullScreen
}

// ShowRefreshing reports whether a pull-to-refresh control should spin.
func (s ListState[T]) ShowRefreshing() bool {
	return s.IsRefreshing && s.LoadingKind == KindRefresh
}

// ShowLoadingMore reports whether the load-more footer should spin.
func (s ListState[T]) ShowLoadingMore() bool {
	return s.IsLoadingMore && s.LoadingKind == KindLoadMore
}

// setInFlight marks kind as the running fetch. Exactly one flag is set.
func (s *ListState[T]) setInFlight(kind LoadingKind) {
	s.IsLoading = kind == KindFullScreen
	s.IsRefreshing = kind == KindRefresh
	s.IsLoadingMore = kind == KindLoadMore
	s.LoadingKind = kind
}

func (s *ListState[T]) clearInFlight() {
	s.IsLoading = false
	s.IsRefreshing = false
	s.IsLoadingMore = false
}

// Status is an item-agnostic rendering of a snapshot with the derived flags
// evaluated, for hosts that handle screens of different item types.
type Status struct {
	Screen    string `json:"screen"`
	Items     any    `json:"items"`
	ItemCount int    `json:"item_count"`

	IsLoading     bool        `json:"is_loading"`
	IsRefreshing  bool        `json:"is_refreshing"`
	IsLoadingMore bool        `json:"is_loading_more"`
	LoadingKind   LoadingKind `json:"loading_kind"`

	IsError       bool              `json:"is_error"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	ErrorCategory apierror.Category `json:"error_category,omitempty"`

	NoMoreData     bool   `json:"no_more_data"`
	LastLoadedPage int    `json:"last_loaded_page"`
	HasLoadedOnce  bool   `json:"has_loaded_once"`
	FilterParams   Params `json:"filter_params,omitempty"`

	ShowContent           bool `json:"show_content"`
	ShowEmpty             bool `json:"show_empty"`
	ShowFullScreenLoading bool `json:"show_full_screen_loading"`
	ShowFullScreenError   bool `json:"show_full_screen_error"`
}

// StatusOf renders s for the named screen.
func StatusOf[T any](screen string, s ListState[T]) Status {
	items := s.Items
	if items == nil {
		items = []T{}
	}
	return Status{
		Screen:                screen,
		Items:                 items,
		ItemCount:             len(s.Items),
		IsLoading:             s.IsLoading,
		IsRefreshing:          s.IsRefreshing,
		IsLoadingMore:         s.IsLoadingMore,
		LoadingKind:           s.LoadingKind,
		IsError:               s.IsError,
		ErrorMessage:          s.ErrorMessage,
		ErrorCategory:         s.ErrorCategory,
		NoMoreData:            s.NoMoreData,
		LastLoadedPage:        s.LastLoadedPage,
		HasLoadedOnce:         s.HasLoadedOnce,
		FilterParams:          s.FilterParams,
		ShowContent:           s.ShowContent(),
		ShowEmpty:             s.ShowEmpty(),
		ShowFullScreenLoading: s.ShowFullScreenLoading(),
		ShowFullScreenError:   s.ShowFullScreenError(),
	}
}
