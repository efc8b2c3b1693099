package paging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/listpager/pkg/apierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher loads one page of a screen's list. The context is cancelled when
// the fetch is superseded; implementations should stop early but the engine
// discards late results regardless.
type Fetcher[T any] interface {
	LoadPage(ctx context.Context, page int, params Params) (Page[T], error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc[T any] func(ctx context.Context, page int, params Params) (Page[T], error)

// LoadPage implements Fetcher.
func (f FetchFunc[T]) LoadPage(ctx context.Context, page int, params Params) (Page[T], error) {
	return f(ctx, page, params)
}

// SessionNotifier is told when a fetch reports that the session was
// invalidated elsewhere. The engine does not handle the consequences.
type SessionNotifier interface {
	NotifySessionInvalidated()
}

// Classifier maps a fetch failure to a category and user-facing message.
type Classifier func(error) apierror.Classification

// Controller is the item-agnostic intent API of an engine.
type Controller interface {
	Name() string
	InitialLoad() bool
	Retry() bool
	Refresh() bool
	LoadMore() bool
	ParametersChanged(Params) bool
	Status() Status
	Close()
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	name     string
	logger   *zerolog.Logger
	notifier SessionNotifier
	classify Classifier
	equal    func(a, b Params) bool
	params   Params
	hooks    Hooks
}

// WithName sets the screen name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithSessionNotifier sets the collaborator told about session invalidation.
func WithSessionNotifier(n SessionNotifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithClassifier replaces apierror.Classify.
func WithClassifier(c Classifier) Option {
	return func(o *options) { o.classify = c }
}

// WithParamsEqual replaces Params.Equal for ParametersChanged.
func WithParamsEqual(eq func(a, b Params) bool) Option {
	return func(o *options) { o.equal = eq }
}

// WithInitialParams sets the filter set used before any ParametersChanged.
func WithInitialParams(p Params) Option {
	return func(o *options) { o.params = p.Clone() }
}

// WithHooks installs fetch lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// Engine coordinates the paginated list of one screen instance. It turns
// intents into fetches, keeps at most one fetch outstanding, and merges
// results into a published ListState.
type Engine[T any] struct {
	name     string
	fetcher  Fetcher[T]
	notifier SessionNotifier
	classify Classifier
	equal    func(a, b Params) bool
	hooks    Hooks
	logger   zerolog.Logger

	store *Store[T]
	guard *Guard[T]

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu          sync.Mutex
	generation  uint64             // guarded by mu; identifies the current fetch
	cancel      context.CancelFunc // guarded by mu; cancels the current fetch
	inFlight    LoadingKind        // guarded by mu
	params      Params             // guarded by mu
	initialDone bool               // guarded by mu
	closed      bool               // guarded by mu
}

// New creates an engine for one screen instance.
func New[T any](fetcher Fetcher[T], opts ...Option) *Engine[T] {
	if fetcher == nil {
		panic("paging: fetcher cannot be nil")
	}

	o := options{
		name:     "list",
		classify: apierror.Classify,
		equal:    Params.Equal,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.With().Str("component", "paging").Logger()
	if o.logger != nil {
		logger = *o.logger
	}

	ctx, stop := context.WithCancel(context.Background())

	return &Engine[T]{
		name:     o.name,
		fetcher:  fetcher,
		notifier: o.notifier,
		classify: o.classify,
		equal:    o.equal,
		hooks:    o.hooks,
		logger:   logger.With().Str("screen", o.name).Logger(),
		store:    NewStore(ListState[T]{FilterParams: o.params}),
		guard:    NewGuard[T](),
		ctx:      ctx,
		stop:     stop,
		params:   o.params,
	}
}

// Name returns the screen name.
func (e *Engine[T]) Name() string {
	return e.name
}

// State returns the current snapshot.
func (e *Engine[T]) State() ListState[T] {
	return e.store.Snapshot()
}

// Status returns the current snapshot with derived flags evaluated.
func (e *Engine[T]) Status() Status {
	return StatusOf(e.name, e.store.Snapshot())
}

// Subscribe streams snapshots until ctx is done or the engine is closed.
func (e *Engine[T]) Subscribe(ctx context.Context) <-chan ListState[T] {
	return e.store.Subscribe(ctx)
}

// request is a fetch the coordinator decided to start.
type request struct {
	kind  LoadingKind
	page  int
	reset bool // clear the list before fetching
	force bool // skip the in-flight rejection table
}

// InitialLoad starts a full-screen page-1 fetch the first time it is called.
// Later calls are no-ops.
func (e *Engine[T]) InitialLoad() bool {
	return e.dispatch(IntentInitialLoad, func() (request, string) {
		if e.initialDone {
			return request{}, "initial load already issued"
		}
		e.initialDone = true
		return request{kind: KindFullScreen, page: 1}, ""
	})
}

// Retry starts a fresh full-screen page-1 fetch.
func (e *Engine[T]) Retry() bool {
	return e.dispatch(IntentRetry, func() (request, string) {
		return request{kind: KindFullScreen, page: 1}, ""
	})
}

// Refresh starts a pull-to-refresh page-1 fetch. The list is kept until the
// refresh succeeds.
func (e *Engine[T]) Refresh() bool {
	return e.dispatch(IntentRefresh, func() (request, string) {
		return request{kind: KindRefresh, page: 1}, ""
	})
}

// LoadMore starts a fetch of the page after the last loaded one.
func (e *Engine[T]) LoadMore() bool {
	return e.dispatch(IntentLoadMore, func() (request, string) {
		return request{kind: KindLoadMore, page: e.store.Snapshot().LastLoadedPage + 1}, ""
	})
}

// ParametersChanged clears the list and starts a full-screen page-1 fetch
// with params, unless params equal the current set. It supersedes any fetch
// in flight, including a full-screen one.
func (e *Engine[T]) ParametersChanged(params Params) bool {
	return e.dispatch(IntentParametersChanged, func() (request, string) {
		if e.equal(e.params, params) {
			return request{}, "parameters unchanged"
		}
		e.params = params.Clone()
		return request{kind: KindFullScreen, page: 1, reset: true, force: true}, ""
	})
}

// dispatch runs plan under the coordinator lock and starts the planned fetch
// unless plan or the rejection table refuses it.
func (e *Engine[T]) dispatch(intent Intent, plan func() (request, string)) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}

	req, reason := plan()
	if reason == "" && !req.force {
		reason = e.rejectReasonLocked(req.kind)
	}
	if reason != "" {
		e.mu.Unlock()
		e.reject(intent, reason)
		return false
	}

	event := e.startLocked(intent, req)
	e.mu.Unlock()

	e.hooks.fetchStart(event)
	return true
}

func (e *Engine[T]) rejectReasonLocked(kind LoadingKind) string {
	switch kind {
	case KindFullScreen:
		if e.inFlight == KindFullScreen {
			return "full-screen fetch in flight"
		}
	case KindRefresh:
		if e.inFlight == KindRefresh {
			return "refresh in flight"
		}
	case KindLoadMore:
		if e.inFlight == KindLoadMore {
			return "load-more in flight"
		}
		if e.store.Snapshot().NoMoreData {
			return "no more data"
		}
	}
	return ""
}

func (e *Engine[T]) reject(intent Intent, reason string) {
	intentsRejectedTotal.WithLabelValues(e.name, string(intent)).Inc()
	e.logger.Debug().
		Str("intent", string(intent)).
		Str("reason", reason).
		Msg("Intent rejected")
	e.hooks.rejected(intent, reason)
}

// startLocked supersedes the current fetch and launches req.
func (e *Engine[T]) startLocked(intent Intent, req request) FetchEvent {
	if e.cancel != nil {
		e.cancel()
		fetchesTotal.WithLabelValues(e.name, e.inFlight.String(), outcomeSuperseded).Inc()
		e.logger.Debug().
			Str("kind", e.inFlight.String()).
			Uint64("generation", e.generation).
			Msg("Fetch superseded")
	}

	e.generation++
	gen := e.generation
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancel = cancel
	e.inFlight = req.kind
	params := e.params

	if req.reset {
		e.guard.Reset()
	}
	e.store.Update(func(s *ListState[T]) {
		s.setInFlight(req.kind)
		s.IsError = false
		s.ErrorMessage = ""
		s.ErrorCategory = ""
		if req.reset {
			s.Items = nil
			s.LastLoadedPage = 0
			s.FilterParams = params
		}
	})

	fetchesTotal.WithLabelValues(e.name, req.kind.String(), outcomeStarted).Inc()
	e.logger.Debug().
		Str("intent", string(intent)).
		Str("kind", req.kind.String()).
		Int("page", req.page).
		Uint64("generation", gen).
		Msg("Fetch started")

	e.wg.Add(1)
	go e.run(ctx, cancel, gen, req.kind, req.page, params)

	return FetchEvent{Screen: e.name, Kind: req.kind, Page: req.page, Generation: gen}
}

// run performs one fetch, then dispatches its hooks and the session notifier
// after the fetch is no longer counted by Close, so they may close the engine.
func (e *Engine[T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, kind LoadingKind, pageNum int, params Params) {
	dispatch := e.fetch(ctx, cancel, gen, kind, pageNum, params)
	dispatch()
}

func (e *Engine[T]) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, kind LoadingKind, pageNum int, params Params) func() {
	defer e.wg.Done()
	defer cancel()

	start := time.Now()
	page, err := e.load(ctx, pageNum, params)
	elapsed := time.Since(start)
	fetchDuration.WithLabelValues(e.name, kind.String()).Observe(elapsed.Seconds())

	event := FetchEvent{
		Screen:     e.name,
		Kind:       kind,
		Page:       pageNum,
		Generation: gen,
		Duration:   elapsed,
		Err:        err,
	}
	return e.complete(ctx, event, page)
}

// load calls the fetcher, turning a panic into an unexpected failure.
func (e *Engine[T]) load(ctx context.Context, pageNum int, params Params) (page Page[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &apierror.UnexpectedError{
				Message: apierror.MessageUnexpected,
				Err:     fmt.Errorf("fetcher panic: %v", r),
			}
		}
	}()
	return e.fetcher.LoadPage(ctx, pageNum, params)
}

// complete merges or records the result of the fetch identified by
// event.Generation, unless that fetch is no longer the current one. It
// returns the callbacks to run once the fetch has finished.
func (e *Engine[T]) complete(ctx context.Context, event FetchEvent, page Page[T]) func() {
	e.mu.Lock()

	if event.Generation != e.generation || ctx.Err() != nil {
		e.mu.Unlock()
		fetchesTotal.WithLabelValues(e.name, event.Kind.String(), outcomeDiscarded).Inc()
		e.logger.Debug().
			Str("kind", event.Kind.String()).
			Int("page", event.Page).
			Uint64("generation", event.Generation).
			Msg("Stale fetch result discarded")
		return func() { e.hooks.fetchDiscarded(event) }
	}

	e.cancel = nil
	e.inFlight = KindNone

	if event.Err == nil {
		result := e.guard.Apply(event.Page, page)
		e.store.Update(func(s *ListState[T]) {
			s.clearInFlight()
			s.LoadingKind = event.Kind
			s.Items = result.Items
			s.NoMoreData = result.NoMoreData
			s.LastLoadedPage = result.LastLoadedPage
			s.HasLoadedOnce = true
		})
		e.mu.Unlock()

		event.Items = len(page.Items)
		fetchesTotal.WithLabelValues(e.name, event.Kind.String(), outcomeApplied).Inc()
		e.logger.Info().
			Str("kind", event.Kind.String()).
			Int("page", event.Page).
			Int("items", len(result.Items)).
			Bool("no_more_data", result.NoMoreData).
			Dur("duration", event.Duration).
			Msg("Page applied")
		return func() { e.hooks.fetchApplied(event) }
	}

	class := e.classify(event.Err)
	event.Category = class.Category

	if class.Category == apierror.CategorySessionInvalidated {
		e.store.Update(func(s *ListState[T]) {
			s.clearInFlight()
		})
		e.mu.Unlock()

		fetchesTotal.WithLabelValues(e.name, event.Kind.String(), outcomeSessionInvalidated).Inc()
		e.logger.Warn().
			Err(event.Err).
			Str("kind", event.Kind.String()).
			Msg("Session invalidated, forwarding to session collaborator")
		return func() {
			if e.notifier != nil {
				e.notifier.NotifySessionInvalidated()
			}
			e.hooks.fetchFailed(event)
		}
	}

	e.store.Update(func(s *ListState[T]) {
		s.clearInFlight()
		s.LoadingKind = event.Kind
		s.IsError = true
		s.ErrorMessage = class.Message
		s.ErrorCategory = class.Category
	})
	e.mu.Unlock()

	fetchesTotal.WithLabelValues(e.name, event.Kind.String(), outcomeFailed).Inc()
	e.logger.Warn().
		Err(event.Err).
		Str("kind", event.Kind.String()).
		Int("page", event.Page).
		Str("error_category", string(class.Category)).
		Msg("Fetch failed")
	return func() { e.hooks.fetchFailed(event) }
}

// Close cancels the fetch in flight, waits for fetch goroutines to finish and
// closes all subscriptions. Intents after Close are no-ops. Close may be
// called from a hook or the session notifier; hooks already being dispatched
// may still run after Close returns.
func (e *Engine[T]) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stop()
	e.cancel = nil
	e.inFlight = KindNone
	e.store.Update(func(s *ListState[T]) {
		s.clearInFlight()
	})
	e.mu.Unlock()

	e.wg.Wait()
	e.store.Close()
}
