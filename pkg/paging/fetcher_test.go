package paging

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// pendingCall is one LoadPage invocation waiting for the test to answer it.
type pendingCall struct {
	ctx    context.Context
	page   int
	params Params
	reply  chan fetchReply
}

type fetchReply struct {
	page Page[string]
	err  error
}

func (c *pendingCall) succeed(items []string, last bool) {
	c.reply <- fetchReply{page: Page[string]{Items: items, IsLastPage: last}}
}

func (c *pendingCall) fail(err error) {
	c.reply <- fetchReply{err: err}
}

// scriptedFetcher hands every call to the test and ignores cancellation, so
// late results from superseded fetches really do arrive.
type scriptedFetcher struct {
	calls chan *pendingCall
	done  chan struct{}
	once  sync.Once
}

func newScriptedFetcher(t *testing.T) *scriptedFetcher {
	t.Helper()
	f := &scriptedFetcher{
		calls: make(chan *pendingCall, 16),
		done:  make(chan struct{}),
	}
	t.Cleanup(f.release)
	return f
}

// release unblocks every unanswered call.
func (f *scriptedFetcher) release() {
	f.once.Do(func() { close(f.done) })
}

func (f *scriptedFetcher) LoadPage(ctx context.Context, page int, params Params) (Page[string], error) {
	call := &pendingCall{ctx: ctx, page: page, params: params, reply: make(chan fetchReply, 1)}
	f.calls <- call
	select {
	case r := <-call.reply:
		return r.page, r.err
	case <-f.done:
		return Page[string]{}, context.Canceled
	}
}

// next waits for the next LoadPage call.
func (f *scriptedFetcher) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

// expectNoCall fails if a LoadPage call arrives within a short window.
func (f *scriptedFetcher) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected fetch of page %d", call.page)
	case <-time.After(50 * time.Millisecond):
	}
}

// countingNotifier records session invalidation notifications.
type countingNotifier struct {
	calls chan struct{}
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{calls: make(chan struct{}, 16)}
}

func (n *countingNotifier) NotifySessionInvalidated() {
	n.calls <- struct{}{}
}

func (n *countingNotifier) count() int {
	return len(n.calls)
}

func pageOf(prefix string, n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return items
}

func newTestEngine(t *testing.T, f Fetcher[string], opts ...Option) *Engine[string] {
	t.Helper()
	opts = append([]Option{WithName("test"), WithLogger(zerolog.Nop())}, opts...)
	eng := New[string](f, opts...)
	t.Cleanup(func() {
		if sf, ok := f.(*scriptedFetcher); ok {
			sf.release()
		}
		eng.Close()
	})
	return eng
}
