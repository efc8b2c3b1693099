package pagination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, to int) []int {
	out := []int{}
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestFetchAll(t *testing.T) {
	tests := []struct {
		name      string
		getter    *fakeGetter
		pageSize  int
		maxPages  int
		wantIDs   []int
		wantCalls int
	}{
		{name: "single page", getter: &fakeGetter{total: 3}, pageSize: 5, wantIDs: seq(1, 3), wantCalls: 1},
		{name: "sequential with hasMore", getter: &fakeGetter{total: 12}, pageSize: 5, wantIDs: seq(1, 12), wantCalls: 3},
		{name: "parallel with pages header", getter: &fakeGetter{total: 23, pagesHdr: true}, pageSize: 5, wantIDs: seq(1, 23), wantCalls: 5},
		{name: "sequential capped", getter: &fakeGetter{total: 50}, pageSize: 5, maxPages: 2, wantIDs: seq(1, 10), wantCalls: 2},
		{name: "parallel capped", getter: &fakeGetter{total: 50, pagesHdr: true}, pageSize: 5, maxPages: 3, wantIDs: seq(1, 15), wantCalls: 3},
		{name: "short page ends without signals", getter: &fakeGetter{total: 7, omitMore: true}, pageSize: 5, wantIDs: seq(1, 7), wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewSource[item](tt.getter, "/v1/list", Config{PageSize: tt.pageSize})
			items, err := FetchAll(context.Background(), src, nil, BatchConfig{MaxConcurrency: 3, MaxPages: tt.maxPages})
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(items), "items are returned in page order")
			assert.Equal(t, tt.wantCalls, tt.getter.callCount())
		})
	}
}

func TestFetchAll_PartialOnFailure(t *testing.T) {
	sentinel := errors.New("page unavailable")
	getter := &fakeGetter{total: 30, pagesHdr: true, failPage: 4, failErr: sentinel, failDelay: 30 * time.Millisecond}
	src := NewSource[item](getter, "/v1/list", Config{PageSize: 5})

	items, err := FetchAll(context.Background(), src, nil, BatchConfig{MaxConcurrency: 2})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, seq(1, 15), ids(items), "pages before the failed one are kept")
}

func TestFetchAll_SequentialFailure(t *testing.T) {
	sentinel := errors.New("page unavailable")
	getter := &fakeGetter{total: 30, failPage: 2, failErr: sentinel}
	src := NewSource[item](getter, "/v1/list", Config{PageSize: 5})

	items, err := FetchAll(context.Background(), src, nil, DefaultBatchConfig())
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, seq(1, 5), ids(items))
}

func TestFetchAll_ContextCancelled(t *testing.T) {
	getter := &fakeGetter{total: 30, pagesHdr: true, delay: 50 * time.Millisecond}
	src := NewSource[item](getter, "/v1/list", Config{PageSize: 5})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := FetchAll(ctx, src, nil, BatchConfig{MaxConcurrency: 1})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
