package paging

// MergeResult is the outcome of merging one page into the accumulated list.
type MergeResult[T any] struct {
	Items          []T
	NoMoreData     bool
	LastLoadedPage int
}

// MergePage applies the page merge policy: page 1 replaces the list, any
// later page is appended in order. The returned slice is always freshly
// allocated, so previously published lists are never written to.
// NoMoreData follows the page's last-page signal even when the page is empty.
func MergePage[T any](current []T, pageNum int, page Page[T]) MergeResult[T] {
	var items []T
	if pageNum <= 1 {
		items = make([]T, len(page.Items))
		copy(items, page.Items)
		pageNum = 1
	} else {
		items = make([]T, 0, len(current)+len(page.Items))
		items = append(items, current...)
		items = append(items, page.Items...)
	}

	return MergeResult[T]{
		Items:          items,
		NoMoreData:     page.IsLastPage,
		LastLoadedPage: pageNum,
	}
}
