// Package pagination adapts paged content API endpoints to list engines.
//
// A Source decodes one endpoint's pages into a concrete item type and
// implements paging.Fetcher, so it can back any list screen:
//
//	src := pagination.NewSource[feeds.Listing](apiClient, "/v1/feed/home", pagination.DefaultConfig())
//	eng := paging.New[feeds.Listing](src, paging.WithName("home"))
//
// The last page is detected from the envelope's hasMore flag, then the
// X-Pages header, and finally from a page shorter than the page size.
//
// FetchAll reads a whole endpoint outside any screen, for exports. When the
// server reports X-Pages the remaining pages are spread over a worker pool:
//
//	items, err := pagination.FetchAll(ctx, src, params, pagination.DefaultBatchConfig())
package pagination
