// Package paging provides the paginated list engine shared by every list
// screen: home feed, city feed, search, favorites, favorite streets, street
// list, merchant list and city records.
//
// One Engine exists per screen instance. The screen issues intents
// (InitialLoad, Retry, Refresh, LoadMore, ParametersChanged) and observes
// immutable ListState snapshots. The engine keeps at most one fetch
// outstanding: starting a fetch cancels the previous one, and a result whose
// fetch is no longer current is discarded even if it arrives after the
// cancellation.
//
// Example usage:
//
//	eng := paging.New[feeds.Listing](source,
//		paging.WithName("search"),
//		paging.WithSessionNotifier(broadcaster),
//	)
//	defer eng.Close()
//
//	eng.InitialLoad()
//	for state := range eng.Subscribe(ctx) {
//		render(state)
//	}
//
// Intents are rejected without cancelling anything when:
//   - full-screen (InitialLoad, Retry): a full-screen fetch is in flight
//   - Refresh: a refresh is in flight
//   - LoadMore: a load-more is in flight, or the last page was reached
//
// ParametersChanged with a different filter set always supersedes the fetch
// in flight; with an equal set it does nothing.
//
// Page 1 results replace the list, later pages are appended. Failures set
// IsError with a message from the apierror classifier, except session
// invalidation, which is forwarded to the SessionNotifier instead.
package paging
