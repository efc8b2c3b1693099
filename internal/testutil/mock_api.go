// Package testutil provides a mock content API server for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Default rate limit headers sent with every mock response.
const (
	DefaultRemaining = "100"
	DefaultReset     = "60"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock content API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	queries           []url.Values
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.queries = append(mock.queries, r.URL.Query())
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		w.Header().Set("X-RateLimit-Remaining", DefaultRemaining)
		w.Header().Set("X-RateLimit-Reset", DefaultReset)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if exists {
			handler(w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(EnvelopeBody(404, "not found", nil)))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.CloseClientConnections()
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.queries = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if !sleep(r, resp.Delay) {
			return
		}
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// Queries returns the query strings of all requests in arrival order.
func (m *MockAPI) Queries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.queries))
	copy(out, m.queries)
	return out
}

// PagedList describes a list endpoint served page by page.
type PagedList struct {
	// Items is the full result set; it is sliced by the page and pageSize
	// query parameters.
	Items []any

	// PageSize is used when the request carries none.
	PageSize int

	// Delay is applied before every page.
	Delay time.Duration

	// PagesHeader sets X-Pages instead of the hasMore flag.
	PagesHeader bool

	// Overrides replaces the response for specific page numbers.
	Overrides map[int]MockResponse

	// Filter, when set, narrows Items by the request query.
	Filter func(item any, query url.Values) bool
}

// SetPagedList serves list as a paged endpoint in the standard envelope.
func (m *MockAPI) SetPagedList(path string, list PagedList) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if !sleep(r, list.Delay) {
			return
		}

		query := r.URL.Query()
		page, _ := strconv.Atoi(query.Get("page"))
		if page < 1 {
			page = 1
		}

		if override, ok := list.Overrides[page]; ok {
			if !sleep(r, override.Delay) {
				return
			}
			writeResponse(w, override)
			return
		}

		pageSize, _ := strconv.Atoi(query.Get("pageSize"))
		if pageSize < 1 {
			pageSize = list.PageSize
		}
		if pageSize < 1 {
			pageSize = 20
		}

		items := list.Items
		if list.Filter != nil {
			items = make([]any, 0, len(list.Items))
			for _, item := range list.Items {
				if list.Filter(item, query) {
					items = append(items, item)
				}
			}
		}

		start := (page - 1) * pageSize
		end := start + pageSize
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		pageItems := items[start:end]
		if pageItems == nil {
			pageItems = []any{}
		}

		totalPages := (len(items) + pageSize - 1) / pageSize
		data := map[string]any{
			"list":     pageItems,
			"page":     page,
			"pageSize": pageSize,
			"total":    len(items),
		}
		if list.PagesHeader {
			w.Header().Set("X-Pages", strconv.Itoa(totalPages))
		} else {
			data["hasMore"] = end < len(items)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(EnvelopeBody(0, "ok", data)))
	})
}

// EnvelopeBody renders a response envelope.
func EnvelopeBody(code int, msg string, data any) string {
	body, err := json.Marshal(map[string]any{
		"code": code,
		"msg":  msg,
		"data": data,
	})
	if err != nil {
		panic(err)
	}
	return string(body)
}

// NewBusinessErrorResponse creates a 200 response carrying a failure code.
func NewBusinessErrorResponse(code int, msg string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       EnvelopeBody(code, msg, nil),
	}
}

// NewSessionInvalidatedResponse creates a 401 response.
func NewSessionInvalidatedResponse(code int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       EnvelopeBody(code, "signed in on another device", nil),
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       EnvelopeBody(429, "rate limit exceeded", nil),
		Headers: map[string]string{
			"X-RateLimit-Remaining": "5",
			"X-RateLimit-Reset":     "30",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// sleep waits d unless the client goes away first.
func sleep(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-r.Context().Done():
		return false
	case <-timer.C:
		return true
	}
}
