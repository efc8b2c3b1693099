package client

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// HeaderPages carries the total page count when the API reports it.
const HeaderPages = "X-Pages"

// Envelope is the wrapper around every API response body.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// hasData reports whether the envelope carries a non-null data member.
func (e Envelope) hasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// PageData is the data member of a paged response. List is left raw so the
// caller can decode it into its own item type.
type PageData struct {
	List     json.RawMessage `json:"list"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	Total    int             `json:"total"`

	// HasMore is nil when the server omitted the flag.
	HasMore *bool `json:"hasMore"`
}

// PageResponse is a decoded page together with transport metadata.
type PageResponse struct {
	PageData

	// TotalPages is the X-Pages header value, or 0 when absent.
	TotalPages int
}

func parsePagesHeader(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
