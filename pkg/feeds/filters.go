package feeds

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/listpager/pkg/paging"
	"github.com/mitchellh/mapstructure"
)

// Sort orders accepted by the list endpoints.
const (
	SortLatest  = "latest"
	SortPopular = "popular"
	SortNearby  = "nearby"
)

// CityFilter scopes a list to a city.
type CityFilter struct {
	CityCode string `mapstructure:"city"`
	Sort     string `mapstructure:"sort"`
}

// SearchFilter is the search screen's query.
type SearchFilter struct {
	Keyword  string `mapstructure:"keyword"`
	CityCode string `mapstructure:"city"`
	Sort     string `mapstructure:"sort"`
}

// MerchantFilter narrows the merchant list.
type MerchantFilter struct {
	CityCode string `mapstructure:"city"`
	Category string `mapstructure:"category"`
	Sort     string `mapstructure:"sort"`
}

// StreetFilter scopes the street list to a city.
type StreetFilter struct {
	CityCode string `mapstructure:"city"`
}

// Params encodes the filter.
func (f CityFilter) Params() paging.Params { return encode(f) }

// Params encodes the filter with the keyword trimmed.
func (f SearchFilter) Params() paging.Params {
	f.Keyword = strings.TrimSpace(f.Keyword)
	return encode(f)
}

// Params encodes the filter.
func (f MerchantFilter) Params() paging.Params { return encode(f) }

// Params encodes the filter.
func (f StreetFilter) Params() paging.Params { return encode(f) }

// encode turns a filter struct into a parameter set, dropping empty fields.
func encode(filter any) paging.Params {
	var fields map[string]any
	if err := mapstructure.Decode(filter, &fields); err != nil {
		// Filters are flat string structs; decoding cannot fail.
		panic(fmt.Sprintf("feeds: encode %T: %v", filter, err))
	}

	params := paging.Params{}
	for k, v := range fields {
		s := fmt.Sprint(v)
		if s == "" {
			continue
		}
		params[k] = s
	}
	return params
}

// DecodeFilter fills filter (a pointer to one of the filter types) from a
// parameter set. Unknown keys are an error.
func DecodeFilter(params paging.Params, filter any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           filter,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(map[string]string(params)); err != nil {
		return fmt.Errorf("decode filter: %w", err)
	}
	return nil
}

// ValidSort reports whether sort is empty or a known order.
func ValidSort(sort string) bool {
	switch sort {
	case "", SortLatest, SortPopular, SortNearby:
		return true
	default:
		return false
	}
}

// searchParamsEqual treats keywords differing only in case or surrounding
// whitespace as the same search.
func searchParamsEqual(a, b paging.Params) bool {
	norm := func(p paging.Params) paging.Params {
		p = p.Clone()
		if p == nil {
			return paging.Params{}
		}
		if kw, ok := p["keyword"]; ok {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				delete(p, "keyword")
			} else {
				p["keyword"] = kw
			}
		}
		return p
	}
	return norm(a).Equal(norm(b))
}
