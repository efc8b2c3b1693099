package feeds

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sternrassler/listpager/pkg/pagination"
	"github.com/Sternrassler/listpager/pkg/paging"
)

// Screen names.
const (
	ScreenHome            = "home"
	ScreenCity            = "city"
	ScreenSearch          = "search"
	ScreenFavorites       = "favorites"
	ScreenFavoriteStreets = "favorite_streets"
	ScreenStreets         = "streets"
	ScreenMerchants       = "merchants"
	ScreenCityRecords     = "city_records"
)

// Endpoints backing each screen.
const (
	EndpointHome            = "/v1/feed/home"
	EndpointCity            = "/v1/feed/city"
	EndpointSearch          = "/v1/search"
	EndpointFavorites       = "/v1/me/favorites"
	EndpointFavoriteStreets = "/v1/me/favorite-streets"
	EndpointStreets         = "/v1/streets"
	EndpointMerchants       = "/v1/merchants"
	EndpointCityRecords     = "/v1/cities/records"
)

// Deps are the collaborators every screen engine is built from.
type Deps struct {
	// Getter fetches pages, normally a *client.Client.
	Getter pagination.PageGetter

	// Source configures page size and per-page timeout.
	Source pagination.Config

	// Options are applied to every engine, e.g. the session notifier.
	Options []paging.Option
}

func (d Deps) source() pagination.Config {
	if d.Source == (pagination.Config{}) {
		return pagination.DefaultConfig()
	}
	return d.Source
}

func newEngine[T any](d Deps, name, endpoint string, params paging.Params, extra ...paging.Option) *paging.Engine[T] {
	src := pagination.NewSource[T](d.Getter, endpoint, d.source())
	opts := make([]paging.Option, 0, len(extra)+len(d.Options)+2)
	opts = append(opts, extra...)
	opts = append(opts, d.Options...)
	opts = append(opts, paging.WithName(name), paging.WithInitialParams(params))
	return paging.New[T](src, opts...)
}

// NewHomeFeed creates the home feed, optionally scoped to a city.
func NewHomeFeed(d Deps, filter CityFilter) *paging.Engine[Listing] {
	return newEngine[Listing](d, ScreenHome, EndpointHome, filter.Params())
}

// NewCityFeed creates the feed of one city.
func NewCityFeed(d Deps, filter CityFilter) *paging.Engine[Listing] {
	return newEngine[Listing](d, ScreenCity, EndpointCity, filter.Params())
}

// NewSearch creates the search screen. Keywords differing only in case or
// surrounding whitespace do not start a new search.
func NewSearch(d Deps, filter SearchFilter) *paging.Engine[Listing] {
	return newEngine[Listing](d, ScreenSearch, EndpointSearch, filter.Params(),
		paging.WithParamsEqual(searchParamsEqual))
}

// NewFavorites creates the signed-in user's favorite listings.
func NewFavorites(d Deps) *paging.Engine[Listing] {
	return newEngine[Listing](d, ScreenFavorites, EndpointFavorites, nil)
}

// NewFavoriteStreets creates the signed-in user's favorite streets.
func NewFavoriteStreets(d Deps) *paging.Engine[Street] {
	return newEngine[Street](d, ScreenFavoriteStreets, EndpointFavoriteStreets, nil)
}

// NewStreets creates the street list of a city.
func NewStreets(d Deps, filter StreetFilter) *paging.Engine[Street] {
	return newEngine[Street](d, ScreenStreets, EndpointStreets, filter.Params())
}

// NewMerchants creates the merchant list.
func NewMerchants(d Deps, filter MerchantFilter) *paging.Engine[Merchant] {
	return newEngine[Merchant](d, ScreenMerchants, EndpointMerchants, filter.Params())
}

// NewCityRecords creates the record list of a city.
func NewCityRecords(d Deps, filter CityFilter) *paging.Engine[CityRecord] {
	return newEngine[CityRecord](d, ScreenCityRecords, EndpointCityRecords, filter.Params())
}

// Selection is the union of filter values a caller may pick. Each screen
// keeps the fields it understands.
type Selection struct {
	CityCode string
	Keyword  string
	Category string
	Sort     string
}

// Validate rejects values no screen accepts.
func (s Selection) Validate() error {
	if !ValidSort(s.Sort) {
		return fmt.Errorf("unknown sort %q (want %s, %s or %s)", s.Sort, SortLatest, SortPopular, SortNearby)
	}
	return nil
}

// Screen describes one list screen.
type Screen struct {
	Name     string
	Endpoint string

	// Params encodes the part of a selection this screen uses.
	Params func(Selection) paging.Params

	// New creates the screen's engine.
	New func(Deps, Selection) paging.Controller

	export exportFunc
}

type exportFunc func(context.Context, Deps, paging.Params, pagination.BatchConfig) (any, error)

func exportAll[T any](endpoint string) exportFunc {
	return func(ctx context.Context, d Deps, params paging.Params, cfg pagination.BatchConfig) (any, error) {
		src := pagination.NewSource[T](d.Getter, endpoint, d.source())
		items, err := pagination.FetchAll(ctx, src, params, cfg)
		if items == nil {
			return nil, err
		}
		return items, err
	}
}

func noParams(Selection) paging.Params { return nil }

var screens = map[string]Screen{
	ScreenHome: {
		Name: ScreenHome, Endpoint: EndpointHome,
		export: exportAll[Listing](EndpointHome),
		Params: func(s Selection) paging.Params { return CityFilter{CityCode: s.CityCode, Sort: s.Sort}.Params() },
		New: func(d Deps, s Selection) paging.Controller {
			return NewHomeFeed(d, CityFilter{CityCode: s.CityCode, Sort: s.Sort})
		},
	},
	ScreenCity: {
		Name: ScreenCity, Endpoint: EndpointCity,
		export: exportAll[Listing](EndpointCity),
		Params: func(s Selection) paging.Params { return CityFilter{CityCode: s.CityCode, Sort: s.Sort}.Params() },
		New: func(d Deps, s Selection) paging.Controller {
			return NewCityFeed(d, CityFilter{CityCode: s.CityCode, Sort: s.Sort})
		},
	},
	ScreenSearch: {
		Name: ScreenSearch, Endpoint: EndpointSearch,
		export: exportAll[Listing](EndpointSearch),
		Params: func(s Selection) paging.Params {
			return SearchFilter{Keyword: s.Keyword, CityCode: s.CityCode, Sort: s.Sort}.Params()
		},
		New: func(d Deps, s Selection) paging.Controller {
			return NewSearch(d, SearchFilter{Keyword: s.Keyword, CityCode: s.CityCode, Sort: s.Sort})
		},
	},
	ScreenFavorites: {
		Name: ScreenFavorites, Endpoint: EndpointFavorites,
		export: exportAll[Listing](EndpointFavorites),
		Params: noParams,
		New:    func(d Deps, _ Selection) paging.Controller { return NewFavorites(d) },
	},
	ScreenFavoriteStreets: {
		Name: ScreenFavoriteStreets, Endpoint: EndpointFavoriteStreets,
		export: exportAll[Street](EndpointFavoriteStreets),
		Params: noParams,
		New:    func(d Deps, _ Selection) paging.Controller { return NewFavoriteStreets(d) },
	},
	ScreenStreets: {
		Name: ScreenStreets, Endpoint: EndpointStreets,
		export: exportAll[Street](EndpointStreets),
		Params: func(s Selection) paging.Params { return StreetFilter{CityCode: s.CityCode}.Params() },
		New: func(d Deps, s Selection) paging.Controller {
			return NewStreets(d, StreetFilter{CityCode: s.CityCode})
		},
	},
	ScreenMerchants: {
		Name: ScreenMerchants, Endpoint: EndpointMerchants,
		export: exportAll[Merchant](EndpointMerchants),
		Params: func(s Selection) paging.Params {
			return MerchantFilter{CityCode: s.CityCode, Category: s.Category, Sort: s.Sort}.Params()
		},
		New: func(d Deps, s Selection) paging.Controller {
			return NewMerchants(d, MerchantFilter{CityCode: s.CityCode, Category: s.Category, Sort: s.Sort})
		},
	},
	ScreenCityRecords: {
		Name: ScreenCityRecords, Endpoint: EndpointCityRecords,
		export: exportAll[CityRecord](EndpointCityRecords),
		Params: func(s Selection) paging.Params { return CityFilter{CityCode: s.CityCode, Sort: s.Sort}.Params() },
		New: func(d Deps, s Selection) paging.Controller {
			return NewCityRecords(d, CityFilter{CityCode: s.CityCode, Sort: s.Sort})
		},
	},
}

// Lookup returns the screen named name.
func Lookup(name string) (Screen, bool) {
	s, ok := screens[name]
	return s, ok
}

// Names returns all screen names in sorted order.
func Names() []string {
	names := make([]string, 0, len(screens))
	for name := range screens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewController creates the named screen's engine.
func NewController(name string, d Deps, sel Selection) (paging.Controller, error) {
	screen, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown screen %q", name)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return screen.New(d, sel), nil
}

// Export fetches every page of the named screen outside any engine. On
// failure the items fetched so far are returned with the error.
func Export(ctx context.Context, name string, d Deps, sel Selection, cfg pagination.BatchConfig) (any, error) {
	screen, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown screen %q", name)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return screen.export(ctx, d, screen.Params(sel), cfg)
}
