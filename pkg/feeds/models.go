// Package feeds defines the list screens of the content app: their item
// models, filters and the endpoints backing them.
package feeds

import "time"

// Listing is a post shown on the home feed, city feed, search and favorites.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	CityCode    string    `json:"cityCode"`
	Category    string    `json:"category,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Likes       int       `json:"likes"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Merchant is a shop shown on the merchant list.
type Merchant struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	CityCode string  `json:"cityCode"`
	Category string  `json:"category"`
	Address  string  `json:"address,omitempty"`
	Rating   float64 `json:"rating"`
}

// Street is a shopping street shown on the street and favorite-street lists.
type Street struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CityCode    string `json:"cityCode"`
	Description string `json:"description,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
}

// CityRecord is an entry of a city's record list.
type CityRecord struct {
	ID         string    `json:"id"`
	CityCode   string    `json:"cityCode"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
