package domain

import "time"

type Hotel struct {
	ID            string    `json:"_id" bson:"_id,omitempty"`
	OwnerID       string    `json:"userId" bson:"userId"`
	Name          string    `json:"name" bson:"name"`
	City          string    `json:"city" bson:"city"`
	Country       string    `json:"country" bson:"country"`
	Description   string    `json:"description" bson:"description"`
	Type          string    `json:"type" bson:"type"`
	AdultCount    int       `json:"adultCount" bson:"adultCount"`
	ChildrenCount int       `json:"childrenCount" bson:"childrenCount"`
	RoomCount     int       `json:"roomCount" bson:"roomCount"`
	Facilities    []string  `json:"facilities" bson:"facilities"`
	PricePerNight float64   `json:"pricePerNight" bson:"pricePerNight"`
	StarRating    int       `json:"starRating" bson:"starRating"`
	ImageURLs     []string  `json:"imageUrls" bson:"imageUrls"`
	LastUpdated   time.Time `json:"lastUpdated" bson:"lastUpdated"`
}

// SearchQuery mirrors the free-form search parameters. Zero values mean
// "no constraint" except Page, which is 1-based.
type SearchQuery struct {
	Destination   string
	AdultCount    int
	ChildrenCount int
	Facilities    []string
	Types         []string
	Stars         []int
	MaxPrice      float64
	SortOption    string // starRating | pricePerNightAsc | pricePerNightDesc
	Page          int
}

// PageSize is fixed; the frontend paginates in steps of five.
const PageSize = 5

type SearchPage struct {
	Data       []Hotel    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}
