package models

import "time"

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Pin is a persisted annotation as served by the pin service.
// Pins are never modified once the client has seen them.
type Pin struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Desc      string    `json:"desc"`
	Rating    int       `json:"rating"`
	Lat       float64   `json:"lat"`
	Long      float64   `json:"long"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Location returns the pin's coordinates
func (p Pin) Location() Location {
	return Location{Lat: p.Lat, Lon: p.Long}
}
