// Package geo provides the projection math used to draw the map on a
// character grid, plus great-circle distances for marker hit testing.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/viewport"
)

const (
	earthRadius = 6371.0 // km
	tileSize    = 256.0
	// A terminal cell is roughly twice as tall as it is wide.
	cellWidth   = 4.0
	cellHeight  = 8.0
	maxLatitude = 85.05112878
)

// Screen is the character grid the map is drawn on
type Screen struct {
	Width  int
	Height int
}

// Project returns the cell that loc falls into for the given viewport.
// ok is false when the cell is off screen.
func (s Screen) Project(vp viewport.Viewport, loc models.Location) (col, row int, ok bool) {
	cx, cy := mercator(vp.Latitude, vp.Longitude, vp.Zoom)
	px, py := mercator(loc.Lat, loc.Lon, vp.Zoom)

	col = int(math.Floor((px-cx)/cellWidth + float64(s.Width)/2))
	row = int(math.Floor((py-cy)/cellHeight + float64(s.Height)/2))
	ok = col >= 0 && col < s.Width && row >= 0 && row < s.Height
	return col, row, ok
}

// Unproject returns the geographic location at the centre of a cell
func (s Screen) Unproject(vp viewport.Viewport, col, row int) models.Location {
	return s.at(vp, float64(col)+0.5, float64(row)+0.5)
}

// Bounds returns the area of the map visible on the screen
func (s Screen) Bounds(vp viewport.Viewport) models.BoundingBox {
	topLeft := s.at(vp, 0, 0)
	bottomRight := s.at(vp, float64(s.Width), float64(s.Height))
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: bottomRight.Lat, Lon: topLeft.Lon},
		TopRight:   models.Location{Lat: topLeft.Lat, Lon: bottomRight.Lon},
	}
}

// PanCells returns a new viewport whose centre is moved by whole cells
func (s Screen) PanCells(vp viewport.Viewport, dCols, dRows int) viewport.Viewport {
	centre := s.at(vp, float64(s.Width)/2+float64(dCols), float64(s.Height)/2+float64(dRows))
	return viewport.Viewport{
		Latitude:  centre.Lat,
		Longitude: centre.Lon,
		Zoom:      vp.Zoom,
	}
}

func (s Screen) at(vp viewport.Viewport, fx, fy float64) models.Location {
	cx, cy := mercator(vp.Latitude, vp.Longitude, vp.Zoom)
	px := cx + (fx-float64(s.Width)/2)*cellWidth
	py := cy + (fy-float64(s.Height)/2)*cellHeight
	return inverseMercator(px, py, vp.Zoom)
}

func worldSize(zoom float64) float64 {
	return tileSize * math.Pow(2, zoom)
}

// mercator converts degrees to Web Mercator pixel coordinates at a zoom level
func mercator(lat, lon, zoom float64) (x, y float64) {
	lat = math.Max(-maxLatitude, math.Min(maxLatitude, lat))
	size := worldSize(zoom)
	sin := math.Sin(lat * math.Pi / 180)

	x = (lon + 180) / 360 * size
	y = (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * size
	return x, y
}

func inverseMercator(x, y, zoom float64) models.Location {
	size := worldSize(zoom)
	lon := x/size*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y/size))) * 180 / math.Pi
	return models.Location{Lat: lat, Lon: lon}
}

// Distance returns the great-circle distance between two locations in kilometers
func Distance(a, b models.Location) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadius
}

// CellRadiusKm approximates the ground distance covered by one cell at the
// viewport's centre, used as the hit radius when clicking markers
func (s Screen) CellRadiusKm(vp viewport.Viewport) float64 {
	centre := s.at(vp, float64(s.Width)/2, float64(s.Height)/2)
	corner := s.at(vp, float64(s.Width)/2+1, float64(s.Height)/2+1)
	return Distance(centre, corner)
}
