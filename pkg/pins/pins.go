// Package pins holds the client's authoritative list of persisted pins and
// derives the markers drawn for them
package pins

import (
	"errors"
	"fmt"

	"github.com/kass/go-pinmap/pkg/geo"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/rtree"
	"github.com/kass/go-pinmap/pkg/session"
	"github.com/kass/go-pinmap/pkg/viewport"
)

var (
	ErrAlreadyLoaded = errors.New("pins already loaded")
	ErrDuplicatePin  = errors.New("duplicate pin id")
)

// Color tells the renderer whose pin a marker belongs to
type Color string

const (
	ColorSelf  Color = "self"
	ColorOther Color = "other"
)

// Marker is the render projection of a pin
type Marker struct {
	ID       string
	Lat      float64
	Long     float64
	Color    Color
	IconSize float64
}

// Collection is an append-only list of pins in insertion order. It is owned
// by the interaction loop; only the spatial index is safe for concurrent reads.
type Collection struct {
	pins   []models.Pin
	byID   map[string]int
	index  *rtree.PinIndex
	loaded bool
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{
		byID:  make(map[string]int),
		index: rtree.NewPinIndex(),
	}
}

// Load populates the collection with the initial fetch. It may succeed only
// once. Pins appended before the fetch landed stay on top of the fetched
// ones, and fetched copies of them are skipped.
func (c *Collection) Load(pins []models.Pin) error {
	if c.loaded {
		return ErrAlreadyLoaded
	}
	c.loaded = true

	appended, seen := c.pins, c.byID
	c.pins = make([]models.Pin, 0, len(pins)+len(appended))
	c.byID = make(map[string]int, len(pins)+len(appended))
	c.index.Clear()

	for _, p := range pins {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		if _, ok := c.byID[p.ID]; ok {
			continue
		}
		c.add(p)
	}
	for _, p := range appended {
		c.add(p)
	}
	return nil
}

// Loaded reports whether the initial fetch has been applied
func (c *Collection) Loaded() bool {
	return c.loaded
}

// Append adds a newly created pin on top of the others
func (c *Collection) Append(pin models.Pin) error {
	if _, ok := c.byID[pin.ID]; ok {
		return fmt.Errorf("failed to append pin %s: %w", pin.ID, ErrDuplicatePin)
	}
	c.add(pin)
	return nil
}

func (c *Collection) add(p models.Pin) {
	seq := len(c.pins)
	c.pins = append(c.pins, p)
	c.byID[p.ID] = seq
	c.index.Insert(rtree.Entry{ID: p.ID, Location: p.Location(), Seq: seq})
}

// Get returns the pin with the given id
func (c *Collection) Get(id string) (models.Pin, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Pin{}, false
	}
	return c.pins[i], true
}

// Len returns the number of pins
func (c *Collection) Len() int {
	return len(c.pins)
}

// All returns a copy of the pins in insertion order
func (c *Collection) All() []models.Pin {
	out := make([]models.Pin, len(c.pins))
	copy(out, c.pins)
	return out
}

// Within returns the pins inside box in insertion order
func (c *Collection) Within(box models.BoundingBox) ([]models.Pin, error) {
	entries, err := c.index.QueryBox(box)
	if err != nil {
		return nil, fmt.Errorf("failed to query pins: %w", err)
	}
	return c.resolve(entries), nil
}

// Near returns the pins within radiusKm of center, nearest first
func (c *Collection) Near(center models.Location, radiusKm float64) []models.Pin {
	return c.resolve(c.index.QueryRadius(center, radiusKm))
}

// Nearest returns the closest pin to loc if it lies within maxKm
func (c *Collection) Nearest(loc models.Location, maxKm float64) (models.Pin, bool) {
	entries := c.index.Nearest(loc, 1)
	if len(entries) == 0 {
		return models.Pin{}, false
	}
	if geo.Distance(loc, entries[0].Location) > maxKm {
		return models.Pin{}, false
	}
	return c.Get(entries[0].ID)
}

// NearestN returns up to n pins closest to loc
func (c *Collection) NearestN(loc models.Location, n int) []models.Pin {
	return c.resolve(c.index.Nearest(loc, n))
}

func (c *Collection) resolve(entries []rtree.Entry) []models.Pin {
	out := make([]models.Pin, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.pins[e.Seq])
	}
	return out
}

// ProjectForRender derives one marker per pin. Pins owned by the session's
// user are coloured as self; with no session every pin is other.
func ProjectForRender(pins []models.Pin, vp viewport.Viewport, s *session.Session) []Marker {
	size := viewport.IconSize(vp.Zoom)

	markers := make([]Marker, len(pins))
	for i, p := range pins {
		color := ColorOther
		if s.Owns(p.Username) {
			color = ColorSelf
		}
		markers[i] = Marker{
			ID:       p.ID,
			Lat:      p.Lat,
			Long:     p.Long,
			Color:    color,
			IconSize: size,
		}
	}
	return markers
}
