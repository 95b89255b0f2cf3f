// Package rtree implements an R-Tree index over pin locations, used to cull
// markers outside the viewport and to find the marker under the cursor
package rtree

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/go-pinmap/pkg/geo"
	"github.com/kass/go-pinmap/pkg/models"
)

const (
	tolerance   = 0.0001
	minChildren = 4
	maxChildren = 16
	dimensions  = 2
)

// Entry is an indexed pin: its id, location and insertion sequence
type Entry struct {
	ID       string
	Location models.Location
	Seq      int
}

// spatialPin wraps an entry to implement rtreego.Spatial interface
type spatialPin struct {
	Entry
	rect *rtreego.Rect
}

func (sp *spatialPin) Bounds() *rtreego.Rect {
	return sp.rect
}

// PinIndex is a thread-safe R-Tree index of pin locations
type PinIndex struct {
	tree      *rtreego.Rtree
	mu        sync.RWMutex
	itemCount atomic.Int64
}

// NewPinIndex creates an empty index
func NewPinIndex() *PinIndex {
	return &PinIndex{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// Insert adds a pin location to the index
func (g *PinIndex) Insert(e Entry) {
	p := rtreego.Point{e.Location.Lat, e.Location.Lon}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.tree.Insert(&spatialPin{Entry: e, rect: p.ToRect(tolerance)})
	g.itemCount.Add(1)
}

// QueryBox returns the entries inside the box ordered by insertion sequence
func (g *PinIndex) QueryBox(box models.BoundingBox) ([]Entry, error) {
	bottomLeft := rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon}
	rectSize := []float64{
		box.TopRight.Lat - box.BottomLeft.Lat,
		box.TopRight.Lon - box.BottomLeft.Lon,
	}

	bounds, err := rtreego.NewRect(bottomLeft, rectSize)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	g.mu.RLock()
	results := g.tree.SearchIntersect(bounds)
	g.mu.RUnlock()

	entries := make([]Entry, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialPin)
		if !ok {
			continue
		}
		// The tree matches on padded rects, so check the point itself
		if box.Contains(item.Location) {
			entries = append(entries, item.Entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	return entries, nil
}

// QueryRadius returns the entries within radiusKm of center, nearest first
func (g *PinIndex) QueryRadius(center models.Location, radiusKm float64) []Entry {
	type hit struct {
		entry    Entry
		distance float64
	}

	// Candidates come from the k nearest in degree space, then get filtered
	// by real distance
	candidates := g.Nearest(center, int(g.Count()))

	hits := make([]hit, 0, len(candidates))
	for _, e := range candidates {
		if d := geo.Distance(center, e.Location); d <= radiusKm {
			hits = append(hits, hit{entry: e, distance: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	entries := make([]Entry, len(hits))
	for i, h := range hits {
		entries[i] = h.entry
	}
	return entries
}

// Nearest returns up to n entries closest to center
func (g *PinIndex) Nearest(center models.Location, n int) []Entry {
	if n <= 0 {
		return nil
	}

	g.mu.RLock()
	results := g.tree.NearestNeighbors(n, rtreego.Point{center.Lat, center.Lon})
	g.mu.RUnlock()

	entries := make([]Entry, 0, len(results))
	for _, result := range results {
		if item, ok := result.(*spatialPin); ok {
			entries = append(entries, item.Entry)
		}
	}
	return entries
}

// Count returns the number of indexed pins
func (g *PinIndex) Count() int64 {
	return g.itemCount.Load()
}

// Clear removes all entries from the index
func (g *PinIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	g.itemCount.Store(0)
}
