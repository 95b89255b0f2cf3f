// Package viewport holds the map camera. A viewport is a value: every gesture
// produces a complete replacement, so readers never see a mix of old and new
// coordinates.
package viewport

// iconScale is the marker size per zoom level
const iconScale = 7.0

// Viewport is the map camera's centre and zoom level
type Viewport struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Zoom      float64 `json:"zoom" yaml:"zoom"`
}

// Default is the initial camera, centred on China
var Default = Viewport{Latitude: 34.3416, Longitude: 108.9398, Zoom: 4}

// Gesture is a pan or zoom event emitted by the map renderer. It always carries
// the full resulting viewport.
type Gesture struct {
	Viewport Viewport
}

// Apply returns the viewport carried by g. No field of the previous viewport
// survives and no range checks are made; out-of-range values are the renderer's
// concern.
func Apply(_ Viewport, g Gesture) Viewport {
	return g.Viewport
}

// Pan returns a new viewport moved by the given deltas in degrees
func (v Viewport) Pan(dLat, dLon float64) Viewport {
	return Viewport{
		Latitude:  v.Latitude + dLat,
		Longitude: v.Longitude + dLon,
		Zoom:      v.Zoom,
	}
}

// ZoomBy returns a new viewport with the zoom changed by delta, floored at 0
func (v Viewport) ZoomBy(delta float64) Viewport {
	zoom := v.Zoom + delta
	if zoom < 0 {
		zoom = 0
	}
	return Viewport{
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		Zoom:      zoom,
	}
}

// IconSize returns the marker size for a zoom level. It grows linearly with
// zoom and is the same for every marker at a given zoom.
func IconSize(zoom float64) float64 {
	return iconScale * zoom
}

// IconOffset returns the marker anchor offset so the pin's tip sits on its
// coordinates
func IconOffset(zoom float64) (left, top float64) {
	return -iconScale / 2 * zoom, -iconScale * zoom
}
