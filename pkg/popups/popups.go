// Package popups tracks which existing-pin popups are open. Any number may be
// open at once and each pin's state is independent of every other pin's.
package popups

// Visibility maps pin ids to open state. A missing id is closed; an id is
// only recorded once its marker has been clicked.
type Visibility struct {
	open  map[string]bool
	order []string
}

// New creates an empty visibility map
func New() *Visibility {
	return &Visibility{open: make(map[string]bool)}
}

// Toggle flips the popup for id and returns its new state
func (v *Visibility) Toggle(id string) bool {
	state, seen := v.open[id]
	if !seen {
		v.order = append(v.order, id)
	}
	v.open[id] = !state
	return !state
}

// Close forces the popup for id closed. Closing an id that was never clicked
// leaves the map untouched.
func (v *Visibility) Close(id string) {
	if _, seen := v.open[id]; seen {
		v.open[id] = false
	}
}

// IsOpen reports whether the popup for id is open
func (v *Visibility) IsOpen(id string) bool {
	return v.open[id]
}

// Known reports whether id has ever been clicked
func (v *Visibility) Known(id string) bool {
	_, seen := v.open[id]
	return seen
}

// OpenIDs returns the open ids in the order they were first clicked
func (v *Visibility) OpenIDs() []string {
	var ids []string
	for _, id := range v.order {
		if v.open[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
