package controller

import (
	"github.com/google/uuid"
	"github.com/kass/go-pinmap/pkg/editor"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/viewport"
)

// Map gestures

type ViewportChangedMsg struct {
	Gesture viewport.Gesture
}

type MarkerClickedMsg struct {
	ID string
}

type MapDoubleClickedMsg struct {
	Lat  float64
	Long float64
}

type PopupClosedMsg struct {
	ID string
}

// Editor form events

type DraftClosedMsg struct{}

type FieldChangedMsg struct {
	Field editor.Field
	Value string
}

type ImageDroppedMsg struct {
	Image editor.Image
}

type SubmitMsg struct{}

// Account events

type LoginMsg struct {
	Username string
	Password string
}

type RegisterMsg struct {
	Username string
	Email    string
	Password string
}

type LogoutMsg struct{}

// Results of network commands. They are applied on the loop like any other
// event.

type PinsLoadedMsg struct {
	Pins []models.Pin
	Err  error
}

// PinCreatedMsg carries the id of the draft that was submitted, so a response
// for a draft that is gone can be told apart from the current one.
type PinCreatedMsg struct {
	DraftID uuid.UUID
	Pin     models.Pin
	Err     error
}

type LoginResultMsg struct {
	Username string
	Err      error
}

type RegisterResultMsg struct {
	Username string
	Err      error
}
