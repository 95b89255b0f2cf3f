// Package editor manages the single pending-pin draft: the form a user fills
// in after double-clicking the map and before the pin is persisted.
package editor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/kass/go-pinmap/pkg/session"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoDraft          = errors.New("no draft in progress")
	ErrSubmitInFlight   = errors.New("submission already in flight")
	ErrUnknownField     = errors.New("unknown field")
)

// ValidationError reports draft input that cannot be submitted
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// Field names a form field of the draft
type Field string

const (
	FieldTitle  Field = "title"
	FieldDesc   Field = "desc"
	FieldRating Field = "rating"
)

// RatingOptions are the choices offered by the rating selector
var RatingOptions = []int{1, 2, 3, 4, 5}

// Image is a photo attached to a draft
type Image struct {
	Name string
	Data []byte
	MIME string
}

// Draft is a pin being composed. Its location is fixed when the draft begins.
type Draft struct {
	ID         uuid.UUID
	Lat        float64
	Long       float64
	Title      string
	Desc       string
	Rating     int // 0 means unset
	Image      *Image
	Submitting bool
	Err        error
}

// Submission is what gets sent to the pin service for a draft
type Submission struct {
	DraftID  uuid.UUID
	Username string
	Title    string
	Desc     string
	Rating   int
	Lat      float64
	Long     float64
	Image    Image
}

// Option configures an Editor
type Option func(*Editor)

// WithRequiredRating makes Submit reject drafts whose rating was never picked
func WithRequiredRating(required bool) Option {
	return func(e *Editor) {
		e.requireRating = required
	}
}

// Editor holds at most one draft. Its existence is what makes the editor
// popup visible.
type Editor struct {
	draft         *Draft
	requireRating bool
}

// New creates an editor with no draft
func New(opts ...Option) *Editor {
	e := &Editor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Draft returns the current draft, or nil
func (e *Editor) Draft() *Draft {
	return e.draft
}

// Active reports whether a draft exists
func (e *Editor) Active() bool {
	return e.draft != nil
}

// Begin starts a new blank draft at the given coordinates, silently
// discarding any previous one. It fails without a session.
func (e *Editor) Begin(s *session.Session, lat, long float64) (*Draft, error) {
	if s == nil {
		return nil, ErrNotAuthenticated
	}
	e.draft = &Draft{
		ID:   uuid.New(),
		Lat:  lat,
		Long: long,
	}
	return e.draft, nil
}

// UpdateField sets a form field. Values are only checked for shape here; the
// rating range is checked on submit.
func (e *Editor) UpdateField(name Field, value string) error {
	if e.draft == nil {
		return ErrNoDraft
	}

	switch name {
	case FieldTitle:
		e.draft.Title = value
	case FieldDesc:
		e.draft.Desc = value
	case FieldRating:
		rating, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return &ValidationError{Field: string(FieldRating), Reason: "rating is not a number"}
		}
		e.draft.Rating = rating
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// AttachImage replaces the draft's image. Blobs that do not sniff as an image
// are rejected and the previous image is kept.
func (e *Editor) AttachImage(img Image) error {
	if e.draft == nil {
		return ErrNoDraft
	}

	mt := mimetype.Detect(img.Data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return &ValidationError{Field: "image", Reason: "not an image: " + mt.String()}
	}
	img.MIME = mt.String()

	e.draft.Image = &img
	return nil
}

// Submit validates the draft and marks it in flight. While a submission is
// outstanding further calls fail with ErrSubmitInFlight.
func (e *Editor) Submit(s *session.Session) (Submission, error) {
	d := e.draft
	if d == nil {
		return Submission{}, ErrNoDraft
	}
	if d.Submitting {
		return Submission{}, ErrSubmitInFlight
	}
	if d.Image == nil {
		return Submission{}, &ValidationError{Field: "image", Reason: "missing image"}
	}
	if e.requireRating && !validRating(d.Rating) {
		return Submission{}, &ValidationError{Field: string(FieldRating), Reason: "missing rating"}
	}
	if d.Rating != 0 && !validRating(d.Rating) {
		return Submission{}, &ValidationError{Field: string(FieldRating), Reason: "rating out of range"}
	}
	if s == nil {
		return Submission{}, ErrNotAuthenticated
	}

	d.Submitting = true
	d.Err = nil

	return Submission{
		DraftID:  d.ID,
		Username: s.Username,
		Title:    d.Title,
		Desc:     d.Desc,
		Rating:   d.Rating,
		Lat:      d.Lat,
		Long:     d.Long,
		Image:    *d.Image,
	}, nil
}

// Resolve applies the outcome of the submission for draftID. It returns false
// when that draft no longer exists, so a late response never revives a
// cancelled or replaced draft. On success the draft is destroyed; on failure
// it is kept with the error so no input is lost.
func (e *Editor) Resolve(draftID uuid.UUID, err error) bool {
	if e.draft == nil || e.draft.ID != draftID {
		return false
	}
	if err != nil {
		e.draft.Submitting = false
		e.draft.Err = err
		return true
	}
	e.draft = nil
	return true
}

// Cancel destroys the draft, even one that is being submitted
func (e *Editor) Cancel() {
	e.draft = nil
}

func validRating(r int) bool {
	return r >= RatingOptions[0] && r <= RatingOptions[len(RatingOptions)-1]
}
