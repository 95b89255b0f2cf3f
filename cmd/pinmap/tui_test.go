package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kass/go-pinmap/pkg/api"
	"github.com/kass/go-pinmap/pkg/controller"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/session"
	"github.com/kass/go-pinmap/pkg/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	pins    []models.Pin
	created []api.CreatePinRequest
}

func (f *fakeService) ListPins(ctx context.Context) ([]models.Pin, error) {
	return f.pins, nil
}

func (f *fakeService) CreatePin(ctx context.Context, req api.CreatePinRequest) (models.Pin, error) {
	f.created = append(f.created, req)
	return models.Pin{
		ID: "new", Username: req.Username, Title: req.Title, Desc: req.Desc,
		Rating: req.Rating, Lat: req.Lat, Long: req.Long, CreatedAt: time.Now(),
	}, nil
}

func (f *fakeService) Login(ctx context.Context, username, password string) (string, error) {
	return username, nil
}

func (f *fakeService) Register(ctx context.Context, username, email, password string) error {
	return nil
}

func (f *fakeService) ImageURL(p models.Pin) string {
	if p.Image == "" {
		return ""
	}
	return "http://localhost:8800/" + p.Image
}

type memStore map[string]string

func (m memStore) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memStore) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memStore) Delete(key string) error {
	delete(m, key)
	return nil
}

var samplePins = []models.Pin{
	{ID: "p1", Username: "bob", Title: "Bund", Desc: "River walk", Rating: 4, Lat: 31.24, Long: 121.49, Image: "images/p1.png", CreatedAt: time.Now().Add(-80 * time.Hour)},
	{ID: "p2", Username: "alice", Title: "West Lake", Rating: 5, Lat: 30.24, Long: 120.15, CreatedAt: time.Now()},
}

func newTestModel(t *testing.T, s *session.Session) (model, *fakeService) {
	t.Helper()
	svc := &fakeService{pins: samplePins}
	ctrl := controller.New(svc, session.NewManager(memStore{}), controller.WithSession(s))
	ctrl.Dispatch(ctrl.Init()())
	return newModel(ctrl, svc), svc
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// press sends a key and returns the updated model with the command it produced
func press(t *testing.T, m model, k string) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key(k))
	return next.(model), cmd
}

// deliver runs a controller command and feeds its result back
func deliver(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(model)
}

func TestEnterWhileLoggedOut(t *testing.T) {
	m, _ := newTestModel(t, nil)

	m, _ = press(t, m, "enter")

	st := m.ctrl.State()
	assert.Equal(t, modeMap, m.mode)
	assert.False(t, st.Editor.Active())
	assert.Equal(t, controller.LevelWarning, st.Notice.Level)
	assert.Contains(t, m.View(), "Log in to add a pin")
}

func TestLoginFlow(t *testing.T) {
	m, _ := newTestModel(t, nil)

	m, _ = press(t, m, "l")
	require.Equal(t, modeLogin, m.mode)

	m.login.inputs[0].SetValue("alice")
	m.login.inputs[1].SetValue("secret")
	m, _ = press(t, m, "enter")
	assert.Equal(t, 1, m.login.focus)

	m, cmd := press(t, m, "enter")
	assert.True(t, m.ctrl.State().Login.Pending)
	m = deliver(t, m, cmd)

	st := m.ctrl.State()
	assert.Equal(t, modeMap, m.mode)
	require.NotNil(t, st.Session)
	assert.Equal(t, "alice", st.Session.Username)
	assert.Empty(t, m.login.inputs[1].Value(), "form is reset after login")
}

func TestAddPinFlow(t *testing.T) {
	m, svc := newTestModel(t, &session.Session{Username: "alice"})

	m, _ = press(t, m, "enter")
	require.Equal(t, modeDraft, m.mode)
	require.True(t, m.ctrl.State().Editor.Active())

	m.draft.title.SetValue("Lake")
	m, _ = press(t, m, "tab")
	assert.Equal(t, draftDesc, m.draft.focus)
	assert.Equal(t, "Lake", m.ctrl.State().Editor.Draft().Title)

	path := filepath.Join(t.TempDir(), "lake.png")
	require.NoError(t, os.WriteFile(path, append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...), 0644))
	m.draft.rating.SetValue("4")
	m.draft.image.SetValue(path)

	m, cmd := press(t, m, "ctrl+s")
	require.Empty(t, m.formErr)
	assert.True(t, m.ctrl.State().Editor.Draft().Submitting)
	assert.Contains(t, m.View(), "Saving")

	m = deliver(t, m, cmd)
	require.Len(t, svc.created, 1)
	assert.Equal(t, "Lake", svc.created[0].Title)
	assert.Equal(t, 4, svc.created[0].Rating)
	assert.Equal(t, "lake.png", svc.created[0].ImageName)

	assert.Equal(t, modeMap, m.mode)
	assert.Equal(t, 3, m.ctrl.State().Pins.Len())
}

func TestDraftMissingImageFile(t *testing.T) {
	m, svc := newTestModel(t, &session.Session{Username: "alice"})

	m, _ = press(t, m, "enter")
	m.draft.image.SetValue(filepath.Join(t.TempDir(), "nope.png"))

	m, cmd := press(t, m, "ctrl+s")
	assert.Nil(t, cmd)
	assert.Contains(t, m.formErr, "cannot read image")
	assert.Empty(t, svc.created)
	assert.Equal(t, modeDraft, m.mode)
}

func TestDraftRejectedImageKeepsAttachment(t *testing.T) {
	m, _ := newTestModel(t, &session.Session{Username: "alice"})
	m, _ = press(t, m, "enter")

	good := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(good, append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...), 0644))
	m.draft.image.SetValue(good)
	m.commitField(draftImage)
	require.Equal(t, good, m.draft.attached)
	first := m.ctrl.State().Editor.Draft().Image

	bad := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(bad, []byte("just some notes"), 0644))
	m.draft.image.SetValue(bad)
	m.commitField(draftImage)

	assert.Equal(t, good, m.draft.attached)
	assert.Same(t, first, m.ctrl.State().Editor.Draft().Image)
	assert.Equal(t, controller.LevelError, m.ctrl.State().Notice.Level)
}

func TestDraftClearedRating(t *testing.T) {
	m, _ := newTestModel(t, &session.Session{Username: "alice"})
	m, _ = press(t, m, "enter")

	m.draft.rating.SetValue("4")
	m.commitField(draftRating)
	require.Equal(t, 4, m.ctrl.State().Editor.Draft().Rating)

	m.draft.rating.SetValue("")
	m.commitField(draftRating)
	assert.Zero(t, m.ctrl.State().Editor.Draft().Rating)
}

func TestDraftEscape(t *testing.T) {
	m, _ := newTestModel(t, &session.Session{Username: "alice"})

	m, _ = press(t, m, "enter")
	m, _ = press(t, m, "esc")

	assert.Equal(t, modeMap, m.mode)
	assert.False(t, m.ctrl.State().Editor.Active())
}

func TestMarkerToggle(t *testing.T) {
	m, _ := newTestModel(t, nil)
	centre := viewport.Viewport{Latitude: 31.24, Longitude: 121.49, Zoom: 6}
	m.ctrl.Update(controller.ViewportChangedMsg{Gesture: gesture(centre)})

	col, row, ok := m.screen.Project(centre, samplePins[0].Location())
	require.True(t, ok)
	m.cursorCol, m.cursorRow = col, row

	m, _ = press(t, m, "space")
	assert.True(t, m.ctrl.State().Popups.IsOpen("p1"))
	view := m.View()
	assert.Contains(t, view, "Bund")
	assert.Contains(t, view, "River walk")
	assert.Contains(t, view, "3 days ago")

	m, _ = press(t, m, "space")
	assert.False(t, m.ctrl.State().Popups.IsOpen("p1"))

	m, _ = press(t, m, "space")
	m, _ = press(t, m, "x")
	assert.Empty(t, m.ctrl.State().Popups.OpenIDs())
}

func TestPanAndZoom(t *testing.T) {
	m, _ := newTestModel(t, nil)
	start := m.ctrl.State().Viewport

	m, _ = press(t, m, "+")
	assert.Equal(t, start.Zoom+1, m.ctrl.State().Viewport.Zoom)

	m, _ = press(t, m, "-")
	m, _ = press(t, m, "-")
	assert.Equal(t, start.Zoom-1, m.ctrl.State().Viewport.Zoom)

	col := m.cursorCol
	m, _ = press(t, m, "L")
	vp := m.ctrl.State().Viewport
	assert.Greater(t, vp.Longitude, start.Longitude)
	assert.InDelta(t, start.Latitude, vp.Latitude, 1e-6)
	assert.Equal(t, col-m.screen.Width/4, m.cursorCol)
}

func TestCursorStaysOnScreen(t *testing.T) {
	m, _ := newTestModel(t, nil)
	for i := 0; i < m.screen.Width+5; i++ {
		m, _ = press(t, m, "right")
	}
	assert.Equal(t, m.screen.Width-1, m.cursorCol)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(model)
	assert.Less(t, m.cursorCol, m.screen.Width)
	assert.Less(t, m.cursorRow, m.screen.Height)
}

func TestHelpOverlay(t *testing.T) {
	m, _ := newTestModel(t, nil)

	m, _ = press(t, m, "?")
	assert.Equal(t, modeHelp, m.mode)
	assert.Contains(t, m.View(), "How it works")

	m, _ = press(t, m, "z")
	assert.Equal(t, modeMap, m.mode)
}

func TestViewRendersMap(t *testing.T) {
	m, _ := newTestModel(t, &session.Session{Username: "alice"})

	view := m.View()
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "2 pins")
	assert.Equal(t, m.screen.Height+2+statusLines, strings.Count(view, "\n")+1)
}

func TestMarkerGlyph(t *testing.T) {
	assert.Equal(t, "•", markerGlyph(viewport.IconSize(2)))
	assert.Equal(t, "●", markerGlyph(viewport.IconSize(4)))
	assert.Equal(t, "▼", markerGlyph(viewport.IconSize(12)))
}

func TestGraticuleStep(t *testing.T) {
	assert.Equal(t, 30.0, graticuleStep(0))
	assert.Equal(t, 5.0, graticuleStep(4))
	assert.Equal(t, 0.01, graticuleStep(40))
}
