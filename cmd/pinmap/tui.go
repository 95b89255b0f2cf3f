package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kass/go-pinmap/pkg/controller"
	"github.com/kass/go-pinmap/pkg/editor"
	"github.com/kass/go-pinmap/pkg/geo"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/viewport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Open the interactive map",
	Long: `Browse pins on a terminal map. Log in first, then press enter on a spot to
add a pin there. Press ? inside the map for the key bindings.`,
	Args: cobra.NoArgs,
	RunE: runWithApp(true, runMap),
}

func runMap(a *app, cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdout) {
		return errors.New("map needs an interactive terminal, try the pins command instead")
	}

	ctrl, err := a.controller()
	if err != nil {
		return err
	}
	a.logger.Info("map opened",
		zap.String("style", a.cfg.Map.Style),
		zap.Bool("access_token", a.cfg.Map.AccessToken != ""),
		zap.Any("viewport", a.cfg.Viewport()))

	p := tea.NewProgram(newModel(ctrl, a.client), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

type mode int

const (
	modeMap mode = iota
	modeDraft
	modeLogin
	modeRegister
	modeHelp
)

const (
	panelWidth  = 40
	statusLines = 2
)

// imageResolver turns a pin's stored image path into a full URL
type imageResolver interface {
	ImageURL(pin models.Pin) string
}

const (
	draftTitle = iota
	draftDesc
	draftRating
	draftImage
	draftFields
)

type draftForm struct {
	title    textinput.Model
	desc     textarea.Model
	rating   textinput.Model
	image    textinput.Model
	focus    int
	attached string
}

func newDraftForm() draftForm {
	title := textinput.New()
	title.Placeholder = "Enter a title"
	title.CharLimit = 80

	desc := textarea.New()
	desc.Placeholder = "Say something about this place"
	desc.ShowLineNumbers = false
	desc.SetWidth(panelWidth - 4)
	desc.SetHeight(3)

	rating := textinput.New()
	rating.Placeholder = "1-5"
	rating.CharLimit = 1

	image := textinput.New()
	image.Placeholder = "path/to/photo.jpg"

	f := draftForm{title: title, desc: desc, rating: rating, image: image}
	f.setFocus(draftTitle)
	return f
}

func (f *draftForm) setFocus(i int) tea.Cmd {
	f.title.Blur()
	f.desc.Blur()
	f.rating.Blur()
	f.image.Blur()

	f.focus = (i + draftFields) % draftFields
	switch f.focus {
	case draftTitle:
		return f.title.Focus()
	case draftDesc:
		return f.desc.Focus()
	case draftRating:
		return f.rating.Focus()
	default:
		return f.image.Focus()
	}
}

// accountForm is a list of single-line inputs; the last one submits
type accountForm struct {
	inputs []textinput.Model
	focus  int
}

func newAccountForm(fields ...string) accountForm {
	f := accountForm{inputs: make([]textinput.Model, len(fields))}
	for i, name := range fields {
		in := textinput.New()
		in.Placeholder = name
		in.CharLimit = 64
		if name == "password" {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.inputs[i] = in
	}
	f.setFocus(0)
	return f
}

func (f *accountForm) setFocus(i int) tea.Cmd {
	n := len(f.inputs)
	f.focus = (i + n) % n
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

func (f *accountForm) last() bool {
	return f.focus == len(f.inputs)-1
}

func (f *accountForm) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

func (f *accountForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

type model struct {
	ctrl   *controller.Controller
	images imageResolver

	mode      mode
	screen    geo.Screen
	cursorCol int
	cursorRow int
	sized     bool

	spinner  spinner.Model
	draft    draftForm
	login    accountForm
	register accountForm
	formErr  string

	width  int
	height int
}

func newModel(ctrl *controller.Controller, images imageResolver) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	m := model{
		ctrl:     ctrl,
		images:   images,
		spinner:  s,
		draft:    newDraftForm(),
		login:    newAccountForm("username", "password"),
		register: newAccountForm("username", "email", "password"),
		width:    100,
		height:   30,
	}
	m.resize(m.width, m.height)
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.ctrl.Init(),
	)
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	m.screen = geo.Screen{
		Width:  max(width-panelWidth-2, 10),
		Height: max(height-statusLines-2, 5),
	}
	if !m.sized {
		m.cursorCol = m.screen.Width / 2
		m.cursorRow = m.screen.Height / 2
		m.sized = true
	}
	m.cursorCol = min(m.cursorCol, m.screen.Width-1)
	m.cursorRow = min(m.cursorRow, m.screen.Height-1)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeDraft:
			return m.updateDraft(msg)
		case modeLogin:
			return m.updateLogin(msg)
		case modeRegister:
			return m.updateRegister(msg)
		case modeHelp:
			m.mode = modeMap
			return m, nil
		default:
			return m.updateMap(msg)
		}
	}

	// Results of network commands
	cmd := m.send(msg)
	return m, cmd
}

// send hands msg to the controller and follows any state change that
// affects the current mode
func (m *model) send(msg tea.Msg) tea.Cmd {
	cmd := m.ctrl.Update(msg)

	st := m.ctrl.State()
	switch m.mode {
	case modeDraft:
		if !st.Editor.Active() {
			m.mode = modeMap
		}
	case modeLogin:
		if st.Session != nil && st.Login.Success {
			m.login = newAccountForm("username", "password")
			m.mode = modeMap
		}
	case modeRegister:
		if st.Register.Success {
			m.register = newAccountForm("username", "email", "password")
		}
	}
	return cmd
}

func (m model) updateMap(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.ctrl.State()
	vp := st.Viewport

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.mode = modeHelp
	case "up":
		m.cursorRow = max(m.cursorRow-1, 0)
	case "down":
		m.cursorRow = min(m.cursorRow+1, m.screen.Height-1)
	case "left":
		m.cursorCol = max(m.cursorCol-1, 0)
	case "right":
		m.cursorCol = min(m.cursorCol+1, m.screen.Width-1)
	case "c":
		m.cursorCol, m.cursorRow = m.screen.Width/2, m.screen.Height/2
	case "H":
		return m, m.pan(vp, -m.screen.Width/4, 0)
	case "L":
		return m, m.pan(vp, m.screen.Width/4, 0)
	case "K":
		return m, m.pan(vp, 0, -m.screen.Height/4)
	case "J":
		return m, m.pan(vp, 0, m.screen.Height/4)
	case "+", "=":
		return m, m.send(controller.ViewportChangedMsg{Gesture: gesture(vp.ZoomBy(1))})
	case "-":
		return m, m.send(controller.ViewportChangedMsg{Gesture: gesture(vp.ZoomBy(-1))})
	case " ", "space":
		if id, ok := m.markerAtCursor(); ok {
			return m, m.send(controller.MarkerClickedMsg{ID: id})
		}
	case "x":
		if open := st.Popups.OpenIDs(); len(open) > 0 {
			return m, m.send(controller.PopupClosedMsg{ID: open[len(open)-1]})
		}
	case "enter":
		loc := m.screen.Unproject(vp, m.cursorCol, m.cursorRow)
		cmd := m.send(controller.MapDoubleClickedMsg{Lat: loc.Lat, Long: loc.Lon})
		if m.ctrl.State().Editor.Active() {
			m.draft = newDraftForm()
			m.formErr = ""
			m.mode = modeDraft
		}
		return m, cmd
	case "l":
		if st.Session == nil {
			m.formErr = ""
			m.mode = modeLogin
			return m, m.login.setFocus(0)
		}
	case "r":
		if st.Session == nil {
			m.formErr = ""
			m.mode = modeRegister
			return m, m.register.setFocus(0)
		}
	case "o":
		return m, m.send(controller.LogoutMsg{})
	case "e":
		if st.Editor.Active() {
			m.mode = modeDraft
		}
	}
	return m, nil
}

// pan moves the map centre and keeps the cursor over the same place
func (m *model) pan(vp viewport.Viewport, dCols, dRows int) tea.Cmd {
	next := m.screen.PanCells(vp, dCols, dRows)
	m.cursorCol = clamp(m.cursorCol-dCols, 0, m.screen.Width-1)
	m.cursorRow = clamp(m.cursorRow-dRows, 0, m.screen.Height-1)
	return m.send(controller.ViewportChangedMsg{Gesture: gesture(next)})
}

// markerAtCursor finds the topmost marker drawn in the cursor cell, falling
// back to the nearest pin within one cell
func (m model) markerAtCursor() (string, bool) {
	st := m.ctrl.State()
	vp := st.Viewport

	markers, err := m.ctrl.MarkersWithin(m.screen.Bounds(vp))
	if err == nil {
		for i := len(markers) - 1; i >= 0; i-- {
			mk := markers[i]
			col, row, ok := m.screen.Project(vp, models.Location{Lat: mk.Lat, Lon: mk.Long})
			if ok && col == m.cursorCol && row == m.cursorRow {
				return mk.ID, true
			}
		}
	}

	loc := m.screen.Unproject(vp, m.cursorCol, m.cursorRow)
	pin, ok := st.Pins.Nearest(loc, m.screen.CellRadiusKm(vp))
	if !ok {
		return "", false
	}
	return pin.ID, true
}

func (m model) updateDraft(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeMap
		return m, m.send(controller.DraftClosedMsg{})
	case "tab", "shift+tab":
		m.commitField(m.draft.focus)
		delta := 1
		if msg.String() == "shift+tab" {
			delta = -1
		}
		return m, m.draft.setFocus(m.draft.focus + delta)
	case "ctrl+s":
		m.commitField(draftRating)
		m.commitField(draftImage)
		if m.formErr != "" {
			return m, nil
		}
		return m, m.send(controller.SubmitMsg{})
	case "enter":
		if m.draft.focus != draftDesc {
			m.commitField(m.draft.focus)
			if m.draft.focus == draftImage {
				return m, nil
			}
			return m, m.draft.setFocus(m.draft.focus + 1)
		}
	}

	var cmd tea.Cmd
	switch m.draft.focus {
	case draftTitle:
		m.draft.title, cmd = m.draft.title.Update(msg)
		m.commitField(draftTitle)
	case draftDesc:
		m.draft.desc, cmd = m.draft.desc.Update(msg)
		m.commitField(draftDesc)
	case draftRating:
		m.draft.rating, cmd = m.draft.rating.Update(msg)
	case draftImage:
		m.draft.image, cmd = m.draft.image.Update(msg)
	}
	return m, cmd
}

// commitField copies a form field into the draft
func (m *model) commitField(field int) {
	switch field {
	case draftTitle:
		m.send(controller.FieldChangedMsg{Field: editor.FieldTitle, Value: m.draft.title.Value()})
	case draftDesc:
		m.send(controller.FieldChangedMsg{Field: editor.FieldDesc, Value: m.draft.desc.Value()})
	case draftRating:
		v := strings.TrimSpace(m.draft.rating.Value())
		if v == "" {
			v = "0"
		}
		m.send(controller.FieldChangedMsg{Field: editor.FieldRating, Value: v})
	case draftImage:
		m.attachImage()
	}
}

func (m *model) attachImage() {
	path := strings.TrimSpace(m.draft.image.Value())
	if path == "" || path == m.draft.attached {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		m.formErr = "cannot read image: " + err.Error()
		return
	}
	m.formErr = ""

	var prev *editor.Image
	if d := m.ctrl.State().Editor.Draft(); d != nil {
		prev = d.Image
	}
	m.send(controller.ImageDroppedMsg{Image: editor.Image{Name: filepath.Base(path), Data: data}})
	if d := m.ctrl.State().Editor.Draft(); d != nil && d.Image != nil && d.Image != prev {
		m.draft.attached = path
	}
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeMap
		return m, nil
	case "tab", "down":
		return m, m.login.setFocus(m.login.focus + 1)
	case "shift+tab", "up":
		return m, m.login.setFocus(m.login.focus - 1)
	case "enter":
		if !m.login.last() {
			return m, m.login.setFocus(m.login.focus + 1)
		}
		v := m.login.values()
		if v[0] == "" || v[1] == "" {
			m.formErr = "username and password are required"
			return m, nil
		}
		m.formErr = ""
		return m, m.send(controller.LoginMsg{Username: v[0], Password: v[1]})
	}
	return m, m.login.update(msg)
}

func (m model) updateRegister(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeMap
		return m, nil
	case "tab", "down":
		return m, m.register.setFocus(m.register.focus + 1)
	case "shift+tab", "up":
		return m, m.register.setFocus(m.register.focus - 1)
	case "enter":
		if !m.register.last() {
			return m, m.register.setFocus(m.register.focus + 1)
		}
		v := m.register.values()
		if v[0] == "" || v[1] == "" || v[2] == "" {
			m.formErr = "all fields are required"
			return m, nil
		}
		m.formErr = ""
		return m, m.send(controller.RegisterMsg{Username: v[0], Email: v[1], Password: v[2]})
	}
	return m, m.register.update(msg)
}

func gesture(vp viewport.Viewport) viewport.Gesture {
	return viewport.Gesture{Viewport: vp}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
