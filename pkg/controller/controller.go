// Package controller is the single owner of the client's state. Every user
// gesture and every network result arrives as a message and is applied by
// Update on one goroutine; network calls leave the loop as commands and come
// back as result messages.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kass/go-pinmap/pkg/api"
	"github.com/kass/go-pinmap/pkg/editor"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/pins"
	"github.com/kass/go-pinmap/pkg/popups"
	"github.com/kass/go-pinmap/pkg/session"
	"github.com/kass/go-pinmap/pkg/viewport"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// PinService is the remote pin and user service
type PinService interface {
	ListPins(ctx context.Context) ([]models.Pin, error)
	CreatePin(ctx context.Context, req api.CreatePinRequest) (models.Pin, error)
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, email, password string) error
}

// SessionStore persists the logged-in user
type SessionStore interface {
	Login(username string) (*session.Session, error)
	Logout() error
}

// Level is the severity of a notice
type Level int

const (
	LevelNone Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return ""
	}
}

// Notice is the latest user-visible message
type Notice struct {
	Level Level
	Text  string
}

// FormStatus is the inline state of the login or register form
type FormStatus struct {
	Pending bool
	Success bool
	Err     error
}

// State is everything the client knows. It is only mutated by Update.
type State struct {
	Viewport    viewport.Viewport
	Pins        *pins.Collection
	Popups      *popups.Visibility
	Editor      *editor.Editor
	Session     *session.Session
	Notice      Notice
	LoadingPins bool
	Login       FormStatus
	Register    FormStatus
}

// Controller applies messages to State
type Controller struct {
	state    State
	service  PinService
	sessions SessionStore
	logger   *zap.Logger
	timeout  time.Duration
}

// Option configures a Controller
type Option func(*Controller)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithTimeout bounds every network command
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithViewport(vp viewport.Viewport) Option {
	return func(c *Controller) { c.state.Viewport = vp }
}

// WithSession starts the controller logged in, typically with a session
// restored from storage
func WithSession(s *session.Session) Option {
	return func(c *Controller) { c.state.Session = s }
}

func WithEditor(e *editor.Editor) Option {
	return func(c *Controller) { c.state.Editor = e }
}

// New creates a controller with the default viewport and no pins loaded
func New(service PinService, sessions SessionStore, opts ...Option) *Controller {
	c := &Controller{
		state: State{
			Viewport: viewport.Default,
			Pins:     pins.NewCollection(),
			Popups:   popups.New(),
			Editor:   editor.New(),
		},
		service:  service,
		sessions: sessions,
		logger:   zap.NewNop(),
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the state. The referenced components must only
// be read outside Update.
func (c *Controller) State() State {
	return c.state
}

// Markers projects every pin for rendering
func (c *Controller) Markers() []pins.Marker {
	return pins.ProjectForRender(c.state.Pins.All(), c.state.Viewport, c.state.Session)
}

// MarkersWithin projects the pins inside box
func (c *Controller) MarkersWithin(box models.BoundingBox) ([]pins.Marker, error) {
	visible, err := c.state.Pins.Within(box)
	if err != nil {
		return nil, err
	}
	return pins.ProjectForRender(visible, c.state.Viewport, c.state.Session), nil
}

// Init starts the initial pin fetch
func (c *Controller) Init() tea.Cmd {
	if c.state.Pins.Loaded() || c.state.LoadingPins {
		return nil
	}
	c.state.LoadingPins = true
	return c.loadPins()
}

// Update applies msg and returns the command to run next, if any. Messages
// that are not controller events are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ViewportChangedMsg:
		c.state.Viewport = viewport.Apply(c.state.Viewport, msg.Gesture)

	case MarkerClickedMsg:
		if _, ok := c.state.Pins.Get(msg.ID); !ok {
			c.logger.Debug("click on unknown marker", zap.String("pin_id", msg.ID))
			return nil
		}
		open := c.state.Popups.Toggle(msg.ID)
		c.logger.Debug("popup toggled", zap.String("pin_id", msg.ID), zap.Bool("open", open))

	case PopupClosedMsg:
		c.state.Popups.Close(msg.ID)

	case MapDoubleClickedMsg:
		d, err := c.state.Editor.Begin(c.state.Session, msg.Lat, msg.Long)
		if err != nil {
			c.fail(err)
			return nil
		}
		c.clearNotice()
		c.logger.Debug("draft started",
			zap.String("draft_id", d.ID.String()),
			zap.Float64("lat", d.Lat),
			zap.Float64("long", d.Long))

	case DraftClosedMsg:
		c.state.Editor.Cancel()

	case FieldChangedMsg:
		if err := c.state.Editor.UpdateField(msg.Field, msg.Value); err != nil {
			c.fail(err)
		}

	case ImageDroppedMsg:
		if err := c.state.Editor.AttachImage(msg.Image); err != nil {
			c.fail(err)
		}

	case SubmitMsg:
		return c.submit()

	case PinCreatedMsg:
		c.pinCreated(msg)

	case PinsLoadedMsg:
		c.pinsLoaded(msg)

	case LoginMsg:
		if c.state.Login.Pending {
			return nil
		}
		c.state.Login = FormStatus{Pending: true}
		return c.login(msg.Username, msg.Password)

	case LoginResultMsg:
		c.loginResult(msg)

	case RegisterMsg:
		if c.state.Register.Pending {
			return nil
		}
		c.state.Register = FormStatus{Pending: true}
		return c.register(msg.Username, msg.Email, msg.Password)

	case RegisterResultMsg:
		if msg.Err != nil {
			c.state.Register = FormStatus{Err: msg.Err}
			c.fail(msg.Err)
			return nil
		}
		c.state.Register = FormStatus{Success: true}
		c.notify(LevelInfo, "Successful. You can log in now!")

	case LogoutMsg:
		c.logout()
	}
	return nil
}

// Dispatch applies msg and then runs the resulting commands synchronously,
// feeding their results back in until nothing is left to do. It is the
// headless form of the bubbletea loop.
func (c *Controller) Dispatch(msg tea.Msg) {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		var cmds []tea.Cmd
		if batch, ok := next.(tea.BatchMsg); ok {
			cmds = batch
		} else {
			cmds = []tea.Cmd{c.Update(next)}
		}

		for _, cmd := range cmds {
			if cmd == nil {
				continue
			}
			if out := cmd(); out != nil {
				queue = append(queue, out)
			}
		}
	}
}

func (c *Controller) submit() tea.Cmd {
	sub, err := c.state.Editor.Submit(c.state.Session)
	if err != nil {
		c.fail(err)
		return nil
	}

	c.logger.Debug("submitting draft", zap.String("draft_id", sub.DraftID.String()))
	req := api.CreatePinRequest{
		Username:  sub.Username,
		Title:     sub.Title,
		Desc:      sub.Desc,
		Rating:    sub.Rating,
		Lat:       sub.Lat,
		Long:      sub.Long,
		ImageName: sub.Image.Name,
		Image:     sub.Image.Data,
	}
	service, timeout := c.service, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		pin, err := service.CreatePin(ctx, req)
		return PinCreatedMsg{DraftID: sub.DraftID, Pin: pin, Err: err}
	}
}

func (c *Controller) pinCreated(msg PinCreatedMsg) {
	if msg.Err == nil {
		// The pin exists on the service whether or not its draft is still
		// around, so the collection takes it either way.
		if err := c.state.Pins.Append(msg.Pin); err != nil {
			c.logger.Warn("failed to append created pin", zap.String("pin_id", msg.Pin.ID), zap.Error(err))
		}
	}

	if !c.state.Editor.Resolve(msg.DraftID, msg.Err) {
		c.logger.Debug("ignoring result for stale draft",
			zap.String("draft_id", msg.DraftID.String()),
			zap.Error(msg.Err))
		return
	}

	if msg.Err != nil {
		c.logger.Warn("failed to create pin", zap.Error(msg.Err))
		c.fail(msg.Err)
		return
	}
	c.logger.Info("pin created", zap.String("pin_id", msg.Pin.ID), zap.String("title", msg.Pin.Title))
	c.notify(LevelInfo, fmt.Sprintf("Pin %q saved", msg.Pin.Title))
}

func (c *Controller) loadPins() tea.Cmd {
	service, timeout := c.service, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		list, err := service.ListPins(ctx)
		return PinsLoadedMsg{Pins: list, Err: err}
	}
}

func (c *Controller) pinsLoaded(msg PinsLoadedMsg) {
	c.state.LoadingPins = false
	if msg.Err != nil {
		// Not retried; the map stays usable without existing pins
		c.logger.Error("failed to load pins", zap.Error(msg.Err))
		c.notify(LevelError, "Could not load pins")
		return
	}
	if err := c.state.Pins.Load(msg.Pins); err != nil {
		c.logger.Warn("failed to load pins", zap.Error(err))
		return
	}
	c.logger.Info("pins loaded", zap.Int("count", c.state.Pins.Len()))
}

func (c *Controller) login(username, password string) tea.Cmd {
	service, timeout := c.service, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		name, err := service.Login(ctx, username, password)
		return LoginResultMsg{Username: name, Err: err}
	}
}

func (c *Controller) loginResult(msg LoginResultMsg) {
	if msg.Err != nil {
		c.state.Login = FormStatus{Err: msg.Err}
		c.logger.Warn("login failed", zap.Error(msg.Err))
		c.fail(msg.Err)
		return
	}

	s, err := c.sessions.Login(msg.Username)
	if err != nil {
		// Still logged in for this run, just not remembered
		c.logger.Error("failed to persist session", zap.String("username", msg.Username), zap.Error(err))
		s = &session.Session{Username: msg.Username}
	}
	c.state.Session = s
	c.state.Login = FormStatus{Success: true}
	c.logger.Info("logged in", zap.String("username", s.Username))
	c.notify(LevelInfo, "Logged in as "+s.Username)
}

func (c *Controller) register(username, email, password string) tea.Cmd {
	service, timeout := c.service, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := service.Register(ctx, username, email, password)
		return RegisterResultMsg{Username: username, Err: err}
	}
}

// logout leaves any draft in place; submitting it afterwards fails as
// unauthenticated
func (c *Controller) logout() {
	if c.state.Session == nil {
		return
	}
	if err := c.sessions.Logout(); err != nil {
		c.logger.Error("failed to clear session", zap.Error(err))
	}
	c.logger.Info("logged out", zap.String("username", c.state.Session.Username))
	c.state.Session = nil
	c.state.Login = FormStatus{}
	c.notify(LevelInfo, "Logged out")
}

func (c *Controller) notify(level Level, text string) {
	c.state.Notice = Notice{Level: level, Text: text}
}

func (c *Controller) clearNotice() {
	c.state.Notice = Notice{}
}

// fail turns an operation error into a notice
func (c *Controller) fail(err error) {
	var verr *editor.ValidationError
	switch {
	case errors.Is(err, editor.ErrNotAuthenticated):
		c.notify(LevelWarning, "Log in to add a pin")
	case errors.As(err, &verr):
		c.notify(LevelError, verr.Error())
	case errors.Is(err, api.ErrNetwork):
		c.notify(LevelError, "Something went wrong: "+err.Error())
	default:
		c.notify(LevelError, err.Error())
	}
}
