// Package api is the HTTP client for the remote pin and user service
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/kass/go-pinmap/pkg/models"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:8800/api"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// ErrNetwork marks every failed request to the service
var ErrNetwork = errors.New("network failure")

// RequestError describes a failed call. It matches ErrNetwork with errors.Is.
type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// CreatePinRequest carries the multipart fields of POST /pins
type CreatePinRequest struct {
	Username  string
	Title     string
	Desc      string
	Rating    int
	Lat       float64
	Long      float64
	ImageName string
	Image     []byte
}

// Client talks to the pin service
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request, including reading the response body
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the service rooted at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListPins fetches every pin
func (c *Client) ListPins(ctx context.Context) ([]models.Pin, error) {
	const op = "list pins"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("pins"), nil)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}

	var pins []models.Pin
	if err := c.do(req, op, &pins); err != nil {
		return nil, err
	}
	return pins, nil
}

// CreatePin uploads a new pin and returns it as persisted by the service
func (c *Client) CreatePin(ctx context.Context, in CreatePinRequest) (models.Pin, error) {
	const op = "create pin"

	body, contentType, err := encodePinForm(in)
	if err != nil {
		return models.Pin{}, &RequestError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("pins"), body)
	if err != nil {
		return models.Pin{}, &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	var pin models.Pin
	if err := c.do(req, op, &pin); err != nil {
		return models.Pin{}, err
	}
	return pin, nil
}

// Login checks credentials and returns the canonical username
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "login"

	payload := map[string]string{"username": username, "password": password}
	req, err := c.jsonRequest(ctx, "users/login", payload)
	if err != nil {
		return "", &RequestError{Op: op, Err: err}
	}

	var out struct {
		Username string `json:"username"`
	}
	if err := c.do(req, op, &out); err != nil {
		return "", err
	}
	if out.Username == "" {
		return "", &RequestError{Op: op, Err: errors.New("response carries no username")}
	}
	return out.Username, nil
}

// Register creates a user account
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	const op = "register"

	payload := map[string]string{"username": username, "email": email, "password": password}
	req, err := c.jsonRequest(ctx, "users/register", payload)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	return c.do(req, op, nil)
}

// ImageURL resolves a pin's image path against the service origin
func (c *Client) ImageURL(pin models.Pin) string {
	if pin.Image == "" {
		return ""
	}
	if strings.HasPrefix(pin.Image, "http://") || strings.HasPrefix(pin.Image, "https://") {
		return pin.Image
	}
	origin := url.URL{Scheme: c.baseURL.Scheme, Host: c.baseURL.Host}
	return origin.String() + "/" + strings.TrimLeft(pin.Image, "/")
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + "/" + path
}

func (c *Client) jsonRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil
func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("op", op), zap.Error(err))
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		zap.String("op", op),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(text)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func encodePinForm(in CreatePinRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// Text fields, then the image, then the numeric fields
	for _, f := range [][2]string{
		{"username", in.Username},
		{"title", in.Title},
		{"desc", in.Desc},
	} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	name := in.ImageName
	if name == "" {
		name = "image"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	header.Set("Content-Type", mimetype.Detect(in.Image).String())

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(in.Image); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}

	for _, f := range [][2]string{
		{"rating", strconv.Itoa(in.Rating)},
		{"lat", strconv.FormatFloat(in.Lat, 'f', -1, 64)},
		{"long", strconv.FormatFloat(in.Long, 'f', -1, 64)},
	} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
