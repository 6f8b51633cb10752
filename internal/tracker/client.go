package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API defines the tracker endpoints the client layer consumes.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	FetchHistory(ctx context.Context) ([]Habit, error)
	FetchExercises(ctx context.Context) ([]Exercise, error)
	UpsertRating(ctx context.Context, in RatingInput) (RatingResult, error)
	CreateSession(ctx context.Context, in SessionInput) (ExerciseSession, error)
	DeleteSession(ctx context.Context, id int64) error
	CreateExerciseLog(ctx context.Context, in ExerciseLogInput) (ExerciseLog, error)
	DeleteExerciseLog(ctx context.Context, id int64) error
	CreatePerformance(ctx context.Context, in PerformanceInput) (ExercisePerformance, error)
	UpdatePerformance(ctx context.Context, in PerformanceUpdate) (ExercisePerformance, error)
	DeletePerformance(ctx context.Context, id int64) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the tracker HTTP API.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	userAgent  string
	cookieName string
	session    string
}

const (
	defaultAPIURL     = "http://127.0.0.1:3000"
	defaultUserAgent  = "trackbit/0.1"
	defaultCookieName = "connect.sid"
	requestTimeout    = 10 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithSession attaches the session cookie sent with every request.
func WithSession(cookieName, value string) Option {
	return func(c *Client) {
		if name := strings.TrimSpace(cookieName); name != "" {
			c.cookieName = name
		}
		c.session = strings.TrimSpace(value)
	}
}

// WithTimeout overrides the per-request transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a Client for the API rooted at apiURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:    base,
		http:       &http.Client{Timeout: requestTimeout},
		userAgent:  defaultUserAgent,
		cookieName: defaultCookieName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchHistory retrieves every habit with its nested logs.
func (c *Client) FetchHistory(ctx context.Context) ([]Habit, error) {
	var payload []Habit
	if err := c.do(ctx, http.MethodGet, "/tracker/history", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchExercises retrieves the exercise catalog with last-performance data.
func (c *Client) FetchExercises(ctx context.Context) ([]Exercise, error) {
	var payload []Exercise
	if err := c.do(ctx, http.MethodGet, "/tracker/exercises", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// UpsertRating records the rating of a simple or negative habit for a day.
func (c *Client) UpsertRating(ctx context.Context, in RatingInput) (RatingResult, error) {
	var payload RatingResult
	if err := c.do(ctx, http.MethodPost, "/tracker/check", in, &payload); err != nil {
		return RatingResult{}, err
	}
	return payload, nil
}

// CreateSession starts a workout for a habit and day.
func (c *Client) CreateSession(ctx context.Context, in SessionInput) (ExerciseSession, error) {
	var payload ExerciseSession
	if err := c.do(ctx, http.MethodPost, "/tracker/exercise-sessions", in, &payload); err != nil {
		return ExerciseSession{}, err
	}
	return payload, nil
}

// DeleteSession removes a workout and everything under it.
func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, "/tracker/exercise-sessions", id)
}

// CreateExerciseLog adds an exercise, with its seed sets, to a session.
func (c *Client) CreateExerciseLog(ctx context.Context, in ExerciseLogInput) (ExerciseLog, error) {
	var payload ExerciseLog
	if err := c.do(ctx, http.MethodPost, "/tracker/exercise-logs", in, &payload); err != nil {
		return ExerciseLog{}, err
	}
	return payload, nil
}

// DeleteExerciseLog removes an exercise and its sets from a session.
func (c *Client) DeleteExerciseLog(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, "/tracker/exercise-logs", id)
}

// CreatePerformance appends a set to an exercise log.
func (c *Client) CreatePerformance(ctx context.Context, in PerformanceInput) (ExercisePerformance, error) {
	var payload ExercisePerformance
	if err := c.do(ctx, http.MethodPost, "/tracker/exercise-performances", in, &payload); err != nil {
		return ExercisePerformance{}, err
	}
	return payload, nil
}

// UpdatePerformance replaces the recorded values of a set.
func (c *Client) UpdatePerformance(ctx context.Context, in PerformanceUpdate) (ExercisePerformance, error) {
	if in.ID <= 0 {
		return ExercisePerformance{}, fmt.Errorf("performance id required")
	}
	var payload ExercisePerformance
	path := "/tracker/exercise-performances/" + strconv.FormatInt(in.ID, 10)
	if err := c.do(ctx, http.MethodPatch, path, in, &payload); err != nil {
		return ExercisePerformance{}, err
	}
	return payload, nil
}

// DeletePerformance removes a set.
func (c *Client) DeletePerformance(ctx context.Context, id int64) error {
	return c.deleteByID(ctx, "/tracker/exercise-performances", id)
}

func (c *Client) deleteByID(ctx context.Context, collection string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("id required")
	}
	return c.do(ctx, http.MethodDelete, collection+"/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.session})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(method, rel.Path, resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func newAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = strings.TrimSpace(body.Message)
	}
	return apiErr
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", apiURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
