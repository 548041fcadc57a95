package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "flashcards-client/internal/shared/errors"
	"flashcards-client/internal/shared/eventbus"
	"flashcards-client/internal/shared/logger"
	"flashcards-client/internal/shared/metrics"
	"flashcards-client/internal/shared/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// RequestInterceptor may modify a request before it is sent. An error aborts the call.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes every response before the caller sees it.
type ResponseInterceptor func(req *http.Request, resp *http.Response)

// AuthorizationDenied is the payload of eventbus.EventTypeAuthorizationDenied.
type AuthorizationDenied struct {
	Method    string
	Path      string
	Screen    string
	RequestID string
}

// Client talks JSON to the flashcards REST API. Every request carries the current
// bearer credential, and every 401 is broadcast on the event bus.
type Client struct {
	baseURL    string
	httpClient *http.Client
	bus        eventbus.EventBusInterface
	log        logger.Logger
	limiter    *rate.Limiter

	tokenMu sync.RWMutex
	token   string

	interceptorMu        sync.RWMutex
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit spaces outgoing requests; rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewClient creates a client for baseURL with the built-in interceptors installed.
func NewClient(baseURL string, timeout time.Duration, bus eventbus.EventBusInterface, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		bus:        bus,
		log:        log.WithComponent("api-client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.UseRequest(c.attachRequestID)
	c.UseRequest(c.attachCredential)
	c.UseResponse(c.detectAuthorizationDenied)
	return c
}

// UseRequest appends a request interceptor.
func (c *Client) UseRequest(i RequestInterceptor) {
	c.interceptorMu.Lock()
	defer c.interceptorMu.Unlock()
	c.requestInterceptors = append(c.requestInterceptors, i)
}

// UseResponse appends a response interceptor.
func (c *Client) UseResponse(i ResponseInterceptor) {
	c.interceptorMu.Lock()
	defer c.interceptorMu.Unlock()
	c.responseInterceptors = append(c.responseInterceptors, i)
}

// SetToken installs the bearer credential for subsequent requests.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = token
}

// ClearToken removes the bearer credential.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// HasToken reports whether a credential is attached to requests.
func (c *Client) HasToken() bool {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token != ""
}

func (c *Client) currentToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// Do sends a JSON request. body may be nil; out may be nil to discard the response.
// Non-2xx responses become *errors.AppError carrying the status and backend message.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.NewInfrastructureError("request cancelled while rate limited").WithCause(err).WithComponent("api")
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError("failed to encode request body").WithCause(err).WithComponent("api")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.NewInternalError("failed to create request").WithCause(err).WithComponent("api")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.interceptorMu.RLock()
	requestInterceptors := append([]RequestInterceptor(nil), c.requestInterceptors...)
	responseInterceptors := append([]ResponseInterceptor(nil), c.responseInterceptors...)
	c.interceptorMu.RUnlock()

	for _, intercept := range requestInterceptors {
		if err := intercept(req); err != nil {
			return err
		}
	}

	route := routeLabel(path)
	logPath := requestPath(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(method, route, "error").Inc()
		c.log.WithContext(req.Context()).With(zap.String("method", method), zap.String("path", logPath), zap.Error(err)).
			Warn("API request failed")
		return apperrors.NewInfrastructureError("request to API failed").WithCause(err).WithComponent("api")
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	metrics.APIRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	metrics.APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	c.log.WithContext(req.Context()).With(
		zap.String("method", method),
		zap.String("path", logPath),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	).Debug("API request completed")

	for _, intercept := range responseInterceptors {
		intercept(req, resp)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.FromHTTPStatus(resp.StatusCode, readErrorMessage(resp.StatusCode, resp.Body)).WithComponent("api")
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewInfrastructureError("failed to decode API response").WithCause(err).WithComponent("api")
	}
	return nil
}

func (c *Client) attachRequestID(req *http.Request) error {
	id, err := utils.GetRequestIDFromContext(req.Context())
	if err != nil {
		id = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", id)
	*req = *req.WithContext(utils.WithRequestID(req.Context(), id))
	return nil
}

func (c *Client) attachCredential(req *http.Request) error {
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// detectAuthorizationDenied publishes synchronously, so subscribers have finished
// reacting before the failing call returns to its caller.
func (c *Client) detectAuthorizationDenied(req *http.Request, resp *http.Response) {
	if resp.StatusCode != http.StatusUnauthorized {
		return
	}
	metrics.AuthorizationDeniedTotal.Inc()

	screen, _ := utils.GetScreenFromContext(req.Context())
	requestID, _ := utils.GetRequestIDFromContext(req.Context())
	denied := AuthorizationDenied{
		Method:    req.Method,
		Path:      requestPath(strings.TrimPrefix(req.URL.RequestURI(), pathPrefix(c.baseURL))),
		Screen:    screen,
		RequestID: requestID,
	}

	c.log.WithContext(req.Context()).With(zap.String("method", denied.Method), zap.String("path", denied.Path)).
		Info("API rejected credential")

	if c.bus == nil {
		return
	}
	event := eventbus.NewBasicEventWithSource(eventbus.EventTypeAuthorizationDenied, denied, "api-client")
	if err := c.bus.Publish(req.Context(), event); err != nil {
		c.log.Errorf("authorization denied handler failed: %v", err)
	}
}

// readErrorMessage extracts {"message": ...} or {"error": ...} from an error body. An
// error field that only repeats the status text, as framework default bodies do, is ignored.
func readErrorMessage(status int, body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if strings.EqualFold(payload.Error, http.StatusText(status)) {
		return ""
	}
	return payload.Error
}

// requestPath strips the query string.
func requestPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	return path
}

// routeLabel is the metrics label for a path: identifier segments become ":id" so the
// label set stays bounded.
func routeLabel(path string) string {
	segments := strings.Split(requestPath(path), "/")
	for i, segment := range segments {
		if isIdentifier(segment) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isIdentifier(segment string) bool {
	if segment == "" {
		return false
	}
	if _, err := strconv.ParseUint(segment, 10, 64); err == nil {
		return true
	}
	if _, err := uuid.Parse(segment); err == nil {
		return true
	}
	return len(segment) == 24 && isHex(segment)
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func pathPrefix(baseURL string) string {
	// baseURL is scheme://host/prefix; only the prefix appears in RequestURI.
	if i := strings.Index(baseURL, "://"); i >= 0 {
		rest := baseURL[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return rest[j:]
		}
	}
	return ""
}

func (a AuthorizationDenied) String() string {
	return fmt.Sprintf("%s %s", a.Method, a.Path)
}
