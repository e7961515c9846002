package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bark-labs/pushover-cli/internal/model"
)

// DefaultBaseURL is the public Pushover API host.
const DefaultBaseURL = "https://api.pushover.net"

const (
	validatePath = "/1/users/validate.json"
	messagesPath = "/1/messages.json"
	soundsPath   = "/1/sounds.json"
)

const maxResponseBytes = 1 << 20

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a thin wrapper over the Pushover HTTP API.
type Client struct {
	baseURL   *url.URL
	appToken  string
	userToken string
	http      Doer
	echo      io.Writer
	logger    *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithEcho prints human-readable diagnostics to w.
func WithEcho(w io.Writer) Option {
	return func(c *Client) {
		c.echo = w
	}
}

// WithLogger sets the structured logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.Named("pushover")
		}
	}
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// New creates a Pushover API client. Each request opens its own connection.
func New(rawURL, appToken, userToken string, timeout time.Duration, opts ...Option) (*Client, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("base url must include scheme")
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	c := &Client{
		baseURL:   parsed,
		appToken:  appToken,
		userToken: userToken,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ValidateAndSend checks the target device with the service and, if it is
// accepted, sends the notification. The message is checked only after the
// device validation succeeds.
func (c *Client) ValidateAndSend(ctx context.Context, req model.NotificationRequest) error {
	if err := c.validate(ctx, req.Device); err != nil {
		return err
	}
	if strings.TrimSpace(req.Message) == "" {
		c.echoln("Must supply a notification message. Terminating request.")
		return &Error{Op: opSend, Kind: ErrMessageRequired}
	}
	return c.send(ctx, req)
}

func (c *Client) validate(ctx context.Context, device string) error {
	values := url.Values{}
	values.Set("token", c.appToken)
	values.Set("user", c.userToken)
	values.Set("device", device)

	status, body, err := c.roundTrip(ctx, opValidate, http.MethodPost, validatePath, values)
	if err != nil {
		c.echoln("An error occurred when connecting to Pushover. Request terminated.")
		return err
	}
	payload, err := decodeResponse(body)
	if err != nil {
		c.echoln("Pushover answered with an unreadable response.")
		return &Error{Op: opValidate, Kind: ErrMalformedResponse, StatusCode: status, Err: err}
	}
	if !payload.ok() {
		c.echoErrors(payload.Errors)
		return &Error{Op: opValidate, Kind: ErrRejected, Diagnostics: payload.Errors}
	}
	return nil
}

func (c *Client) send(ctx context.Context, req model.NotificationRequest) error {
	status, body, err := c.roundTrip(ctx, opSend, http.MethodPost, messagesPath, c.messageValues(req))
	if err != nil {
		c.echoln("An error occurred when connecting to Pushover. Notification not sent.")
		return err
	}
	switch status {
	case http.StatusOK:
		payload, err := decodeResponse(body)
		if err != nil {
			c.echoln("Pushover answered with an unreadable response.")
			return &Error{Op: opSend, Kind: ErrMalformedResponse, StatusCode: status, Err: err}
		}
		if !payload.ok() {
			c.echoln("Notification was not sent. An error occurred.")
			return &Error{Op: opSend, Kind: ErrRejected, Message: "send rejected by service", Diagnostics: payload.Errors}
		}
		c.echoln("Notification was sent successfully!")
		return nil
	case http.StatusTooManyRequests:
		c.echoln("Notification cap has been reached. Notification not sent.")
		return &Error{Op: opSend, Kind: ErrRateLimited, StatusCode: status}
	default:
		var diagnostics []string
		if payload, err := decodeResponse(body); err == nil {
			diagnostics = payload.Errors
		}
		c.echof("Notification was not sent. Pushover answered with HTTP %d.\n", status)
		c.echoErrors(diagnostics)
		return &Error{Op: opSend, Kind: ErrUnexpectedStatus, StatusCode: status, Diagnostics: diagnostics}
	}
}

func (c *Client) messageValues(req model.NotificationRequest) url.Values {
	html := "0"
	if req.HTML {
		html = "1"
	}
	values := url.Values{}
	values.Set("token", c.appToken)
	values.Set("user", c.userToken)
	values.Set("device", req.Device)
	values.Set("priority", strconv.Itoa(req.Priority))
	values.Set("sound", req.Sound)
	values.Set("title", Trim(req.Title, TitleLimit))
	values.Set("message", Trim(req.Message, MessageLimit))
	values.Set("url", Trim(req.URL, URLLimit))
	values.Set("url_title", Trim(req.URLTitle, URLTitleLimit))
	values.Set("html", html)
	return values
}

// ListSounds fetches the alert tones supported by the service.
func (c *Client) ListSounds(ctx context.Context) ([]model.Sound, error) {
	if c.appToken == "" {
		c.echoln("A Pushover application token is required for this request.")
		return nil, &Error{Op: opSounds, Kind: ErrAppTokenRequired}
	}
	values := url.Values{}
	values.Set("token", c.appToken)

	status, body, err := c.roundTrip(ctx, opSounds, http.MethodGet, soundsPath, values)
	if err != nil {
		c.echoln("An unknown error occurred trying to reach Pushover's servers.")
		return nil, err
	}
	payload, err := decodeResponse(body)
	if err != nil {
		c.echoln("Pushover answered with an unreadable response.")
		return nil, &Error{Op: opSounds, Kind: ErrMalformedResponse, StatusCode: status, Err: err}
	}
	if !payload.ok() {
		c.echoErrors(payload.Errors)
		return nil, &Error{Op: opSounds, Kind: ErrRejected, Diagnostics: payload.Errors}
	}
	return []model.Sound(payload.Sounds), nil
}

// SendEmergencyNotification is not supported and always fails.
func (c *Client) SendEmergencyNotification(_ context.Context, _ model.NotificationRequest) error {
	c.echoln("Emergency notifications are not supported.")
	return &Error{Op: opEmergency, Kind: ErrNotImplemented}
}

// BaseURL returns the configured API URL without trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL.String(), "/")
}

// roundTrip performs one request and reads the whole response body. Any
// failure to complete the exchange is reported as ErrUnreachable.
func (c *Client) roundTrip(ctx context.Context, op, method, endpoint string, values url.Values) (int, []byte, error) {
	var (
		target = c.resolve(endpoint)
		body   io.Reader
	)
	if method == http.MethodGet {
		target += "?" + values.Encode()
	} else {
		body = strings.NewReader(values.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, &Error{Op: op, Kind: ErrUnreachable, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Close = true

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("op", op), zap.String("endpoint", endpoint), zap.Error(err))
		return 0, nil, &Error{Op: op, Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Debug("read response failed", zap.String("op", op), zap.String("endpoint", endpoint), zap.Error(err))
		return resp.StatusCode, nil, &Error{Op: op, Kind: ErrUnreachable, StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
	)
	return resp.StatusCode, payload, nil
}

func (c *Client) resolve(p string) string {
	u := *c.baseURL
	u.Path = path.Join(c.baseURL.Path, p)
	return u.String()
}

func (c *Client) echoln(msg string) {
	if c.echo != nil {
		fmt.Fprintln(c.echo, msg)
	}
}

func (c *Client) echof(format string, args ...any) {
	if c.echo != nil {
		fmt.Fprintf(c.echo, format, args...)
	}
}

func (c *Client) echoErrors(errs []string) {
	if len(errs) == 0 {
		return
	}
	c.echoln("Error(s) from Pushover:")
	for _, e := range errs {
		c.echoln(e)
	}
}
