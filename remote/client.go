package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/amp-labs/chamber/logger"
	"github.com/amp-labs/chamber/should"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "remote"

var errMissingResult = errors.New("response has no result")

// Client is the HTTP implementation of Device.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

var _ Device = (*Client)(nil)

type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		if c != nil {
			client.http = c
		}
	}
}

// WithBaseURL points the client at a full base URL (scheme, host and port)
// instead of deriving it from Config.Address and Config.Port.
func WithBaseURL(url string) ClientOption {
	return func(client *Client) {
		client.baseURL = url
	}
}

// NewClient returns a client for the server described by cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	client := &Client{
		cfg:     cfg,
		baseURL: "http://" + net.JoinHostPort(cfg.Address, strconv.Itoa(int(port))),
		http:    http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) Configure(ctx context.Context) error {
	return observe(ctx, "configure", func(ctx context.Context, op string) error {
		return c.post(ctx, op, "/initialize", initializeRequest(c.cfg), nil)
	})
}

func (c *Client) SetFan(ctx context.Context, on bool) error {
	return observe(ctx, "set_fan", func(ctx context.Context, op string) error {
		return c.post(ctx, op, "/act", setRequest(FanModule, on), nil)
	})
}

func (c *Client) SetHumidifier(ctx context.Context, on bool) error {
	return observe(ctx, "set_humidifier", func(ctx context.Context, op string) error {
		return c.post(ctx, op, "/act", setRequest(HumidifierModule, on), nil)
	})
}

func (c *Client) ReadTemperatureF(ctx context.Context) (float64, error) {
	return c.read(ctx, "read_temperature", ActionTemperature)
}

func (c *Client) ReadRelativeHumidity(ctx context.Context) (float64, error) {
	return c.read(ctx, "read_humidity", ActionHumidity)
}

func (c *Client) read(ctx context.Context, op, action string) (float64, error) {
	var result float64

	err := observe(ctx, op, func(ctx context.Context, op string) error {
		var resp ActResponse

		if err := c.post(ctx, op, "/act", readRequest(action), &resp); err != nil {
			return err
		}

		if resp.Result == nil {
			return &Error{Kind: KindTransient, Operation: op, Err: errMissingResult}
		}

		result = *resp.Result

		return nil
	})

	return result, err
}

// observe runs one remote operation inside a "remote.<op>" span and records
// its duration and outcome.
func observe(ctx context.Context, op string, f func(ctx context.Context, op string) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "remote."+op)
	defer span.End()

	start := time.Now()
	err := f(ctx, op)

	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(op, outcome(err)).Inc()

	span.SetAttributes(attribute.String("outcome", outcome(err)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// post sends body as JSON and, when out is non-nil, decodes a 200 response
// into it. An unencodable request or any status other than 200 is
// KindMisconfigured; anything that prevents a readable answer is KindTransient.
func (c *Client) post(ctx context.Context, op, path string, body any, out any) error {
	// A request that cannot be encoded comes from the configuration, so
	// sending it again cannot succeed.
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindMisconfigured, Operation: op, Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return logger.AnnotateError(
			&Error{Kind: KindTransient, Operation: op, Err: err},
			"op", op, "url", req.URL.Redacted())
	}

	defer should.DrainAndClose(ctx, resp.Body, "closing control server response")

	if resp.StatusCode != http.StatusOK {
		return logger.AnnotateError(
			&Error{Kind: KindMisconfigured, Operation: op, Status: resp.StatusCode},
			"op", op, "url", req.URL.Redacted(), "status", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindTransient, Operation: op, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return nil
}
