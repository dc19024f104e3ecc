package tika

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/docprep/internal/infrastructure/resilience"
)

const (
	textPath = "/tika"
	metaPath = "/meta"
)

type Options struct {
	// TextURL and MetaURL may point at the same server.
	TextURL string
	MetaURL string
	Timeout time.Duration

	// RequestsPerSecond limits outgoing calls; 0 disables limiting.
	RequestsPerSecond float64
	Readiness         resilience.ReadinessConfig
	Executor          *resilience.Executor
	HTTPClient        *http.Client
}

// Client talks to an Apache Tika server over its REST API.
type Client struct {
	textURL    string
	metaURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	readiness  resilience.ReadinessConfig
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	metaURL := opts.MetaURL
	if strings.TrimSpace(metaURL) == "" {
		metaURL = opts.TextURL
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		textURL:    strings.TrimRight(opts.TextURL, "/"),
		metaURL:    strings.TrimRight(metaURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		executor:   opts.Executor,
		readiness:  opts.Readiness,
	}
}

// ExtractText returns the plain-text rendition of body.
func (c *Client) ExtractText(ctx context.Context, name string, body io.Reader) (string, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	text, err := resilience.Do(ctx, c.executor, "tika.text", func(ctx context.Context) (string, error) {
		raw, err := c.put(ctx, c.textURL+textPath, name, payload, "text/plain", "text")
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}, classifyTikaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("tika text", err)
	}
	return text, nil
}

// ExtractMetadata returns the raw metadata document of body.
func (c *Client) ExtractMetadata(ctx context.Context, name string, body io.Reader) (map[string]any, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	meta, err := resilience.Do(ctx, c.executor, "tika.meta", func(ctx context.Context) (map[string]any, error) {
		raw, err := c.put(ctx, c.metaURL+metaPath, name, payload, "application/json", "meta")
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode meta response: %w", err)
		}
		return out, nil
	}, classifyTikaError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("tika meta", err)
	}
	return meta, nil
}

// WaitReady blocks until both endpoints answer or the readiness deadline passes.
func (c *Client) WaitReady(ctx context.Context) error {
	return resilience.WaitReady(ctx, "tika", c.readiness, func(ctx context.Context) error {
		if err := c.ping(ctx, c.textURL+textPath); err != nil {
			return err
		}
		if c.metaURL == c.textURL {
			return nil
		}
		// /meta only accepts PUT; the server root answers GET on any Tika server.
		return c.ping(ctx, c.metaURL+"/")
	})
}
