package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tmontague/datafetch/internal/model"
	"golang.org/x/net/proxy"
)

// Default fetcher settings.
const (
	// DefaultTimeout bounds a single request including the body read.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBodySize is the largest body the fetcher reads (100MB).
	DefaultMaxBodySize = 100 * 1024 * 1024

	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "datafetch/1.0"
)

// opFetch is the operation name recorded in fetch errors.
const opFetch = "fetch"

// Fetcher retrieves and decodes remote payloads.
// A Fetcher is safe for sequential reuse; it holds no per-request state.
type Fetcher struct {
	// client performs the requests. It is built from the options in New
	// unless WithHTTPClient supplies one.
	client *http.Client

	// userAgent is the User-Agent header for every request.
	userAgent string

	// maxBodySize limits the response body. A larger body fails the fetch
	// instead of being truncated.
	maxBodySize int64

	// timeout bounds each request through its context.
	timeout time.Duration

	// proxyAddress is an optional SOCKS5 proxy in "host:port" format.
	proxyAddress string

	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
// A zero or negative value leaves requests bounded only by the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size in bytes.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithProxy routes requests through the SOCKS5 proxy at address ("host:port").
// It has no effect when WithHTTPClient is also given.
func WithProxy(address string) Option {
	return func(f *Fetcher) {
		f.proxyAddress = address
	}
}

// WithHTTPClient sets the HTTP client used for requests.
// Tests use it to point the fetcher at an httptest server.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher.
// It fails only when the proxy dialer cannot be created.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		client, err := newHTTPClient(f.proxyAddress)
		if err != nil {
			return nil, err
		}
		f.client = client
	}

	return f, nil
}

// newHTTPClient builds the default client, dialing through a SOCKS5 proxy
// when proxyAddress is set.
func newHTTPClient(proxyAddress string) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport type %T", http.DefaultTransport)
	}
	transport = transport.Clone()

	if proxyAddress != "" {
		dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		// An environment HTTP proxy must not bypass the SOCKS5 dialer.
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	return &http.Client{Transport: transport}, nil
}

// dialContext adapts a proxy.Dialer to the transport's DialContext hook.
func dialContext(dialer proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
}

// Fetch performs one GET of sourceURL and decodes the body as kind.
//
// Errors are *model.Error values of kind model.ErrNetwork (transport,
// timeout, status, size) or model.ErrDecode (body does not match kind).
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string, kind model.ContentKind) (*model.Payload, error) {
	if !kind.Valid() {
		return nil, model.NewError(model.ErrDecode, opFetch, sourceURL, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind))
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	body, contentType, err := f.get(ctx, sourceURL, kind)
	if err != nil {
		return nil, model.NewError(model.ErrNetwork, opFetch, sourceURL, err)
	}

	f.logger.Debug("fetched payload",
		"url", sourceURL,
		"kind", kind.String(),
		"bytes", len(body),
		"content_type", contentType,
		"duration", time.Since(start),
	)

	payload, err := decode(kind, body, contentType)
	if err != nil {
		return nil, model.NewError(model.ErrDecode, opFetch, sourceURL, err)
	}
	payload.ContentType = contentType

	return payload, nil
}

// get performs the request and returns the body and its Content-Type.
func (f *Fetcher) get(ctx context.Context, sourceURL string, kind model.ContentKind) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader(kind))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	// Read one byte past the limit to tell "exactly max" from "too large".
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, "", fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBodySize)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// acceptHeader returns the Accept header for kind.
func acceptHeader(kind model.ContentKind) string {
	switch kind {
	case model.KindText:
		return "text/plain, */*;q=0.8"
	case model.KindCSV:
		return "text/csv, text/plain;q=0.9, */*;q=0.8"
	case model.KindExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/octet-stream;q=0.9, */*;q=0.8"
	case model.KindJSON:
		return "application/json, */*;q=0.8"
	default:
		return "*/*"
	}
}
