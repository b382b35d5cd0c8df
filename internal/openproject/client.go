package openproject

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each HTTP call when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

const (
	apiPrefix        = "/api/v3"
	apiKeyUser       = "apikey"
	maxResponseBytes = 64 << 20
)

// Logger is the logging capability used by the client. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the root of the OpenProject installation, without the
	// /api/v3 suffix. Required.
	BaseURL string

	// APIKey authenticates as Basic "apikey:<key>". Takes precedence over
	// Username and Password.
	APIKey string

	Username string
	Password string

	// InsecureSkipVerify disables TLS certificate verification. Only for
	// self-signed installations.
	InsecureSkipVerify bool

	// Timeout bounds every HTTP call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client. Its Timeout is set to Timeout
	// when unset. InsecureSkipVerify has no effect on a custom client.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger Logger
}

// Client talks to the OpenProject API v3.
type Client struct {
	baseURL    string
	apiURL     string
	httpClient *http.Client
	username   string
	password   string
	logger     Logger
}

// NewClient validates config and builds a Client.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("openproject: BaseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("openproject: invalid BaseURL %q", config.BaseURL)
	}

	var username, password string
	switch {
	case config.APIKey != "":
		username, password = apiKeyUser, config.APIKey
	case config.Username != "" && config.Password != "":
		username, password = config.Username, config.Password
	default:
		return nil, errors.New("openproject: no credentials configured (set APIKey or Username and Password)")
	}

	var logger Logger = slog.Default()
	if config.Logger != nil {
		logger = config.Logger
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var httpClient *http.Client
	if config.HTTPClient != nil {
		custom := *config.HTTPClient
		if custom.Timeout == 0 {
			custom.Timeout = timeout
		}
		httpClient = &custom
	} else {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if config.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
		}
		httpClient = &http.Client{Transport: transport, Timeout: timeout}
	}
	if config.InsecureSkipVerify {
		logger.Warn("TLS certificate verification disabled", "base_url", baseURL)
	}

	return &Client{
		baseURL:    baseURL,
		apiURL:     baseURL + apiPrefix,
		httpClient: httpClient,
		username:   username,
		password:   password,
		logger:     logger,
	}, nil
}

// BaseURL returns the configured installation root.
func (client *Client) BaseURL() string {
	return client.baseURL
}

func (client *Client) href(collection string, id int) string {
	return resourceHref(client.baseURL, collection, id)
}

func (client *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("openproject: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.apiURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("openproject: creating request: %w", err)
	}
	request.SetBasicAuth(client.username, client.password)
	request.Header.Set("Accept", "application/hal+json, application/json")
	request.Header.Set("Content-Type", "application/json")

	start := time.Now()
	response, err := client.httpClient.Do(request)
	if err != nil {
		client.logger.Debug("openproject request failed", "method", method, "path", path, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, &transportError{method: method, path: path, err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return nil, &transportError{method: method, path: path, err: fmt.Errorf("reading response body: %w", err)}
	}
	client.logger.Debug("openproject request", "method", method, "path", path, "status", response.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, parseAPIErrorFromBody(response.StatusCode, body)
	}
	return body, nil
}

func decodeBody(body []byte, result any) error {
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("openproject: decoding response: %w", err)
	}
	return nil
}

func (client *Client) get(ctx context.Context, path string, result any) error {
	body, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeBody(body, result)
}

func (client *Client) post(ctx context.Context, path string, requestBody, result any) error {
	body, err := client.do(ctx, http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}
	return decodeBody(body, result)
}

func (client *Client) patch(ctx context.Context, path string, requestBody, result any) error {
	body, err := client.do(ctx, http.MethodPatch, path, requestBody)
	if err != nil {
		return err
	}
	return decodeBody(body, result)
}

func (client *Client) delete(ctx context.Context, path string) error {
	_, err := client.do(ctx, http.MethodDelete, path, nil)
	return err
}

// Collection is one page of normalized resources.
type Collection[T any] struct {
	Type     string `json:"_type"`
	Total    int    `json:"total"`
	Count    int    `json:"count"`
	PageSize int    `json:"pageSize"`
	Offset   int    `json:"offset"`
	Elements []T    `json:"elements"`
}

type collectionWire[W any] struct {
	Type     string `json:"_type"`
	Total    int    `json:"total"`
	Count    int    `json:"count"`
	PageSize int    `json:"pageSize"`
	Offset   int    `json:"offset"`
	Embedded struct {
		Elements []W `json:"elements"`
	} `json:"_embedded"`
}

func getCollection[W, T any](ctx context.Context, client *Client, path string, params QueryParams, normalize func(W) T) (*Collection[T], error) {
	var wire collectionWire[W]
	if err := client.get(ctx, path+params.Encode(), &wire); err != nil {
		return nil, err
	}
	out := &Collection[T]{
		Type:     wire.Type,
		Total:    wire.Total,
		Count:    wire.Count,
		PageSize: wire.PageSize,
		Offset:   wire.Offset,
		Elements: make([]T, 0, len(wire.Embedded.Elements)),
	}
	for _, element := range wire.Embedded.Elements {
		out.Elements = append(out.Elements, normalize(element))
	}
	return out, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
