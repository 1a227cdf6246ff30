package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/ssgelm/cookiejarparser"
)

const (
	// DefaultBaseURL points at the REST API root of a local server.
	DefaultBaseURL = "http://localhost:8080/nuxeo/api/v1"

	// RepositoryHeader selects the repository a request is executed against.
	RepositoryHeader = "X-NXRepository"

	defaultTimeout = 30 * time.Second
)

// ClientConfig holds the settings used to build a Client.
type ClientConfig struct {
	// BaseURL is the REST API root every request path is relative to.
	BaseURL string

	// Username and Password enable HTTP basic auth when both are set.
	Username string
	Password string

	// CookieJarPath loads session cookies from a Netscape cookie file.
	CookieJarPath string

	// Headers are added to every request.
	Headers []string

	// RetryMax is the number of retries on transient failures.
	// Zero, the default, disables retries.
	RetryMax int

	Timeout time.Duration

	Logger *zerolog.Logger
}

var defaultClientConfig = ClientConfig{
	BaseURL: DefaultBaseURL,
	Timeout: defaultTimeout,
}

// Client talks to the REST API rooted at a base URL.
type Client struct {
	baseURL  *url.URL
	client   *retryablehttp.Client
	headers  http.Header
	username string
	password string
	logger   zerolog.Logger
}

// Response wraps the raw HTTP response of a request.
type Response struct {
	*http.Response
}

// NewClient returns a Client configured from config. Unset fields
// fall back to their defaults.
func NewClient(config ClientConfig) (*Client, error) {
	if err := mergo.Merge(&config, defaultClientConfig); err != nil {
		return nil, fmt.Errorf("merging client defaults: %w", err)
	}

	baseURL, err := url.Parse(strings.TrimSuffix(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", config.BaseURL)
	}

	headers, err := parseHeaders(config.Headers)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = config.RetryMax
	httpClient.HTTPClient.Timeout = config.Timeout
	httpClient.Logger = leveledLogger{logger: logger}
	// keep non-2xx responses so they can be turned into APIErrors
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if config.CookieJarPath != "" {
		jar, err := cookiejarparser.LoadCookieJarFile(config.CookieJarPath)
		if err != nil {
			return nil, fmt.Errorf("loading cookie jar: %w", err)
		}
		httpClient.HTTPClient.Jar = jar
	}

	return &Client{
		baseURL:  baseURL,
		client:   httpClient,
		headers:  headers,
		username: config.Username,
		password: config.Password,
		logger:   logger,
	}, nil
}

func parseHeaders(headers []string) (http.Header, error) {
	res := http.Header{}
	for _, h := range headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("header %q must be of the form 'name:value'", h)
		}
		res.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return res, nil
}

// BaseURL returns the API root of c.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// NewRequest builds a request for endpoint, relative to the base URL.
// qs is encoded into the query string using its `url` struct tags and
// body, when non-nil, is sent as JSON.
func (c *Client) NewRequest(method, endpoint string, qs interface{}, body interface{},
) (*retryablehttp.Request, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint can't be empty")
	}
	u, err := url.Parse(c.baseURL.String() + "/" + strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}

	if qs != nil {
		values, err := query.Values(qs)
		if err != nil {
			return nil, fmt.Errorf("encoding query string: %w", err)
		}
		for k, vs := range u.Query() {
			for _, v := range vs {
				values.Add(k, v)
			}
		}
		u.RawQuery = values.Encode()
	}

	var rawBody interface{}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		rawBody = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequest(method, u.String(), rawBody)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// Do executes req. A 2xx JSON body is decoded into v when v is non-nil;
// any other status, including a redirect that was not followed, is
// returned as an *APIError along with the response.
func (c *Client) Do(ctx context.Context, req *retryablehttp.Request, v interface{},
) (*Response, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	req = req.WithContext(ctx)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	response := &Response{Response: resp}

	if err := hasError(resp); err != nil {
		return response, err
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return response, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return response, fmt.Errorf("decoding response of %s %s: %w", req.Method, req.URL.Path, err)
	}
	return response, nil
}

func hasError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return &APIError{
		httpCode: resp.StatusCode,
		message:  messageFromBody(body),
	}
}

func messageFromBody(b []byte) string {
	s := struct {
		Message string `json:"message"`
	}{}
	if err := json.Unmarshal(b, &s); err == nil && s.Message != "" {
		return s.Message
	}
	return strings.TrimSpace(string(b))
}

// leveledLogger routes retryablehttp logs through zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
