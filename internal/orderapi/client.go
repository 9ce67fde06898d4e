package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-checkout/internal/domain"

	"github.com/google/uuid"
)

const headerCorrelationID = "X-Correlation-ID"

// Session is the identity provider the client reads tokens from and terminates on 401.
type Session interface {
	Current() (*domain.User, bool)
	Token() string
	Logout() bool
}

// Client talks to the orders API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session Session
	logger  *log.Logger
}

func New(baseURL string, httpClient *http.Client, session Session, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid orders api base url %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{baseURL: u, http: httpClient, session: session, logger: logger}, nil
}

type call struct {
	op     string
	method string
	path   string
	in     any
	out    any
	public bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	token := ""
	if !cl.public {
		token = c.session.Token()
		if token == "" {
			return ErrUnauthenticated
		}
	}

	var body io.Reader
	if cl.in != nil {
		raw, err := json.Marshal(cl.in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(raw)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(cl.path, "/")})
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerCorrelationID, uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(cl.op, 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.fail(cl.op, 0, "", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverMsg := serverMessage(raw)
		return c.fail(cl.op, resp.StatusCode, serverMsg,
			fmt.Errorf("%s %s: status %d: %s", cl.method, u.Path, resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	if cl.out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, cl.out); err != nil {
			return fmt.Errorf("%s: decode response: %w", cl.op, err)
		}
	}
	return nil
}

// fail builds the APIError for a failed call and ends the session on 401.
func (c *Client) fail(op string, status int, serverMsg string, cause error) error {
	apiErr := &APIError{Op: op, Status: status, Message: userMessage(status, serverMsg), Err: cause}
	c.logger.Printf("orders api: %s failed status=%d err=%v", op, status, cause)
	if apiErr.SessionExpired() && c.session != nil {
		if c.session.Logout() {
			c.logger.Printf("orders api: session terminated after 401")
		}
	}
	return apiErr
}

func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

func isAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
