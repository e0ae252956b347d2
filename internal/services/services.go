package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-bff/internal/chat"
	"storefront-bff/internal/config"
	"storefront-bff/internal/models"
	"storefront-bff/internal/resilience"
	"storefront-bff/internal/telemetry"
)

// TokenSource supplies the visitor's bearer token and is told when the API
// rejects it.
type TokenSource interface {
	Token() string
	Unauthorized(ctx context.Context)
}

type ServiceClient struct {
	baseURL      string
	client       *http.Client
	streamClient *http.Client
	offerCB      *resilience.CircuitBreaker[*models.Offer]
	attempts     int
	retryDelay   time.Duration
	tokens       TokenSource
}

type Option func(*ServiceClient)

func WithHTTPClient(c *http.Client) Option {
	return func(s *ServiceClient) {
		s.client = c
		s.streamClient = &http.Client{Transport: c.Transport}
	}
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *ServiceClient) {
		s.attempts = attempts
		s.retryDelay = delay
	}
}

func NewServiceClient(cfg *config.Config, opts ...Option) *ServiceClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &ServiceClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		// Chat streams outlive any fixed client timeout; callers bound them
		// with a context instead.
		streamClient: &http.Client{},
		offerCB:      resilience.NewCircuitBreaker[*models.Offer]("offer", 3, 10*time.Second),
		attempts:     3,
		retryDelay:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ForVisitor returns a client that authenticates as the given visitor.
// Transport, retry policy and breakers are shared.
func (s *ServiceClient) ForVisitor(tokens TokenSource) *ServiceClient {
	clone := *s
	clone.tokens = tokens
	return &clone
}

// call performs one request. endpoint is the path template used for metrics.
func (s *ServiceClient) call(ctx context.Context, method, endpoint, path string, query url.Values, body, target any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.tokens != nil {
		if token := s.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		telemetry.ObserveUpstream(method, endpoint, 0, time.Since(start))
		return err
	}
	defer resp.Body.Close()
	telemetry.ObserveUpstream(method, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := newAPIError(resp.StatusCode, data)

		if resp.StatusCode == http.StatusUnauthorized && s.tokens != nil {
			s.tokens.Unauthorized(ctx)
		}
		if resp.StatusCode >= 500 {
			return apiErr
		}
		return resilience.Permanent(apiErr)
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return resilience.Permanent(fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	return nil
}

// fetchJSON is an idempotent GET, retried on transport errors and 5xx.
func (s *ServiceClient) fetchJSON(ctx context.Context, endpoint, path string, query url.Values, target any) error {
	return resilience.Retry(ctx, s.attempts, s.retryDelay, func() error {
		return s.call(ctx, http.MethodGet, endpoint, path, query, nil, target)
	})
}

// send is a single non-idempotent request; it is never retried.
func (s *ServiceClient) send(ctx context.Context, method, endpoint, path string, body, target any) error {
	return resilience.StripPermanent(s.call(ctx, method, endpoint, path, nil, body, target))
}

func (s *ServiceClient) GetProducts(ctx context.Context, category string) ([]models.Product, error) {
	query := url.Values{}
	if category != "" && category != "all" {
		query.Set("category", category)
	}
	var products []models.Product
	if err := s.fetchJSON(ctx, "/products", "/products", query, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns nil, nil when the product does not exist.
func (s *ServiceClient) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.fetchJSON(ctx, "/products/{id}", "/products/"+url.PathEscape(id), nil, &product)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ServiceClient) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	if strings.TrimSpace(q) == "" {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := s.fetchJSON(ctx, "/products/search", "/products/search", url.Values{"q": {q}}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *ServiceClient) GetActiveOffer(ctx context.Context) (*models.Offer, error) {
	return s.offerCB.Execute(func() (*models.Offer, error) {
		var offer models.Offer
		if err := s.fetchJSON(ctx, "/offer/active", "/offer/active", nil, &offer); err != nil {
			return nil, err
		}
		return &offer, nil
	})
}

func (s *ServiceClient) SubscribeNewsletter(ctx context.Context, email string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	body := map[string]string{"email": email}
	if err := s.send(ctx, http.MethodPost, "/newsletter/subscribe", "/newsletter/subscribe", body, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (s *ServiceClient) PlaceOrder(ctx context.Context, order models.OrderRequest) (*models.OrderResult, error) {
	var result models.OrderResult
	if err := s.send(ctx, http.MethodPost, "/orders/place", "/orders/place", order, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *ServiceClient) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp models.AuthResponse
	if err := s.send(ctx, http.MethodPost, "/auth/login", "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *ServiceClient) VerifyGoogleToken(ctx context.Context, idToken string) (*models.AuthResponse, error) {
	body := map[string]string{"idToken": idToken}
	var resp models.AuthResponse
	if err := s.send(ctx, http.MethodPost, "/auth/verify-google-token", "/auth/verify-google-token", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me checks token against the session endpoint and returns its user.
func (s *ServiceClient) Me(ctx context.Context, token string) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	bound := s.ForVisitor(staticToken(token))
	if err := bound.fetchJSON(ctx, "/auth/me", "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("session check: response has no user")
	}
	return resp.User, nil
}

func (s *ServiceClient) AddProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	var product models.Product
	if err := s.send(ctx, http.MethodPost, "/admin/products", "/admin/products", input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ServiceClient) UpdateProduct(ctx context.Context, id string, input models.ProductInput) (*models.Product, error) {
	var product models.Product
	path := "/admin/products/" + url.PathEscape(id)
	if err := s.send(ctx, http.MethodPut, "/admin/products/{id}", path, input, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ServiceClient) DeleteProduct(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	path := "/admin/products/" + url.PathEscape(id)
	if err := s.send(ctx, http.MethodDelete, "/admin/products/{id}", path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ChatStream opens the assistant stream for prompt. Connection and HTTP
// failures come back as a stream holding a single apology fragment.
func (s *ServiceClient) ChatStream(ctx context.Context, prompt string) *chat.Stream {
	buf, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return chat.Failed(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/stream", bytes.NewReader(buf))
	if err != nil {
		return chat.Failed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.tokens != nil {
		if token := s.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := s.streamClient.Do(req)
	if err != nil {
		telemetry.ObserveUpstream(http.MethodPost, "/chat/stream", 0, time.Since(start))
		return chat.Failed(err)
	}
	telemetry.ObserveUpstream(http.MethodPost, "/chat/stream", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized && s.tokens != nil {
			s.tokens.Unauthorized(ctx)
		}
		return chat.Failed(fmt.Errorf("HTTP error! status: %d", resp.StatusCode))
	}
	return chat.NewStream(ctx, resp.Body)
}

type staticToken string

func (t staticToken) Token() string                { return string(t) }
func (t staticToken) Unauthorized(context.Context) {}
