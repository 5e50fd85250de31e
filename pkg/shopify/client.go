package shopify

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

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shopdash/pkg/domain/model"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"
	callLimitHeader   = "X-Shopify-Shop-Api-Call-Limit"

	shopifyBaseDomain  = "myshopify.com"
	defaultAPIVersion  = "2024-10"
	defaultHTTPTimeout = 30 * time.Second

	graphQLErrorCodeThrottled    = "THROTTLED"
	graphQLErrorCodeAccessDenied = "ACCESS_DENIED"
)

// Option configures a Client.
type Option func(c *Client)

// WithAPIVersion overrides the Admin API version.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithHTTPClient injects the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL routes all requests to a fixed base URL instead of the store's
// myshopify.com domain. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// Client is the authenticated transport to the Shopify Admin APIs. Both REST
// and GraphQL calls share it; the per-store access token is attached as the
// X-Shopify-Access-Token header.
type Client struct {
	apiVersion string
	baseURL    string
	httpClient *http.Client
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a raw REST response: the decoded-on-demand body plus the
// headers the pagination engine reads the Link cursor from.
type Response struct {
	Body   json.RawMessage
	Header http.Header
}

// Call performs one REST Admin API request. path is relative to
// /admin/api/<version>/, e.g. "orders.json". A non-nil body is marshaled to
// JSON for POST/PUT requests. A non-2xx status surfaces as an *APIError
// classified by status code.
func (c *Client) Call(ctx context.Context, store model.Store, method, path string, params url.Values, body any) (*Response, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/%s", c.storeBaseURL(store), c.apiVersion, strings.TrimPrefix(path, "/"))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, store.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: err.Error()}
	}

	c.logCallLimit(store, resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, truncate(string(respBody), 300))
	}

	return &Response{Body: respBody, Header: resp.Header}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLEnvelope struct {
	Data       json.RawMessage `json:"data"`
	Errors     []graphQLError  `json:"errors,omitempty"`
	Extensions struct {
		Cost struct {
			RequestedQueryCost float64 `json:"requestedQueryCost"`
			ActualQueryCost    float64 `json:"actualQueryCost"`
		} `json:"cost"`
	} `json:"extensions"`
}

// GraphQL performs one Admin GraphQL request and returns the data payload.
// Top-level GraphQL errors are mapped onto the same taxonomy as REST errors
// (THROTTLED→rate limited, ACCESS_DENIED→protected data).
func (c *Client) GraphQL(ctx context.Context, store model.Store, query string, variables map[string]any) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.storeBaseURL(store), c.apiVersion)

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, errors.Wrap(err, "marshal graphql request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accessTokenHeader, store.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, truncate(string(body), 300))
	}

	var envelope graphQLEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &APIError{Kind: KindTransient, Message: "malformed graphql envelope: " + err.Error()}
	}

	if len(envelope.Errors) > 0 {
		return nil, graphQLErrorToAPIError(envelope.Errors)
	}

	if envelope.Extensions.Cost.ActualQueryCost > 0 {
		log.WithFields(log.Fields{
			"shop": store.ShopDomain,
			"cost": envelope.Extensions.Cost.ActualQueryCost,
		}).Debug("graphql query cost")
	}

	return envelope.Data, nil
}

func graphQLErrorToAPIError(gqlErrors []graphQLError) *APIError {
	messages := make([]string, 0, len(gqlErrors))
	kind := KindTransient
	for _, e := range gqlErrors {
		messages = append(messages, e.Message)
		switch e.Extensions.Code {
		case graphQLErrorCodeThrottled:
			kind = KindRateLimited
		case graphQLErrorCodeAccessDenied:
			kind = KindProtectedData
		}
	}
	return &APIError{Kind: kind, Message: strings.Join(messages, "; ")}
}

func (c *Client) storeBaseURL(store model.Store) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	domain := store.ShopDomain
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	if !strings.Contains(domain, ".") {
		domain = domain + "." + shopifyBaseDomain
	}
	return "https://" + domain
}

func (c *Client) logCallLimit(store model.Store, header http.Header) {
	limit := header.Get(callLimitHeader)
	if limit == "" {
		return
	}
	log.WithFields(log.Fields{"shop": store.ShopDomain, "call_limit": limit}).Debug("rest call limit")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
