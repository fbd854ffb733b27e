package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ── Hosted backend client ─────────────────────────────────────────────────────
// Reads and patches tables exposed by the hosted relational backend through
// its PostgREST-style API (/rest/v1/<table>?col=op.value). Every call goes
// through the circuit breaker.

const hostedPageSize = 1000

var (
	ErrHostedUnauthorized = errors.New("hosted api unauthorized")
	ErrHostedRateLimited  = errors.New("hosted api rate limited")
)

type HostedAPIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HostedAPIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hosted api error: %s", e.Status)
	}
	return fmt.Sprintf("hosted api error: %s: %s", e.Status, e.Body)
}

type HostedConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type HostedClient struct {
	http *resty.Client
	cb   *CircuitBreaker
}

func NewHostedClient(cfg HostedConfig, cb *CircuitBreaker) *HostedClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && (resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500)
		})

	if cfg.APIKey != "" {
		httpClient.SetHeader("apikey", cfg.APIKey)
		httpClient.SetAuthToken(cfg.APIKey)
	}
	return &HostedClient{http: httpClient, cb: cb}
}

// Select reads every row of tabla matching filtros, following limit/offset
// pages until a short page comes back.
func Select[T any](ctx context.Context, c *HostedClient, tabla string, filtros url.Values) ([]T, error) {
	var all []T
	for offset := 0; ; offset += hostedPageSize {
		q := url.Values{}
		for k, vs := range filtros {
			q[k] = append([]string(nil), vs...)
		}
		q.Set("limit", strconv.Itoa(hostedPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page []T
		if err := c.do(ctx, http.MethodGet, "/rest/v1/"+tabla, q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < hostedPageSize {
			return all, nil
		}
	}
}

// Update patches every row of tabla matching filtros with cambios and returns
// the rows the backend changed. Callers keep filtros selective: a PATCH with
// no filter touches the whole table.
func Update[T any](ctx context.Context, c *HostedClient, tabla string, filtros url.Values, cambios any) ([]T, error) {
	if len(filtros) == 0 {
		return nil, fmt.Errorf("hosted update %s: refusing unfiltered patch", tabla)
	}
	var rows []T
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/"+tabla, filtros, cambios, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping checks the backend is reachable; used by the health endpoint.
func (c *HostedClient) Ping(ctx context.Context) error {
	return c.cb.Do(ctx, func(ctx context.Context) error {
		resp, err := c.http.R().SetContext(ctx).Head("/rest/v1/")
		if err != nil {
			return fmt.Errorf("hosted request: %w", err)
		}
		if resp.StatusCode() >= 500 {
			return hostedError(resp)
		}
		return nil
	})
}

func (c *HostedClient) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	return c.cb.Do(ctx, func(ctx context.Context) error {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(query).
			SetResult(result)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").
				SetHeader("Prefer", "return=representation").
				SetBody(body)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("hosted request: %w", err)
		}
		if resp.IsError() {
			return hostedError(resp)
		}
		return nil
	})
}

func hostedError(resp *resty.Response) error {
	apiErr := &HostedAPIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       strings.TrimSpace(resp.String()),
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrHostedUnauthorized, apiErr.Error())
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrHostedRateLimited, apiErr.Error())
	default:
		return apiErr
	}
}

// Breaker exposes the client's circuit breaker for health reporting.
func (c *HostedClient) Breaker() *CircuitBreaker { return c.cb }
