// Package api is the REST client for the barangay residents and officials API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/barangay/internal/cachemanager"
	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/tracing"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

const (
	pathResidents         = "/api/v1/residents"
	pathResident          = "/api/v1/residents/{id}"
	pathOfficials         = "/api/v1/officials"
	pathOfficial          = "/api/v1/officials/{id}"
	pathRegistrationCheck = "/api/v1/officials/registration-check/{residentId}"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	RetryCount     int
	RetryWaitTime  time.Duration
	SearchCacheTTL time.Duration // 0 disables the search cache
	Tracer         trace.Tracer
	HTTPClient     *http.Client
}

// Client talks to the barangay API.
type Client struct {
	http   *resty.Client
	tracer trace.Tracer
	search *cachemanager.ReadThroughCache[string, []domain.ResidentCandidate, string]
}

// New builds a Client from opts.
func New(opts Options) *Client {
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	wait := opts.RetryWaitTime
	if wait == 0 {
		wait = 500 * time.Millisecond
	}
	rc.SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(4*wait).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(retryIdempotent5xx).
		AddRetryHook(func(r *resty.Response, err error) {
			if r == nil || r.Request == nil {
				return
			}
			fields := []any{"url", r.Request.URL, "attempt", r.Request.Attempt}
			if err != nil {
				fields = append(fields, "error", err)
			} else {
				fields = append(fields, "status", r.StatusCode())
			}
			log.Warn(log.CatAPI, "retrying request", fields...)
			trace.SpanFromContext(r.Request.Context()).AddEvent(tracing.EventRetry)
		})
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}

	c := &Client{http: rc, tracer: tracer}

	ttl := opts.SearchCacheTTL
	var cache cachemanager.CacheManager[string, []domain.ResidentCandidate]
	if ttl > 0 {
		cache = cachemanager.NewInMemoryCacheManager[string, []domain.ResidentCandidate](
			"resident-search", ttl, cachemanager.DefaultCleanupInterval)
	}
	c.search = cachemanager.NewReadThroughCache(cache, c.searchResidents, ttl)
	return c
}

// retryIdempotent5xx retries gateway-style failures on GET and PUT only.
// Transport errors are retried by resty regardless of this condition.
func retryIdempotent5xx(r *resty.Response, err error) bool {
	if err != nil || r == nil || r.Request == nil {
		return false
	}
	switch r.Request.Method {
	case http.MethodGet, http.MethodPut:
	default:
		return false
	}
	switch r.StatusCode() {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// call executes one request and unwraps the envelope into T.
func call[T any](ctx context.Context, c *Client, op string, req func(*resty.Request) *resty.Request, method, path string, attrs ...attribute.KeyValue) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixAPI+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(append(attrs,
		attribute.String(tracing.AttrHTTPMethod, method),
		attribute.String(tracing.AttrHTTPPath, path),
	)...)

	var okEnv Result[T]
	var errEnv Result[any]
	r := c.http.R().SetContext(ctx).SetResult(&okEnv).SetError(&errEnv)
	if req != nil {
		r = req(r)
	}

	start := time.Now()
	resp, err := r.Execute(method, path)
	if err != nil {
		log.ErrorErr(log.CatAPI, "request failed", err, "op", op)
		tracing.End(span, err)
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, resp.StatusCode()))
	log.Debug(log.CatAPI, "request complete", "op", op, "status", resp.StatusCode(), "took", time.Since(start))

	if resp.IsError() {
		apiErr := &Error{Status: resp.StatusCode(), Code: errEnv.Code, Message: errEnv.Message}
		tracing.End(span, apiErr)
		return zero, apiErr
	}
	if okEnv.Code != ResultSuccess {
		apiErr := &Error{Status: resp.StatusCode(), Code: okEnv.Code, Message: okEnv.Message}
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("%s: unexpected response code %d", op, okEnv.Code)
		}
		tracing.End(span, apiErr)
		return zero, apiErr
	}

	tracing.End(span, nil)
	return okEnv.Result, nil
}

// SearchResidents returns residents matching q. Blank queries return no
// results without a request. Results are cached per normalized query.
func (c *Client) SearchResidents(ctx context.Context, q string) ([]domain.ResidentCandidate, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixAPI+"SearchResidents")
	span.SetAttributes(attribute.String(tracing.AttrSearchQuery, q))
	list, err := c.search.Get(ctx, strings.ToLower(q), q)
	if err == nil {
		span.SetAttributes(attribute.Int(tracing.AttrResultCount, len(list)))
	}
	tracing.End(span, err)
	return list, err
}

// searchResidents is the cache loader; its request span is a child of the
// SearchResidents span that missed.
func (c *Client) searchResidents(ctx context.Context, q string) ([]domain.ResidentCandidate, error) {
	list, err := call[[]domain.ResidentCandidate](ctx, c, "FetchResidents",
		func(r *resty.Request) *resty.Request { return r.SetQueryParam("search", q) },
		http.MethodGet, pathResidents,
		attribute.String(tracing.AttrSearchQuery, q),
	)
	if err != nil {
		return nil, err
	}
	log.Debug(log.CatAPI, "residents found", "query", q, "count", len(list))
	return list, nil
}

// GetResident fetches the full resident record.
func (c *Client) GetResident(ctx context.Context, id string) (domain.ResidentDetail, error) {
	return call[domain.ResidentDetail](ctx, c, "GetResident",
		func(r *resty.Request) *resty.Request { return r.SetPathParam("id", id) },
		http.MethodGet, pathResident,
		attribute.String(tracing.AttrResidentID, id),
	)
}

// IsAlreadyOfficial returns the number of active official registrations for
// residentID. Zero means the resident is free to register.
func (c *Client) IsAlreadyOfficial(ctx context.Context, residentID string) (int, error) {
	return call[int](ctx, c, "IsAlreadyOfficial",
		func(r *resty.Request) *resty.Request { return r.SetPathParam("residentId", residentID) },
		http.MethodGet, pathRegistrationCheck,
		attribute.String(tracing.AttrResidentID, residentID),
	)
}

// CreateOfficial registers a new official.
func (c *Client) CreateOfficial(ctx context.Context, data domain.OfficialFormData) (domain.Official, error) {
	official, err := call[domain.Official](ctx, c, "CreateOfficial",
		func(r *resty.Request) *resty.Request { return r.SetBody(data) },
		http.MethodPost, pathOfficials,
		attribute.String(tracing.AttrResidentID, data.ResidentID),
	)
	if err == nil {
		log.Info(log.CatAPI, "official created", "id", official.ID, "resident", data.ResidentID)
	}
	return official, err
}

// UpdateOfficial replaces the official record id.
func (c *Client) UpdateOfficial(ctx context.Context, id string, data domain.OfficialFormData) (domain.Official, error) {
	official, err := call[domain.Official](ctx, c, "UpdateOfficial",
		func(r *resty.Request) *resty.Request { return r.SetPathParam("id", id).SetBody(data) },
		http.MethodPut, pathOfficial,
		attribute.String(tracing.AttrOfficialID, id),
	)
	if err == nil {
		log.Info(log.CatAPI, "official updated", "id", id)
	}
	return official, err
}

// GetOfficial fetches one official.
func (c *Client) GetOfficial(ctx context.Context, id string) (domain.Official, error) {
	return call[domain.Official](ctx, c, "GetOfficial",
		func(r *resty.Request) *resty.Request { return r.SetPathParam("id", id) },
		http.MethodGet, pathOfficial,
		attribute.String(tracing.AttrOfficialID, id),
	)
}

// ListOfficials returns every official.
func (c *Client) ListOfficials(ctx context.Context) ([]domain.Official, error) {
	list, err := call[[]domain.Official](ctx, c, "ListOfficials", nil, http.MethodGet, pathOfficials)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// InvalidateSearch drops cached resident searches.
func (c *Client) InvalidateSearch(ctx context.Context) error {
	return c.search.Invalidate(ctx)
}
