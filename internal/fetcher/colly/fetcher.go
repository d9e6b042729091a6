// Package collyfetcher implements primerblast.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/primerblast-validator/internal/metrics"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// ErrHTTPStatus is wrapped by Fetch when the server answers with 4xx or 5xx.
var ErrHTTPStatus = errors.New("unexpected http status")

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// FollowRedirects is false for submissions: the job key lives in the
	// page that issues the redirect.
	FollowRedirects bool
	// MaxBodyBytes caps response size; 0 means unlimited.
	MaxBodyBytes int
	// Name labels fetch metrics ("submit", "results").
	Name string
}

// Fetcher implements primerblast.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Transport, timeout and redirect policy live on the
// base collector because clones share its HTTP client.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "fetch"
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	if !cfg.FollowRedirects {
		c.SetRedirectHandler(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		})
	}
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single GET, or a form POST when request.Method is POST.
func (f *Fetcher) Fetch(ctx context.Context, request primerblast.FetchRequest) (primerblast.FetchResponse, error) {
	var (
		result   primerblast.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(ctx, request, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request, &fetchErr); err != nil {
		metrics.ObserveFetch(f.cfg.Name, 0, time.Since(start), err)
		return primerblast.FetchResponse{}, err
	}
	metrics.ObserveFetch(f.cfg.Name, result.StatusCode, time.Since(start), nil)
	if result.StatusCode >= http.StatusBadRequest {
		return result, fmt.Errorf("%w: %d from %s", ErrHTTPStatus, result.StatusCode, request.URL)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	request primerblast.FetchRequest,
	start time.Time,
	result *primerblast.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	collector.ParseHTTPErrorResponse = true
	collector.MaxBodySize = f.cfg.MaxBodyBytes
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	f.configureCollectorHooks(collector, request, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request primerblast.FetchRequest,
	start time.Time,
	result *primerblast.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = primerblast.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	request primerblast.FetchRequest,
	fetchErr *error,
) error {
	done := make(chan error, 1)
	go func() {
		if request.Method == http.MethodPost {
			done <- collector.Post(request.URL, request.Form)
			return
		}
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly request failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(request primerblast.FetchRequest, r *colly.Request) {
	if request.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
