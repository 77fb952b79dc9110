package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const (
	ctxBodyKey   = "body"
	ctxStatusKey = "status"
	ctxErrKey    = "err"
)

// FetcherConfig configures the HTTP fetcher
type FetcherConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	RequestDelay   time.Duration
	RespectRobots  bool
	MaxBodySize    int
}

// CollyFetcher fetches pages with a synchronous colly collector.
// One attempt per call; 403 and 404 are dead ends, every other status
// yields its body.
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a fetcher from cfg
func NewCollyFetcher(cfg FetcherConfig) (*CollyFetcher, error) {
	options := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxDepth(0), // Managed by the frontier
	}
	if cfg.UserAgent != "" {
		options = append(options, colly.UserAgent(cfg.UserAgent))
	}
	if cfg.MaxBodySize > 0 {
		options = append(options, colly.MaxBodySize(cfg.MaxBodySize))
	}

	c := colly.NewCollector(options...)
	c.IgnoreRobotsTxt = !cfg.RespectRobots

	if cfg.RequestTimeout > 0 {
		c.SetRequestTimeout(cfg.RequestTimeout)
	}

	if cfg.RequestDelay > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob: "*",
			Delay:      cfg.RequestDelay,
		}); err != nil {
			return nil, fmt.Errorf("failed to set request delay: %w", err)
		}
	}

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatusKey, r.StatusCode)
		r.Ctx.Put(ctxBodyKey, string(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxErrKey, err)
		}
	})

	return &CollyFetcher{collector: c}, nil
}

// Fetch performs one GET for pageURL
func (f *CollyFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, pageURL, err)
	}

	reqCtx := colly.NewContext()
	hdr := http.Header{}

	start := time.Now()
	err := f.collector.Request(http.MethodGet, pageURL, nil, reqCtx, hdr)
	logrus.Debugf("Fetched %s in %v", pageURL, time.Since(start))

	if err == nil {
		if cbErr, ok := reqCtx.GetAny(ctxErrKey).(error); ok {
			err = cbErr
		}
	}
	if err != nil {
		if isReadError(err) {
			return "", fmt.Errorf("%w: %s: %v", ErrContentRead, pageURL, err)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, pageURL, err)
	}

	status, _ := reqCtx.GetAny(ctxStatusKey).(int)
	if isDeadEnd(status) {
		return "", fmt.Errorf("%w: %s: status %d", ErrFetchFailed, pageURL, status)
	}

	body, ok := reqCtx.GetAny(ctxBodyKey).(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: no response body", ErrContentRead, pageURL)
	}

	return body, nil
}

// isDeadEnd reports statuses that never lead anywhere
func isDeadEnd(status int) bool {
	return status == http.StatusNotFound || status == http.StatusForbidden
}

// isReadError reports errors raised while reading an already received body
func isReadError(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF)
}
