// Package provider wraps the generation provider's paged REST API.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dream-export/internal/config"
	"dream-export/internal/domain/generation"
	"dream-export/internal/domain/retry"
	"dream-export/internal/infrastructure/metrics"
)

const (
	consecutiveFailureLimit = 3
	pageDelayBase           = 500 * time.Millisecond
	pageDelayStep           = 50 * time.Millisecond
	pageDelayMax            = 2 * time.Second
	probeBatchPause         = 500 * time.Millisecond
	defaultContentType      = "video/mp4"
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the provider's list endpoint and asset CDN.
type Client struct {
	cfg      *config.Config
	list     *resty.Client
	probe    *resty.Client
	download *resty.Client
	log      zerolog.Logger
}

// NewClient creates a resty-backed provider client. Separate transports
// carry the three timeout classes: list page fetches, HEAD probes and
// full binary downloads.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		cfg: cfg,
		list: resty.New().
			SetBaseURL(cfg.ProviderBaseURL).
			SetAuthToken(cfg.ProviderAPIKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.ListTimeout),
		probe:    resty.New().SetTimeout(cfg.HeadTimeout),
		download: resty.New().SetTimeout(cfg.DownloadTimeout),
		log:      log.With().Str("component", "provider-client").Logger(),
	}
}

// FetchPage fetches one page of the provider's list endpoint, retrying
// transport failures and HTTP 502/429 with exponential backoff. Any other
// upstream error surfaces immediately.
func (c *Client) FetchPage(ctx context.Context, limit, offset int) (generation.Page, error) {
	page, err := retry.ExecuteWithResult(ctx, retry.PageFetchPolicy(), pageRetryable,
		func(ctx context.Context, attempt int) (generation.Page, error) {
			if attempt > 0 {
				c.log.Debug().Int("attempt", attempt).Int("offset", offset).Msg("retrying page fetch")
			}

			var page generation.Page
			resp, err := c.list.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"limit":  strconv.Itoa(limit),
					"offset": strconv.Itoa(offset),
				}).
				SetResult(&page).
				Get("/generations")
			if err != nil {
				return generation.Page{}, fmt.Errorf("fetch generations page: %w", err)
			}
			if resp.IsError() {
				return generation.Page{}, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
			}
			return page, nil
		})

	if err != nil {
		metrics.ProviderPagesTotal.WithLabelValues("error").Inc()
		return generation.Page{}, err
	}
	metrics.ProviderPagesTotal.WithLabelValues("ok").Inc()
	return page, nil
}

func pageRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 502 || apiErr.StatusCode == 429
	}
	// Transport-level failure.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// EnumerateAll pages through the list endpoint, keeping only completed
// videos with an asset URL, up to maxItems records. Page-level failures
// are tolerated until three happen in a row; the partial accumulation is
// then returned with OutcomeAborted rather than an error. A progressive
// pacing delay runs between successful pages to stay clear of provider
// rate limits.
func (c *Client) EnumerateAll(ctx context.Context, maxItems int) generation.Enumeration {
	if maxItems <= 0 {
		maxItems = c.cfg.ProviderMaxVideos
	}
	pageSize := c.cfg.ProviderPageSize

	var acc []generation.Generation
	offset := 0
	pageIndex := 0
	consecutiveFailures := 0
	outcome := generation.OutcomeComplete

	for {
		if ctx.Err() != nil {
			outcome = generation.OutcomeAborted
			break
		}

		page, err := c.FetchPage(ctx, pageSize, offset)
		if err != nil {
			consecutiveFailures++
			c.log.Warn().Err(err).
				Int("offset", offset).
				Int("consecutive_failures", consecutiveFailures).
				Msg("page fetch failed during enumeration")
			if consecutiveFailures >= consecutiveFailureLimit {
				outcome = generation.OutcomeAborted
				break
			}
			offset += pageSize
			pageIndex++
			continue
		}
		consecutiveFailures = 0

		dropped := false
		for _, gen := range page.Generations {
			if !gen.Downloadable() {
				continue
			}
			if len(acc) >= maxItems {
				dropped = true
				break
			}
			acc = append(acc, gen)
		}

		offset += pageSize
		pageIndex++

		// Dropping items from a final page is still truncation.
		if dropped || (len(acc) >= maxItems && page.HasMore) {
			outcome = generation.OutcomeTruncated
			break
		}
		if !page.HasMore {
			outcome = generation.OutcomeComplete
			break
		}

		if err := sleepCtx(ctx, pageDelay(pageIndex)); err != nil {
			outcome = generation.OutcomeAborted
			break
		}
	}

	metrics.EnumerationsTotal.WithLabelValues(string(outcome)).Inc()
	c.log.Info().
		Int("videos", len(acc)).
		Str("outcome", string(outcome)).
		Msg("enumeration finished")

	return generation.Enumeration{Generations: acc, Outcome: outcome}
}

func pageDelay(pageIndex int) time.Duration {
	delay := pageDelayBase + time.Duration(pageIndex)*pageDelayStep
	if delay > pageDelayMax {
		delay = pageDelayMax
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HeadAsset probes an asset URL for size and content type. Probing is
// best effort: only connection-reset and descriptor-exhaustion failures
// are retried, and a terminal failure yields Known=false instead of an
// error so metadata lookups can never stall the pipeline.
func (c *Client) HeadAsset(ctx context.Context, url string) generation.AssetProbe {
	probe, err := retry.ExecuteWithResult(ctx, retry.ProbePolicy(), connRetryable,
		func(ctx context.Context, attempt int) (generation.AssetProbe, error) {
			resp, err := c.probe.R().SetContext(ctx).Head(url)
			if err != nil {
				return generation.AssetProbe{}, fmt.Errorf("head asset: %w", err)
			}
			if resp.IsError() {
				return generation.AssetProbe{}, &APIError{StatusCode: resp.StatusCode(), Body: resp.Status()}
			}

			size, _ := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
			contentType := resp.Header().Get("Content-Type")
			if contentType == "" {
				contentType = defaultContentType
			}
			return generation.AssetProbe{Size: size, ContentType: contentType, Known: true}, nil
		})

	if err != nil {
		c.log.Debug().Err(err).Str("url", url).Msg("asset probe failed")
		return generation.AssetProbe{ContentType: defaultContentType}
	}
	return probe
}

func connRetryable(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) {
		return true
	}
	return false
}

// HeadAssetsBatched probes URLs in fixed-size batches, all probes of one
// batch in flight at once, pausing between batches. The batch size bounds
// simultaneously open connections.
func (c *Client) HeadAssetsBatched(ctx context.Context, urls []string) []generation.AssetProbe {
	probes := make([]generation.AssetProbe, len(urls))
	batchSize := c.cfg.HeadConcurrency

	for start := 0; start < len(urls); start += batchSize {
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}

		var wg errgroup.Group
		for i := start; i < end; i++ {
			wg.Go(func() error {
				probes[i] = c.HeadAsset(ctx, urls[i])
				return nil
			})
		}
		_ = wg.Wait()

		if end < len(urls) {
			if err := sleepCtx(ctx, probeBatchPause); err != nil {
				break
			}
		}
	}

	return probes
}

// DownloadAsset fetches a binary payload in full. Callers are expected to
// catch per-item failures and skip rather than abort a batch.
func (c *Client) DownloadAsset(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.download.R().SetContext(ctx).Get(url)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("download asset: %w", err)
	}
	if resp.IsError() {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.Status()}
	}

	body := resp.Body()
	metrics.DownloadsTotal.WithLabelValues("ok").Inc()
	metrics.DownloadBytesTotal.Add(float64(len(body)))
	return body, nil
}
