package scrapers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	imageCountScript = `document.images.length`
	scrollScript     = `window.scrollTo(0, document.body.scrollHeight);`
)

// ImageScraper runs image searches, one browser session per search.
type ImageScraper struct {
	config  *ScraperConfig
	browser Browser
	logger  zerolog.Logger
	slots   *semaphore.Weighted
}

// NewImageScraper creates a scraper. A nil config means DefaultScraperConfig.
func NewImageScraper(config *ScraperConfig, browser Browser, logger zerolog.Logger) *ImageScraper {
	if config == nil {
		config = DefaultScraperConfig()
	}
	sessions := config.MaxSessions
	if sessions < 1 {
		sessions = 1
	}
	return &ImageScraper{
		config:  config,
		browser: browser,
		logger:  logger.With().Str("component", "image-scraper").Logger(),
		slots:   semaphore.NewWeighted(int64(sessions)),
	}
}

// Search runs the query in the background. The returned channel receives
// exactly one Result and is then closed.
func (s *ImageScraper) Search(ctx context.Context, query string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- s.Run(ctx, query)
	}()
	return out
}

// Run performs a search on the calling goroutine. It never fails outright:
// faults are reported through Result.Err.
func (s *ImageScraper) Run(ctx context.Context, query string) Result {
	res := Result{ID: uuid.NewString(), Query: query}
	start := time.Now()
	log := s.logger.With().Str("search_id", res.ID).Str("query", query).Logger()

	images, err := s.collect(ctx, query, log)
	res.Images = images
	res.Err = err
	res.Duration = time.Since(start)

	if err != nil {
		log.Warn().Err(err).Int("images", len(images)).Dur("took", res.Duration).Msg("search finished with error")
	} else {
		log.Info().Strs("images", images).Dur("took", res.Duration).Msg("search finished")
	}
	return res
}

// collect owns the session for its whole lifetime; the session is closed
// before collect returns, so callers never see a result while it is open.
func (s *ImageScraper) collect(ctx context.Context, query string, log zerolog.Logger) (images []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("search panic recovered")
			err = fmt.Errorf("%w: panic: %v", ErrExtraction, r)
		}
	}()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionAcquisition, err)
	}
	defer s.slots.Release(1)

	log.Debug().Msg("opening browser session")
	session, err := s.browser.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionAcquisition, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && !errors.Is(cerr, context.Canceled) {
			log.Debug().Err(cerr).Msg("session close")
		}
	}()

	target := fmt.Sprintf(s.config.SearchURL, url.QueryEscape(query))
	if err := session.Navigate(target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNavigation, err)
	}

	var settleErr error
	if _, err := s.waitForImages(ctx, session, s.config.SettleBudget); err != nil {
		if !errors.Is(err, ErrRenderTimeout) {
			return nil, err
		}
		log.Debug().Msg("initial render budget exceeded")
		settleErr = err
	}

	if err := session.Evaluate(scrollScript, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScroll, err)
	}

	if _, err := s.waitForImages(ctx, session, s.config.ScrollBudget); err != nil {
		if !errors.Is(err, ErrRenderTimeout) {
			return nil, err
		}
		log.Debug().Msg("lazy-load budget exceeded")
		settleErr = err
	}

	elements, err := session.FindAll("img")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	images = extractImages(elements)
	if settleErr != nil && len(images) < MaxResults {
		return images, settleErr
	}
	return images, nil
}

// waitForImages polls the image count until it is non-zero and unchanged
// between two polls, or until budget runs out (ErrRenderTimeout).
func (s *ImageScraper) waitForImages(ctx context.Context, session Session, budget time.Duration) (int, error) {
	interval := s.config.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	timer := time.NewTimer(budget)
	defer timer.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := -1
	for {
		var count int
		if err := session.Evaluate(imageCountScript, &count); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		if count > 0 && count == last {
			return count, nil
		}
		last = count

		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case <-timer.C:
			return count, ErrRenderTimeout
		case <-ticker.C:
		}
	}
}

// extractImages keeps fetchable references in document order, preferring the
// lazy-load attribute, and stops at MaxResults.
func extractImages(elements []Element) []string {
	images := make([]string, 0, MaxResults)
	for _, el := range elements {
		src, _ := el.Attribute("data-src")
		if src == "" {
			src, _ = el.Attribute("src")
		}
		if !IsFetchable(src) {
			continue
		}
		images = append(images, src)
		if len(images) >= MaxResults {
			break
		}
	}
	return images
}
