package thumbs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/imgscout/scrapers"
	"github.com/rs/zerolog"
)

// MaxImageBytes caps a single download.
const MaxImageBytes = 10 << 20

var ErrTooLarge = errors.New("image exceeds size limit")

// FetcherConfig holds download settings
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultFetcherConfig returns the default download settings
func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		Timeout:   10 * time.Second,
		UserAgent: "imgscout/1.0",
	}
}

// Info describes a decoded thumbnail.
type Info struct {
	URL    string
	Format string
	Width  int
	Height int
	Bytes  int
}

// Fetcher downloads image bytes with a timeout and caches them.
type Fetcher struct {
	config     *FetcherConfig
	httpClient *http.Client
	cache      *Cache
	logger     zerolog.Logger
}

// NewFetcher creates a fetcher. cache may be nil.
func NewFetcher(config *FetcherConfig, cache *Cache, logger zerolog.Logger) *Fetcher {
	if config == nil {
		config = DefaultFetcherConfig()
	}
	return &Fetcher{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache:  cache,
		logger: logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch returns the raw bytes behind url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !scrapers.IsFetchable(url) {
		return nil, fmt.Errorf("not a fetchable url: %q", url)
	}
	if f.cache != nil {
		if data, ok := f.cache.Get(url); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}

	if f.cache != nil {
		if err := f.cache.Put(url, data); err != nil {
			f.logger.Warn().Err(err).Str("url", url).Msg("failed to cache image")
		}
	}
	return data, nil
}

// Probe fetches url and decodes it into a size×size thumbnail.
func (f *Fetcher) Probe(ctx context.Context, url string, size int) (Info, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return Info{}, err
	}
	thumb, format, err := Thumbnail(data, size)
	if err != nil {
		return Info{}, err
	}
	b := thumb.Bounds()
	return Info{URL: url, Format: format, Width: b.Dx(), Height: b.Dy(), Bytes: len(data)}, nil
}

// PNG fetches url and returns the thumbnail encoded as PNG.
func (f *Fetcher) PNG(ctx context.Context, url string, size int) ([]byte, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	thumb, _, err := Thumbnail(data, size)
	if err != nil {
		return nil, err
	}
	return encodePNG(thumb)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
