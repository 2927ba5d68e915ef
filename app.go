package main

import (
	"errors"
	"fmt"

	"github.com/imgscout/catalog"
	"github.com/imgscout/config"
	"github.com/imgscout/scrapers"
	"github.com/imgscout/server"
	"github.com/imgscout/thumbs"
	"github.com/rs/zerolog"
)

// app holds the components shared by every mode
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	scraper *scrapers.ImageScraper
	store   *catalog.Store
	cache   *thumbs.Cache
	fetcher *thumbs.Fetcher
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	store, err := catalog.Open(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, err
	}

	cache, err := thumbs.OpenCache(cfg.Thumbs.CachePath)
	if err != nil {
		// A missing cache only costs refetches
		logger.Warn().Err(err).Str("path", cfg.Thumbs.CachePath).Msg("thumbnail cache unavailable, using memory")
		if cache, err = thumbs.OpenCache(""); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to open thumbnail cache: %w", err)
		}
	}

	sc := cfg.ScraperOptions()
	return &app{
		cfg:     cfg,
		logger:  logger,
		scraper: scrapers.NewImageScraper(sc, scrapers.NewChromeBrowser(sc, logger), logger),
		store:   store,
		cache:   cache,
		fetcher: thumbs.NewFetcher(cfg.FetcherOptions(), cache, logger),
	}, nil
}

func (a *app) grpcServer(version string) *server.GRPCServer {
	return &server.GRPCServer{
		Searcher:    a.scraper,
		Catalog:     a.store,
		Thumbnailer: a.fetcher,
		Logger:      a.logger.With().Str("component", "grpc").Logger(),
		Version:     version,
	}
}

func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}
