package service

import (
	"context"
	"sync"

	"github.com/imgscout/config"
	"github.com/imgscout/updater"
	"github.com/kardianos/service"
	"github.com/rs/zerolog"
)

// Program implements service.Interface around the gRPC server
type Program struct {
	Config     *config.Config
	ConfigFile string
	Version    string
	Logger     zerolog.Logger

	// Serve blocks until ctx is cancelled
	Serve func(ctx context.Context) error

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	updater *updater.Updater
	restart func()
}

// Start is called when the service starts
func (p *Program) Start(s service.Service) error {
	if svcLogger, err := s.Logger(nil); err == nil && svcLogger != nil {
		svcLogger.Info("Service starting...")
	}
	p.Logger.Info().Str("version", p.Version).Msg("service starting")

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.restart = func() { updater.RestartService(s, p.Logger) }

	p.wg.Add(1)
	go p.run()

	return nil
}

// Stop is called when the service stops
func (p *Program) Stop(s service.Service) error {
	p.Logger.Info().Msg("service stopping")
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.Logger.Info().Msg("service stopped")
	return nil
}

// RunForeground serves until ctx is cancelled, restarting the process itself after an update.
func (p *Program) RunForeground(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)
	defer p.cancel()
	p.restart = func() {
		if err := updater.RestartSelf(p.Logger); err != nil {
			p.Logger.Error().Err(err).Msg("failed to restart")
		}
	}

	if p.Config.Update.Enabled {
		p.startAutoUpdate()
	}
	return p.Serve(p.ctx)
}

// run is the main service loop
func (p *Program) run() {
	defer p.wg.Done()

	// Recover from panic
	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error().Interface("panic", r).Msg("run() panic recovered")
		}
	}()

	if p.Config.Update.Enabled {
		p.startAutoUpdate()
	}

	if err := p.Serve(p.ctx); err != nil {
		p.Logger.Error().Err(err).Msg("server stopped")
	}
}

// startAutoUpdate initializes and starts the auto-updater
func (p *Program) startAutoUpdate() {
	uc := p.Config.Update
	p.updater = updater.New(updater.NewConfig(uc.Owner, uc.Repo, p.Version, uc.Interval), p.Logger)

	// Check for updates at startup (non-blocking)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Logger.Error().Interface("panic", r).Msg("auto-update startup check panic recovered")
			}
		}()
		if updated, err := p.updater.CheckAndUpdate(p.ctx); err != nil {
			p.Logger.Warn().Err(err).Msg("startup update check failed")
		} else if updated {
			p.Logger.Info().Msg("update applied, restarting")
			p.restart()
		}
	}()

	// Start periodic update checks
	p.updater.StartPeriodicCheck(p.ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				p.Logger.Error().Interface("panic", r).Msg("auto-update periodic check panic recovered")
			}
		}()
		if _, err := p.updater.CheckAndUpdate(p.ctx); err != nil {
			p.Logger.Error().Err(err).Msg("failed to apply update")
			return
		}
		p.Logger.Info().Msg("update applied, restarting")
		p.restart()
	})
}
