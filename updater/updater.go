package updater

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/rs/zerolog"
)

// Updater handles checking for and applying updates
type Updater struct {
	config *Config
	logger zerolog.Logger
}

// New creates a new Updater
func New(config *Config, logger zerolog.Logger) *Updater {
	return &Updater{
		config: config,
		logger: logger.With().Str("component", "updater").Logger(),
	}
}

func (u *Updater) newSelfUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}
	return updater, nil
}

// CheckForUpdate checks if a newer version is available
func (u *Updater) CheckForUpdate(ctx context.Context) (*selfupdate.Release, bool, error) {
	u.logger.Debug().Str("current", u.config.CurrentVersion).Msg("checking for updates")

	updater, err := u.newSelfUpdater()
	if err != nil {
		return nil, false, err
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(u.config.Slug()))
	if err != nil {
		return nil, false, fmt.Errorf("failed to detect latest version: %w", err)
	}

	if !found {
		u.logger.Info().Str("os", runtime.GOOS).Str("arch", runtime.GOARCH).Msg("no release found")
		return nil, false, nil
	}

	if latest.LessOrEqual(normalizeVersion(u.config.CurrentVersion)) {
		u.logger.Debug().Str("current", u.config.CurrentVersion).Msg("up to date")
		return latest, false, nil
	}

	u.logger.Info().
		Str("latest", latest.Version()).
		Str("current", u.config.CurrentVersion).
		Msg("new version available")
	return latest, true, nil
}

// Update downloads and applies the update to the running executable
func (u *Updater) Update(ctx context.Context, release *selfupdate.Release) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return u.UpdateTo(ctx, release, exe)
}

// UpdateTo downloads release and replaces the binary at path
func (u *Updater) UpdateTo(ctx context.Context, release *selfupdate.Release, path string) error {
	u.logger.Info().Str("version", release.Version()).Str("path", path).Msg("downloading update")

	updater, err := u.newSelfUpdater()
	if err != nil {
		return err
	}

	if err := updater.UpdateTo(ctx, release, path); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	u.logger.Info().Str("version", release.Version()).Msg("update applied")
	return nil
}

// CheckAndUpdate checks for updates and applies if available
func (u *Updater) CheckAndUpdate(ctx context.Context) (bool, error) {
	release, needsUpdate, err := u.CheckForUpdate(ctx)
	if err != nil {
		return false, err
	}

	if !needsUpdate {
		return false, nil
	}

	if err := u.Update(ctx, release); err != nil {
		return false, err
	}

	return true, nil
}

// StartPeriodicCheck runs check every CheckInterval after StartupDelay until ctx is done.
// onUpdateAvailable is called each time check reports a newer release.
func (u *Updater) StartPeriodicCheck(ctx context.Context, onUpdateAvailable func()) {
	u.startPeriodic(ctx, u.CheckForUpdate, onUpdateAvailable)
}

type checkFunc func(ctx context.Context) (*selfupdate.Release, bool, error)

func (u *Updater) startPeriodic(ctx context.Context, check checkFunc, onUpdateAvailable func()) {
	go func() {
		// Wait before first check to allow service to stabilize
		select {
		case <-time.After(u.config.StartupDelay):
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(u.config.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, needsUpdate, err := check(ctx)
				if err != nil {
					u.logger.Warn().Err(err).Msg("update check failed")
					continue
				}

				if needsUpdate && onUpdateAvailable != nil {
					onUpdateAvailable()
				}

			case <-ctx.Done():
				u.logger.Debug().Msg("periodic update check stopped")
				return
			}
		}
	}()
}

// GetLatestVersion returns the latest version string without updating.
// Without a published release it reports the current version.
func (u *Updater) GetLatestVersion(ctx context.Context) (string, error) {
	return u.latestVersion(ctx, u.CheckForUpdate)
}

func (u *Updater) latestVersion(ctx context.Context, check checkFunc) (string, error) {
	release, _, err := check(ctx)
	if err != nil {
		return "", err
	}
	if release == nil {
		return u.config.CurrentVersion, nil
	}
	return release.Version(), nil
}
