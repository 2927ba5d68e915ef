package updater

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// restartDelay lets in-flight requests finish before the restart
var restartDelay = 2 * time.Second

// Restarter is the part of kardianos/service.Service used after an update.
type Restarter interface {
	Restart() error
}

// RestartService asks the service manager to restart svc after a short delay
func RestartService(svc Restarter, logger zerolog.Logger) {
	logger.Info().Msg("scheduling service restart")

	go func() {
		time.Sleep(restartDelay)
		if err := svc.Restart(); err != nil {
			logger.Error().Err(err).Msg("failed to restart service")
		}
	}()
}

// RestartSelf restarts the current process (for non-service mode)
func RestartSelf(logger zerolog.Logger) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	logger.Info().Msg("restarting application")

	// Start new process with same arguments
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to restart: %w", err)
	}

	// Exit current process
	os.Exit(0)
	return nil
}
