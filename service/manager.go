package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	svc "github.com/kardianos/service"
)

// Manager handles service management operations
type Manager struct {
	service svc.Service
	program *Program
}

// NewManager creates a new service manager
func NewManager(prg *Program) (*Manager, error) {
	// Get executable path for service registration
	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	cfg := NewServiceConfig(exePath, buildServiceArgs(prg))

	s, err := svc.New(prg, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &Manager{
		service: s,
		program: prg,
	}, nil
}

// buildServiceArgs builds the command line arguments for the service
func buildServiceArgs(prg *Program) []string {
	args := []string{"--service=run"}

	if prg.ConfigFile != "" {
		args = append(args, "--config="+absPath(prg.ConfigFile))
	}

	cfg := prg.Config
	args = append(args,
		"--port="+cfg.Server.Port,
		"--db="+absPath(cfg.Catalog.Path),
		"--headless="+strconv.FormatBool(cfg.Scraper.Headless),
		"--auto-update="+strconv.FormatBool(cfg.Update.Enabled),
		"--log-level="+cfg.Logging.Level,
	)
	if cfg.Logging.File != "" {
		args = append(args, "--log-file="+absPath(cfg.Logging.File))
	}

	return args
}

// absPath resolves relative paths against the working directory at install time
func absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Install installs the service
func (m *Manager) Install() error {
	return m.service.Install()
}

// Uninstall uninstalls the service
func (m *Manager) Uninstall() error {
	return m.service.Uninstall()
}

// Start starts the service
func (m *Manager) Start() error {
	return m.service.Start()
}

// Stop stops the service
func (m *Manager) Stop() error {
	return m.service.Stop()
}

// Restart restarts the service
func (m *Manager) Restart() error {
	return m.service.Restart()
}

// Run runs the service (called by the service manager)
func (m *Manager) Run() error {
	return m.service.Run()
}

// Status returns the service status
func (m *Manager) Status() (svc.Status, error) {
	return m.service.Status()
}

// RunServiceCommand handles service management commands, reporting to out
func RunServiceCommand(cmd string, prg *Program, out io.Writer) error {
	mgr, err := NewManager(prg)
	if err != nil {
		return err
	}
	return mgr.Command(cmd, out)
}

// Command executes one of install, uninstall, start, stop, restart, status, run
func (m *Manager) Command(cmd string, out io.Writer) error {
	switch cmd {
	case "install":
		if err := m.Install(); err != nil {
			return fmt.Errorf("failed to install service: %w", err)
		}
		fmt.Fprintln(out, "Service installed successfully")
		fmt.Fprintf(out, "Service name: %s\n", ServiceName)
		fmt.Fprintln(out, "To start the service, run: imgscout --service start")

	case "uninstall":
		// Try to stop first
		_ = m.Stop()

		if err := m.Uninstall(); err != nil {
			return fmt.Errorf("failed to uninstall service: %w", err)
		}
		fmt.Fprintln(out, "Service uninstalled successfully")

	case "start":
		if err := m.Start(); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		fmt.Fprintln(out, "Service started successfully")

	case "stop":
		if err := m.Stop(); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		fmt.Fprintln(out, "Service stopped successfully")

	case "restart":
		if err := m.Restart(); err != nil {
			return fmt.Errorf("failed to restart service: %w", err)
		}
		fmt.Fprintln(out, "Service restarted successfully")

	case "status":
		status, err := m.Status()
		if err != nil {
			return fmt.Errorf("failed to get service status: %w", err)
		}
		printStatus(status, out)

	case "run":
		return m.Run()

	default:
		return fmt.Errorf("unknown service command: %s\nValid commands: install, uninstall, start, stop, restart, status, run", cmd)
	}

	return nil
}

func printStatus(status svc.Status, out io.Writer) {
	switch status {
	case svc.StatusRunning:
		fmt.Fprintln(out, "Service status: Running")
	case svc.StatusStopped:
		fmt.Fprintln(out, "Service status: Stopped")
	default:
		fmt.Fprintln(out, "Service status: Unknown")
	}
}
