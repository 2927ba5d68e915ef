package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/imgscout/config"
	"github.com/imgscout/logging"
	"github.com/imgscout/service"
	"github.com/imgscout/updater"
	svc "github.com/kardianos/service"
	"github.com/spf13/pflag"
)

// Version is set at build time
var Version = "dev"

const targetBinaryName = "imgscout"

func main() {
	fs := pflag.NewFlagSet("imgscout-update", pflag.ExitOnError)
	config.RegisterFlags(fs)
	target := fs.String("target", "", "binary to update (default: imgscout next to this executable)")
	current := fs.String("current", "", "version of the target binary (default: this tool's version)")
	apply := fs.Bool("apply", false, "download and install the update, restarting the service if installed")
	latest := fs.Bool("latest", false, "print the latest published version and exit")
	showVersion := fs.Bool("version", false, "show version and exit")
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("imgscout-update version %s\n", Version)
		return
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closer, err := logging.New("", cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	targetPath := *target
	if targetPath == "" {
		exePath, _ := os.Executable()
		targetPath = filepath.Join(filepath.Dir(exePath), targetBinaryName)
	}
	version := *current
	if version == "" {
		version = Version
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	u := updater.New(updater.NewConfig(cfg.Update.Owner, cfg.Update.Repo, version, cfg.Update.Interval), logger)

	if *latest {
		v, err := u.GetLatestVersion(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to read latest version")
		}
		fmt.Println(v)
		return
	}

	release, needsUpdate, err := u.CheckForUpdate(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("update check failed")
	}
	if !needsUpdate {
		fmt.Printf("%s is up to date (%s)\n", targetPath, version)
		return
	}
	fmt.Printf("update available: %s -> %s\n", version, release.Version())
	if !*apply {
		return
	}

	// Stop the installed service around the binary swap
	s, err := svc.New(&service.Program{}, service.NewServiceConfig(targetPath, nil))
	running := false
	if err == nil {
		if status, err := s.Status(); err == nil && status == svc.StatusRunning {
			running = true
			if err := s.Stop(); err != nil {
				logger.Warn().Err(err).Msg("failed to stop service")
			}
		}
	}

	if err := u.UpdateTo(ctx, release, targetPath); err != nil {
		logger.Error().Err(err).Msg("update failed")
		if running {
			_ = s.Start()
		}
		os.Exit(1)
	}
	fmt.Printf("updated %s to %s\n", targetPath, release.Version())

	if running {
		if err := s.Start(); err != nil {
			logger.Error().Err(err).Msg("failed to start service")
			os.Exit(1)
		}
	}
}
