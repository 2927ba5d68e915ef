package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/imgscout/config"
	"github.com/imgscout/logging"
	"github.com/imgscout/server"
	"github.com/imgscout/service"
	"github.com/imgscout/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// Version is set at build time
var Version = "dev"

func main() {
	fs := pflag.NewFlagSet("imgscout", pflag.ExitOnError)
	config.RegisterFlags(fs)
	searchQuery := fs.String("search", "", "run one image search, print the results and exit")
	grpcMode := fs.Bool("grpc", false, "run as gRPC server")
	serviceCmd := fs.String("service", "", "service command: install|uninstall|start|stop|restart|status|run")
	showVersion := fs.Bool("version", false, "show version and exit")
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("imgscout version %s\n", Version)
		return
	}

	cfg, err := config.Load(fs)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// The TUI and the service own stdout, so they log to the file.
	logFile := ""
	if *serviceCmd == "run" || (*serviceCmd == "" && !*grpcMode && !fs.Changed("search")) {
		logFile = cfg.Logging.File
	}
	logger, closer, err := logging.New(logFile, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configFile := ""
	if f := fs.Lookup("config"); f != nil {
		configFile = f.Value.String()
	}
	prg := &service.Program{
		Config:     cfg,
		ConfigFile: configFile,
		Version:    Version,
		Logger:     logger,
		Serve: func(ctx context.Context) error {
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return server.Serve(ctx, a.grpcServer(Version), cfg.Server.Port)
		},
	}

	switch {
	case *serviceCmd != "":
		err = service.RunServiceCommand(*serviceCmd, prg, os.Stdout)
	case *grpcMode:
		err = prg.RunForeground(ctx)
	case fs.Changed("search"):
		err = runSearch(ctx, cfg, logger, *searchQuery, os.Stdout)
	default:
		err = runTUI(ctx, cfg, logger)
	}

	if err != nil {
		logger.Error().Err(err).Msg("exiting")
		fmt.Fprintln(os.Stderr, err)
		closer.Close()
		os.Exit(1)
	}
}

// runSearch performs one search and prints the image references, one per line.
func runSearch(ctx context.Context, cfg *config.Config, logger zerolog.Logger, query string, out io.Writer) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res := <-a.scraper.Search(ctx, query)
	for _, img := range res.Images {
		fmt.Fprintln(out, img)
	}
	if res.Err != nil && len(res.Images) == 0 {
		return fmt.Errorf("search failed: %w", res.Err)
	}
	if len(res.Images) == 0 {
		fmt.Fprintln(os.Stderr, "no images found")
	}
	return nil
}

func runTUI(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.NewModel(ctx, a.scraper, a.store, a.fetcher, cfg.Thumbs.Size, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
