package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/kenxx/ddns"
)

var opts struct {
	Config string `short:"c" long:"config" default:"config.toml" description:"Path to the configuration file"`
	Bind   string `short:"b" long:"bind" description:"Listen address, overriding the config (host:port)"`
	Setup  bool   `long:"setup" description:"Interactively verify a Cloudflare API token and print a provider config block"`
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if opts.Setup {
		if err := runSetup(); err != nil {
			fmt.Fprintf(os.Stderr, "setup: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := ddns.LoadConfig(opts.Config)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	log.Info("loaded configuration", "path", opts.Config, "providers", len(cfg.Providers))

	registry, err := ddns.NewRegistry(cfg.Providers, log.WithName("provider"))
	if err != nil {
		return err
	}
	log.Info("registered providers", "names", registry.Names())

	timeout := time.Duration(cfg.Server.ProviderTimeout) * time.Second
	service := ddns.NewService(log.WithName("reconcile"), timeout)
	server := ddns.NewServer(registry, service, log.WithName("http"))

	addr := opts.Bind
	if addr == "" {
		addr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	log.Info("server listening", "addr", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(level string) (logr.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return logr.Logger{}, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	if lvl > zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zl, err := zcfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("building logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// runSetup prompts for a Cloudflare API token without echoing it,
// verifies it against the API, and prints a ready-to-paste provider
// block for the config file. The token never touches disk here.
func runSetup() error {
	fmt.Println("Enter Cloudflare API Token:")
	bytekey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("error reading from stdin: %w", err)
	}
	key := string(bytekey)

	api, err := cloudflare.NewWithAPIToken(key)
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api token: %w", err)
	}
	if result.Status != "active" {
		return fmt.Errorf("expected api token status to be \"active\"; got %q", result.Status)
	}

	fmt.Println("Token verified. Add this to your config file:")
	fmt.Printf(`
[[providers]]
name = "cloudflare"
type = "cloudflare"
  [providers.settings]
  api_token = %q
  zone_id = "<your zone id>"
`, key)
	return nil
}
