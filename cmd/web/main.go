// Package main provides the entry point for the big red button web server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/narvanalabs/redbutton/internal/api"
	"github.com/narvanalabs/redbutton/internal/api/health"
	"github.com/narvanalabs/redbutton/internal/auth"
	"github.com/narvanalabs/redbutton/internal/bitrise"
	"github.com/narvanalabs/redbutton/internal/builds"
	"github.com/narvanalabs/redbutton/pkg/config"
	"github.com/narvanalabs/redbutton/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New(slog.LevelInfo, true)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log = logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogFormat != "text")
	slog.SetDefault(log.Logger)

	// CI provider client
	client, err := bitrise.NewClient(cfg.Bitrise.Token,
		bitrise.WithBaseURL(cfg.Bitrise.APIURL),
		bitrise.WithRetryMax(cfg.Bitrise.RetryMax),
		bitrise.WithTimeout(cfg.Bitrise.Timeout),
		bitrise.WithLogger(log.WithComponent("bitrise").Logger),
	)
	if err != nil {
		log.Error("failed to create CI client", "error", err)
		os.Exit(1)
	}

	controller := builds.NewController(client.App(cfg.Bitrise.AppSlug), builds.Options{
		DefaultBranch:   cfg.TriggerBranch,
		DefaultWorkflow: cfg.TriggerWorkflow,
	}, log.Logger)

	// Identity provider
	allowlist := auth.NewAllowlist(cfg.Auth.AllowedSubjects)
	if allowlist.Len() == 0 {
		log.Warn("allowlist is empty, nobody will be able to sign in")
	}
	verifier := auth.NewVerifier(cfg.Auth.Domain, cfg.Auth.ClientID, log.WithComponent("auth").Logger)
	login := auth.NewLoginFlow(auth.LoginConfig{
		Domain:       cfg.Auth.Domain,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		ReturnURL:    cfg.Auth.BaseURL,
	}, verifier, allowlist, log.Logger)

	checker := health.NewChecker(client, allowlist.Len(), api.Version)
	checker.SetLogger(log.WithComponent("health").Logger)

	server := api.NewServer(cfg, api.Dependencies{
		Builds:        controller,
		Authenticator: auth.NewAuthenticator(verifier, allowlist, log.Logger),
		Login:         login,
		Health:        checker,
	}, log.Logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	log.Info("starting big red button",
		"addr", cfg.ListenAddr(),
		"app", cfg.Bitrise.AppSlug,
		"env", cfg.Env,
		"allowed_subjects", allowlist.Len(),
	)

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
