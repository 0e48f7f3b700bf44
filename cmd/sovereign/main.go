package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sovereign-xds/sovereign/internal/auth"
	"github.com/sovereign-xds/sovereign/internal/config"
	"github.com/sovereign-xds/sovereign/internal/contextprovider"
	"github.com/sovereign-xds/sovereign/internal/discovery"
	"github.com/sovereign-xds/sovereign/internal/httpapi"
	"github.com/sovereign-xds/sovereign/internal/sourcing"
	"github.com/sovereign-xds/sovereign/internal/xdstemplate"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"cache_strategy", cfg.CacheStrategy,
		"sources", len(cfg.Sources),
		"auth_enabled", cfg.AuthEnabled,
	)

	// --- Sources & aggregator ---
	sources := make([]sourcing.Source, 0, len(cfg.Sources))
	sourceTypes := make([]string, 0, len(cfg.Sources))
	for _, spec := range cfg.Sources {
		src, err := sourcing.Build(spec.Type, spec.Config)
		if err != nil {
			log.Error("failed to build source", "type", spec.Type, "error", err)
			os.Exit(1)
		}
		sources = append(sources, src)
		sourceTypes = append(sourceTypes, spec.Type)
	}
	aggregator := sourcing.New(log, sources, sourceTypes, cfg.Modifications)

	// --- Templates ---
	instances := instancesFromContext
	templates, err := xdstemplate.BuildRegistry(cfg.Templates, instances)
	if err != nil {
		log.Error("failed to build template registry", "error", err)
		os.Exit(1)
	}

	// --- Context providers ---
	providers := make([]contextprovider.Provider, 0, len(cfg.Context))
	for name, loadable := range cfg.Context {
		raw, err := loadable.Load()
		if err != nil {
			log.Error("failed to load context provider", "name", name, "error", err)
			os.Exit(1)
		}
		var value any
		if err := yaml.Unmarshal(raw, &value); err != nil {
			log.Error("failed to parse context provider", "name", name, "error", err)
			os.Exit(1)
		}
		providers = append(providers, contextprovider.NewStaticProvider(name, value))
	}
	contexts := contextprovider.NewRegistry(log, providers)

	// --- Auth ---
	var keyRing *auth.KeyRing
	if cfg.AuthEnabled {
		rawKeys := make([][]byte, len(cfg.EncryptionKeys))
		for i, k := range cfg.EncryptionKeys {
			rawKeys[i] = []byte(k)
		}
		keyRing, err = auth.NewKeyRing(rawKeys)
		if err != nil {
			log.Error("failed to build auth key ring", "error", err)
			os.Exit(1)
		}
	}
	authenticator := auth.New(cfg.AuthEnabled, cfg.AuthPayloadKey, keyRing, auth.PayloadRules(cfg.AuthPayloadRules))

	// --- Orchestrator ---
	orchestrator := discovery.NewOrchestrator(aggregator, templates, contexts, cfg.CacheStrategy, cfg.SourceMatchKey)

	// --- HTTP server ---
	server := httpapi.NewServer(log, httpapi.Options{
		Orchestrator:          orchestrator,
		Authenticator:         authenticator,
		Templates:             templates,
		Warmed:                aggregator.Warmed,
		NoChangesResponseCode: cfg.NoChangesResponseCode,
		VersionedAPIVersions:  []int{3},
	})

	// --- Startup ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("received shutdown signal")
		cancel()
	}()

	// Synchronous warmup: the aggregate must be populated before the server
	// starts accepting traffic, per spec.md §3's "warmed synchronously at
	// startup."
	aggregator.Refresh(ctx)

	go aggregator.RunScheduler(ctx, time.Duration(cfg.RefreshRateSeconds)*time.Second)

	if err := server.Serve(ctx, cfg.ListenAddr); err != nil {
		log.Error("discovery server failed", "error", err)
		os.Exit(1)
	}
}

// instancesFromContext recovers the matched instance view a native template
// needs from the render context contextprovider.SafeContext built — the
// same view every context provider and text template see under
// contextprovider.KeyInstances, so native templates stay consistent with
// the rest of the pipeline without a second source of truth.
func instancesFromContext(ctx xdstemplate.Context) ([]sourcing.Instance, error) {
	v, ok := ctx[contextprovider.KeyInstances]
	if !ok {
		return nil, nil
	}
	instances, ok := v.([]sourcing.Instance)
	if !ok {
		return nil, nil
	}
	return instances, nil
}
