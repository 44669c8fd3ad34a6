// Package cli wires configuration into a ready-to-use engine for the cubeflow commands.
package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/cubeflow"
	"github.com/aretw0/cubeflow/internal/config"
	"github.com/aretw0/cubeflow/internal/logging"
	"github.com/aretw0/cubeflow/pkg/adapters/memory"
	"github.com/aretw0/cubeflow/pkg/adapters/openai"
	"github.com/aretw0/cubeflow/pkg/adapters/redis"
	"github.com/aretw0/cubeflow/pkg/adapters/vena"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/observability"
	"github.com/aretw0/cubeflow/pkg/persistence/middleware"
	"github.com/aretw0/cubeflow/pkg/ports"
	"github.com/aretw0/cubeflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// App bundles everything a command needs to answer questions.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Engine   *cubeflow.Engine
	Sessions *session.Manager
	Registry *prometheus.Registry

	closers []func() error
}

// Options adjusts how NewApp assembles the application.
type Options struct {
	// Hooks are merged after the logging and metrics hooks.
	Hooks domain.LifecycleHooks

	// LanguageModel and DataService replace the configured clients when set.
	LanguageModel ports.LanguageModel
	DataService   ports.DataService
}

// NewApp validates cfg and builds the engine, the transcript store and the session manager.
func NewApp(cfg config.Config, opts Options) (*App, error) {
	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	llm, ds := opts.LanguageModel, opts.DataService
	if llm == nil || ds == nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	if ds == nil {
		ds = vena.New(cfg.Vena.Endpoint, cfg.Vena.User, cfg.Vena.Key)
	}
	if llm == nil {
		client, err := openai.New(openai.Config{
			Endpoint:     cfg.LLM.Endpoint,
			Deployment:   cfg.LLM.Deployment,
			APIVersion:   cfg.LLM.APIVersion,
			APIKey:       cfg.LLM.APIKey,
			LocalModel:   cfg.LLM.LocalModel,
			LocalBaseURL: cfg.LLM.LocalBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("error initializing language model: %w", err)
		}
		logger.Debug("Language model ready", "model", client.Model())
		llm = client
	}

	metrics, err := observability.NewMetrics(app.Registry)
	if err != nil {
		return nil, err
	}

	engine, err := cubeflow.New(
		cubeflow.WithLanguageModel(llm),
		cubeflow.WithDataService(ds),
		cubeflow.WithLogger(logger),
		cubeflow.WithToolTimeout(cfg.ToolTimeout),
		cubeflow.WithMaxSteps(cfg.MaxSteps),
		cubeflow.WithLifecycleHooks(observability.LogHooks(logger)),
		cubeflow.WithLifecycleHooks(metrics.Hooks()),
		cubeflow.WithLifecycleHooks(opts.Hooks),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing cubeflow: %w", err)
	}
	app.Engine = engine

	store, sessionOpts, err := app.setupPersistence()
	if err != nil {
		return nil, err
	}
	mws, err := archiveMiddlewares(cfg.Archive)
	if err != nil {
		app.Close()
		return nil, err
	}
	store = middleware.Chain(store, mws...)
	sessionOpts = append(sessionOpts, session.WithLogger(logger))
	app.Sessions = session.NewManager(engine, store, sessionOpts...)
	return app, nil
}

// setupPersistence picks redis when a URL is configured and memory otherwise.
func (a *App) setupPersistence() (ports.TranscriptStore, []session.Option, error) {
	if a.Config.Redis.URL == "" {
		return memory.NewStore(), nil, nil
	}

	client, err := redis.NewClient(a.Config.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	store := redis.NewFromClient(client,
		redis.WithPrefix(a.Config.Redis.Prefix),
		redis.WithTTL(a.Config.Redis.TTL),
	)
	a.Logger.Debug("Using redis transcript store", "prefix", a.Config.Redis.Prefix, "ttl", a.Config.Redis.TTL)
	return store, []session.Option{session.WithLocker(redis.NewLocker(client, a.Config.Redis.Prefix))}, nil
}

// archiveMiddlewares redacts first so that sealed transcripts are already masked.
func archiveMiddlewares(cfg config.Archive) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.RedactPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.RedactPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey == "" {
		return mws, nil
	}

	active, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("archive encryption key: %w", err)
	}
	encCfg := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("archive fallback key %d: %w", i, err)
		}
		encCfg.FallbackKeys = append(encCfg.FallbackKeys, key)
	}
	seal, err := middleware.NewEncryptionMiddleware(encCfg)
	if err != nil {
		return nil, err
	}
	return append(mws, seal), nil
}

// Close releases external connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
