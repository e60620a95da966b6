package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/catalog-editor/internal/auth"
	"finitefield.org/catalog-editor/internal/backend"
	"finitefield.org/catalog-editor/internal/editor"
	"finitefield.org/catalog-editor/internal/platform/config"
	"finitefield.org/catalog-editor/internal/platform/observability"
)

type cliFlags struct {
	configPath string
	draftPath  string
	productID  string
	publish    bool
	addAnother bool
	dryRun     bool
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("catalog-editor", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", ".env", "path to the .env configuration file")
	fs.StringVar(&f.draftPath, "draft", "", "YAML draft to apply before saving")
	fs.StringVar(&f.productID, "product", "", "edit an existing product instead of creating one")
	fs.BoolVar(&f.publish, "publish", false, "publish the product instead of saving a draft")
	fs.BoolVar(&f.addAnother, "add-another", false, "keep shared fields for the next product after a complete create")
	fs.BoolVar(&f.dryRun, "dry-run", false, "save against an in-memory catalog")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.draftPath == "" {
		return f, errors.New("-draft is required")
	}
	return f, nil
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []config.Option{config.WithEnvFile(flags.configPath)}
	if flags.dryRun {
		opts = append(opts, config.WithEnvMap(map[string]string{"CATALOG_API_BASE_URL": "http://catalog.invalid"}))
	}
	cfg, cfgErr := config.Load(opts...)

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("catalog-editor")
	ctx = observability.WithLogger(ctx, logger)

	if cfgErr != nil {
		logger.Fatal("failed to load configuration", zap.Error(cfgErr))
	}

	state, err := auth.StateFromToken(cfg.Backend.Token, cfg.Editor.TenantCurrency)
	if err != nil {
		logger.Warn("ignoring unreadable API token claims", zap.Error(err))
		state = auth.State{Token: cfg.Backend.Token, Currency: cfg.Editor.TenantCurrency}
	}
	authState := auth.NewBroadcaster(state)

	catalogAPI, err := newCatalog(cfg, flags.dryRun, authState)
	if err != nil {
		logger.Fatal("failed to construct catalog client", zap.Error(err))
	}

	previews := editor.NewMemoryPreviews()
	session, err := editor.OpenSession(ctx, editor.SessionDeps{
		Catalog:          catalogAPI,
		Auth:             authState,
		Previews:         previews,
		Notifier:         editor.LogNotifier{Logger: logger},
		Logger:           logger,
		Clock:            time.Now,
		RandIntN:         rand.IntN,
		DefaultStatus:    cfg.Editor.DefaultStatus,
		FallbackCurrency: cfg.Editor.TenantCurrency,
	}, flags.productID)
	if err != nil {
		logger.Fatal("failed to open editing session", zap.Error(err))
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", zap.Error(err))
		}
	}()

	doc, err := readDraftDocument(flags.draftPath)
	if err != nil {
		logger.Fatal("failed to read draft", zap.Error(err))
	}
	if err := doc.apply(session, loadImageFile); err != nil {
		logger.Fatal("failed to apply draft", zap.Error(err))
	}

	result, err := session.Save(ctx, editor.SaveOptions{Draft: !flags.publish, AddAnother: flags.addAnother})
	if err != nil {
		var verr *editor.ValidationError
		if errors.As(err, &verr) {
			logger.Fatal("draft is incomplete",
				zap.Any("missing", verr.Missing),
				zap.Strings("pricing", verr.Pricing),
			)
		}
		logger.Fatal("save failed", zap.Error(err))
	}

	logger.Info("save finished",
		zap.String("productId", result.ProductID),
		zap.Bool("created", result.Created),
		zap.Bool("complete", result.Complete()),
		zap.Strings("failedPhases", result.FailedPhases()),
		zap.Bool("addedAnother", result.AddedAnother),
		zap.Int("openPreviews", previews.Open()),
	)
}

func newCatalog(cfg config.Config, dryRun bool, tokens backend.TokenSource) (backend.Catalog, error) {
	if dryRun {
		return backend.NewMemoryService(), nil
	}
	svc, err := backend.NewHTTPService(
		cfg.Backend.BaseURL,
		&http.Client{Timeout: cfg.Backend.Timeout},
		backend.WithTokenSource(tokens),
		backend.WithIdempotencyHeader(cfg.Backend.IdempotencyHeader),
	)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
