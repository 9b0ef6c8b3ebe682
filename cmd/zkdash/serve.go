package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bhandras/zkdash/internal/api"
	"github.com/bhandras/zkdash/internal/api/handlers"
	"github.com/bhandras/zkdash/internal/config"
	"github.com/bhandras/zkdash/internal/crypto"
	"github.com/bhandras/zkdash/internal/metrics"
	"github.com/bhandras/zkdash/internal/provider/ethrpc"
	"github.com/bhandras/zkdash/internal/reconciler"
	"github.com/bhandras/zkdash/internal/storage"
	"github.com/bhandras/zkdash/internal/store"
	"github.com/bhandras/zkdash/internal/version"
	"github.com/bhandras/zkdash/internal/wallet"
	"github.com/bhandras/zkdash/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	dialTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	var (
		configFile string
		addr       string
		rpcURL     string
		logLevel   string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard session daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var o config.Overrides
			flags := cmd.Flags()
			if flags.Changed("config") {
				o.ConfigFile = &configFile
			}
			if flags.Changed("addr") {
				o.Addr = &addr
			}
			if flags.Changed("rpc-url") {
				o.RPCURL = &rpcURL
			}
			if flags.Changed("log-level") {
				o.LogLevel = &logLevel
			}
			if flags.Changed("debug") {
				o.Debug = &debug
			}

			cfg, err := config.Load(o)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := configureLogging(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := newDaemon(ctx, cfg)
			if err != nil {
				return err
			}
			return d.run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "TOML config file (default $ZKDASH_CONFIG)")
	flags.StringVar(&addr, "addr", "", "HTTP listen address")
	flags.StringVar(&rpcURL, "rpc-url", "", "wallet provider JSON-RPC endpoint")
	flags.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&debug, "debug", false, "debug logging and gin debug mode")
	return cmd
}

func configureLogging(cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.Debug && level > logger.LevelDebug {
		level = logger.LevelDebug
	}
	logger.SetLevel(level)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

// daemon owns every long-lived component of the serve command.
type daemon struct {
	cfg        *config.Config
	store      *store.Store
	metrics    *metrics.Metrics
	reconciler *reconciler.Reconciler
	provider   *ethrpc.Provider
	server     *http.Server
	closers    []io.Closer
}

func newDaemon(ctx context.Context, cfg *config.Config) (*daemon, error) {
	d := &daemon{
		cfg:     cfg,
		store:   store.New(),
		metrics: metrics.New(),
	}

	kv, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := kv.(io.Closer); ok {
		d.closers = append(d.closers, c)
	}

	jwtManager, err := crypto.NewJWTManager(cfg.MasterSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create JWT manager: %w", err)
	}

	var builderOpts []wallet.BuilderOption
	if cfg.RPCURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		p, err := ethrpc.Dial(dialCtx, cfg.RPCURL, ethrpc.WithPollInterval(cfg.ProviderPollInterval))
		if err == nil {
			err = p.Start(dialCtx)
			if err != nil {
				p.Close()
			}
		}
		cancel()
		if err != nil {
			return nil, fmt.Errorf("connect wallet provider: %w", err)
		}
		d.provider = p
		builderOpts = append(builderOpts,
			wallet.WithSigner(wallet.KindMetamask, p),
			wallet.WithBalances(p),
		)
		logger.Infof("Wallet provider: %s", cfg.RPCURL)
	} else {
		logger.Warnf("No wallet provider configured; extension wallets are unavailable")
	}
	builder := wallet.NewSignerBuilder(jwtManager, builderOpts...)

	rt := reconciler.NewRuntime(d.store, kv, builder, reconciler.WithBuildTimeout(cfg.BuildTimeout))
	d.reconciler = reconciler.New(reconciler.Config{
		Target:       reconciler.Network{ID: cfg.NetworkID, Name: cfg.NetworkName},
		PollInterval: cfg.AddressPollInterval,
	}, rt, d.metrics)

	router := api.NewRouter(api.Deps{
		Store:          d.store,
		Controller:     d.reconciler,
		JWT:            jwtManager,
		Metrics:        d.metrics,
		Network:        handlers.Network{ID: cfg.NetworkID, Name: cfg.NetworkName},
		AllowedOrigins: cfg.AllowedOrigins,
		Kinds:          builder,
	})
	d.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return d, nil
}

func openStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		f, err := storage.NewFile(cfg.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		logger.Infof("Storage: %s", f.Path())
		return f, nil
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.StorageDir, 0o700); err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		path := filepath.Join(cfg.StorageDir, "zkdash.db")
		db, err := storage.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		logger.Infof("Storage: %s", path)
		return db, nil
	default:
		return storage.NewMemory(), nil
	}
}

// start launches the reconciler and attaches the provider, if any.
func (d *daemon) start() {
	d.reconciler.Start()
	if d.provider != nil {
		d.reconciler.AttachProvider(d.provider)
	}
}

// close stops the reconciler before the provider it is subscribed to.
func (d *daemon) close() {
	d.reconciler.Stop()
	if d.provider != nil {
		d.provider.Close()
	}
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			logger.Warnf("close: %v", err)
		}
	}
}

func (d *daemon) run(ctx context.Context) error {
	d.start()
	defer d.close()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("%s listening on %s (network %s)", version.RichVersion(), d.cfg.Addr, d.cfg.NetworkID)
		errCh <- d.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
