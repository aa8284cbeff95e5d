// Joint wallet service: coordinates owner signatures for shared accounts and
// receives delegated wallet credentials.
// Usage: go run ./cmd/jointwallet
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexZinkM/joint-wallet/delegation"
	"github.com/AlexZinkM/joint-wallet/internal/api"
	"github.com/AlexZinkM/joint-wallet/internal/client"
	"github.com/AlexZinkM/joint-wallet/internal/config"
	"github.com/AlexZinkM/joint-wallet/internal/crypto"
	"github.com/AlexZinkM/joint-wallet/internal/handler"
	"github.com/AlexZinkM/joint-wallet/internal/logging"
	"github.com/AlexZinkM/joint-wallet/internal/quorum"
	"github.com/AlexZinkM/joint-wallet/internal/webhookledger"
	"github.com/AlexZinkM/joint-wallet/safe"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Get()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	key, err := config.GetDelegationPrivateKey()
	if err != nil {
		return fmt.Errorf("failed to load delegation private key: %w", err)
	}

	store, closeStore, err := openLedgerStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	chainID := big.NewInt(config.GetChainID())
	timeout := config.GetRequestTimeout()

	chain, eth, err := client.DialChainClient(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer eth.Close()

	relay := client.NewRelayClient(client.RelayConfig{
		BaseURL:       cfg.RelayURL,
		APIKey:        cfg.RelayAPIKey,
		ChainID:       chainID,
		RatePerSecond: cfg.RelayRatePerSecond,
		Timeout:       timeout,
		Logger:        logger,
	})
	executor := client.NewExecutorClient(client.ExecutorConfig{
		BaseURL: cfg.ExecutorURL,
		APIKey:  cfg.ExecutorAPIKey,
		Timeout: timeout,
		Logger:  logger,
	})

	coordinator := quorum.New(chain, executor,
		quorum.WithLogger(logger),
		quorum.WithTimeout(timeout),
		quorum.WithOnExecutable(func(s quorum.Snapshot) {
			logger.Info("transaction executable",
				zap.String("safeTxHash", s.Hash.Hex()),
				zap.Int("confirmations", len(s.Confirmations)),
				zap.Int("threshold", s.Threshold))
		}),
	)
	service := safe.NewService(relay, coordinator, logger)

	var (
		trigger    handler.DelegationTrigger
		processOpt = []delegation.Option{delegation.WithLogger(logger)}
	)
	if cfg.ProvisioningURL != "" {
		provisioning, err := client.NewProvisioningClient(client.ProvisioningConfig{
			BaseURL:       cfg.ProvisioningURL,
			Token:         cfg.ProvisioningToken,
			EnvironmentID: cfg.EnvironmentID,
			Timeout:       timeout,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		trigger = provisioning
		processOpt = append(processOpt, delegation.WithDelegateLookup(provisioning.UserEmail))
	} else {
		logger.Warn("PROVISIONING_URL not set, delegation requests will report unsupported and delegate emails stay empty")
	}

	ledger := webhookledger.New(store, webhookledger.WithLogger(logger))
	processor, err := delegation.NewProcessor(config.GetWebhookSecret(), key, ledger, processOpt...)
	if err != nil {
		return err
	}

	router := api.SetupRouter(
		handler.NewSafeHandler(service, chainID, logger),
		handler.NewDelegationHandler(processor, trigger, logger),
		logger,
	)

	port := config.GetPort()
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      timeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", port),
			zap.String("chainId", chainID.String()),
			zap.String("ledger", config.GetLedgerBackend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openLedgerStore opens the configured delegated access store. Persistent
// backends seal records with a key derived from the store passphrase.
func openLedgerStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (webhookledger.Store, func(), error) {
	if !cfg.Persistent() {
		logger.Warn("delegated access records are kept in memory and lost on restart")
		return webhookledger.NewMemoryStore(), func() {}, nil
	}

	if cfg.StorePassphrase == "" {
		if err := config.PromptForPassphrase(); err != nil {
			return nil, nil, err
		}
	}
	passphrase, err := config.GetStorePassphraseBytes()
	if err != nil {
		return nil, nil, err
	}
	defer clear(passphrase)

	params := crypto.DefaultScryptParams
	params.N = cfg.ScryptN

	switch config.GetLedgerBackend() {
	case config.BackendSQLite:
		store, err := webhookledger.OpenSQLite(ctx, cfg.SQLitePath, passphrase, params)
		if err != nil {
			return nil, nil, err
		}
		return store, closer(store, logger), nil
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store, err := webhookledger.NewRedisStore(ctx, rdb, passphrase, params)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return store, closer(rdb, logger), nil
	}
}

func closer(c io.Closer, logger *zap.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("failed to close ledger store", zap.Error(err))
		}
	}
}
