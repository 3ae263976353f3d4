package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"batch_payout/internal/app/provider"
	"batch_payout/internal/app/service"
	"batch_payout/internal/infrastructure/configloader"
	evmclient "batch_payout/internal/infrastructure/network/client"
	networkdefinition "batch_payout/internal/infrastructure/network/definition"
	"batch_payout/internal/infrastructure/restapi"
	"batch_payout/internal/infrastructure/session"
	"batch_payout/internal/infrastructure/walletapi"
	"batch_payout/internal/infrastructure/walletloader"
	"batch_payout/internal/pkg/logger"
	"batch_payout/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the payout HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := configloader.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	zapLogger, err := logger.NewZap(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger.InitZap(zapLogger)
	appLogger := logger.NewSlogAdapter()

	network := networkdefinition.Select(cfg.Network)
	zapLogger.Info("Serving network",
		zap.String("network", network.Identifier),
		zap.Uint64("chainId", network.ChainID),
		zap.Bool("mainnet", network.Mainnet))

	m := metrics.New(prometheus.DefaultRegisterer)

	clientProvider := evmclient.NewEVMClientProvider(cfg, appLogger)
	defer clientProvider.Close()
	chainClient, err := clientProvider.GetClient(network)
	if err != nil {
		return err
	}

	registry, err := newTokenRegistry(cfg, appLogger)
	if err != nil {
		return err
	}

	walletClient := walletapi.NewClient(cfg.WalletService, networkdefinition.All(), zapLogger)
	accounts := provider.NewAccountProvider(walletClient,
		time.Duration(cfg.Cache.AccountTTLMinutes)*time.Minute,
		time.Duration(cfg.Cache.CleanupIntervalMinutes)*time.Minute,
		appLogger)

	balances := service.NewBalanceService(registry, chainClient, appLogger)
	authorizer := service.NewAllowanceService(walletClient, chainClient, uuid.NewString,
		time.Duration(cfg.Transfer.ApprovalTimeoutSeconds)*time.Second, m, appLogger)
	executor := service.NewExecutorService(registry, walletClient, chainClient, uuid.NewString, service.ExecutorConfig{
		SpenderAddress:     cfg.Transfer.SpenderAddress,
		MaxRecipientsPerTx: cfg.Transfer.MaxRecipientsPerTx,
		Timeout:            time.Duration(cfg.Transfer.ExecutionTimeoutSeconds) * time.Second,
	}, m, appLogger)
	transfers := service.NewTransferService(
		service.NewPlanner(registry, network, cfg.Transfer.MaxRecipients),
		accounts, balances, authorizer, executor,
		service.TransferConfig{
			SpenderAddress:      cfg.Transfer.SpenderAddress,
			SerializePerAccount: cfg.SerializePerAccount(),
		}, m, appLogger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewTransferHandler(transfers, accounts, balances,
		walletloader.NewRecipientFileLoader(cfg.Transfer.MaxRecipients, appLogger.Info),
		registry, network, zapLogger)
	router := restapi.SetupRouter(restapi.RouterDeps{
		Handler:  handler,
		Sessions: session.NewHeaderProvider(cfg.Session.Header),
		Metrics:  m,
		Config:   cfg,
		Logger:   zapLogger,
	})

	srv := &http.Server{
		Addr:         listenAddr(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	zapLogger.Info("Shutting down server...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zapLogger.Info("Server exiting")
	return nil
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
