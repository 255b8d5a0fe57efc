package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"marketScope/internal/chain"
	"marketScope/internal/config"
	"marketScope/internal/indexer"
	"marketScope/internal/market"
	"marketScope/internal/metadata"
	"marketScope/internal/metrics"
	"marketScope/internal/notify"
	"marketScope/internal/notify/redisbus"
	"marketScope/internal/notify/ws"
	"marketScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "marketscope",
		Short:        "NFT marketplace chain sync service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync service",
		RunE:  runSync,
	}

	runCmd.Flags().String("rpc", "", "chain RPC URL")
	runCmd.Flags().String("nft-address", "", "NFT collection contract address")
	runCmd.Flags().String("market-address", "", "marketplace contract address")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	runCmd.Flags().Uint64("window-size", 100, "blocks per sync window")
	runCmd.Flags().Duration("poll-interval", 2*time.Second, "steady-state poll interval")
	runCmd.Flags().Duration("reconnect-delay", 5*time.Second, "delay between reconnect attempts")
	runCmd.Flags().Int("max-reconnects", 5, "reconnect attempts before giving up")
	runCmd.Flags().String("ipfs-gateway", "https://ipfs.io", "IPFS gateway for token metadata")
	runCmd.Flags().String("broadcast", "ws", "notification transport (ws, redis, none)")
	runCmd.Flags().String("listen", ":8090", "listen address for /ws and /metrics")
	runCmd.Flags().String("redis-addr", "localhost:6379", "Redis address for broadcast=redis")
	runCmd.Flags().String("redis-channel", "marketscope:events", "Redis pub/sub channel")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.NFTAddress) {
		return fmt.Errorf("invalid nft address: %q", cfg.NFTAddress)
	}
	if !common.IsHexAddress(cfg.MarketplaceAddress) {
		return fmt.Errorf("invalid marketplace address: %q", cfg.MarketplaceAddress)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	decoder, err := market.NewDecoder()
	if err != nil {
		return err
	}

	m := metrics.Init()
	resolver := metadata.NewResolver(cfg.IPFSGateway, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	var bus notify.Broadcaster
	switch cfg.Broadcast {
	case "ws":
		hub := ws.NewHub(logger)
		go hub.Run(ctx)
		mux.Handle("/ws", hub)
		bus = hub
	case "redis":
		redisBus := redisbus.New(cfg.RedisAddr, cfg.RedisChannel, logger)
		defer redisBus.Close()
		bus = redisBus
	case "none":
		bus = notify.NopBroadcaster{}
	default:
		return fmt.Errorf("unknown broadcast transport: %q", cfg.Broadcast)
	}

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
		}
	}()
	defer server.Shutdown(context.Background())

	checkpoints := indexer.NewCheckpointManager(store, logger)
	dispatcher := indexer.NewDispatcher(store, chainClient, resolver, bus, logger, m)

	svc, err := indexer.New(indexer.Config{
		NFTAddress:         common.HexToAddress(cfg.NFTAddress),
		MarketplaceAddress: common.HexToAddress(cfg.MarketplaceAddress),
		WindowSize:         cfg.WindowSize,
		PollInterval:       cfg.PollInterval,
		ReconnectDelay:     cfg.ReconnectDelay,
		MaxReconnects:      cfg.MaxReconnects,
	}, chainClient, decoder, checkpoints, dispatcher, logger, m)
	if err != nil {
		return err
	}

	logger.Info("sync service start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("nft", cfg.NFTAddress),
		zap.String("marketplace", cfg.MarketplaceAddress),
		zap.Uint64("window_size", cfg.WindowSize),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("broadcast", cfg.Broadcast),
		zap.String("listen", cfg.ListenAddr),
	)

	if err := svc.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		svc.Stop()
		<-svc.Done()
	case <-svc.Done():
	}

	logger.Info("sync service stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
