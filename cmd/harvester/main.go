package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/sacherjj/casper-harvester/internal/cachestore"
	"github.com/sacherjj/casper-harvester/internal/harvest"
	"github.com/sacherjj/casper-harvester/internal/metrics"
	"github.com/sacherjj/casper-harvester/internal/noderpc"
	"github.com/sacherjj/casper-harvester/internal/report"
)

type config struct {
	NodeAddress    string        `long:"node-address" env:"HARVESTER_NODE_ADDRESS" description:"node JSON-RPC address" default:"http://127.0.0.1:7777"`
	ChainName      string        `long:"chain-name" env:"HARVESTER_CHAIN_NAME" description:"chain name of the target network" required:"true"`
	AuctionKey     string        `long:"auction-key" env:"HARVESTER_AUCTION_KEY" description:"stored-contract key of the auction contract" required:"true"`
	CacheDir       string        `long:"cache-dir" env:"HARVESTER_CACHE_DIR" description:"directory for block/deploy/era cache files" default:".harvester-cache"`
	OutputDir      string        `long:"output-dir" env:"HARVESTER_OUTPUT_DIR" description:"directory for CSV reports" default:"."`
	RequestTimeout time.Duration `long:"request-timeout" env:"HARVESTER_REQUEST_TIMEOUT" description:"timeout per node RPC call" default:"30s"`
	FetchRPS       int           `long:"fetch-rps" env:"HARVESTER_FETCH_RPS" description:"max block fetches per second during the chain walk" default:"10"`
	MetricsAddr    string        `long:"metrics-addr" env:"HARVESTER_METRICS_ADDR" description:"Prometheus listen address, disabled when empty"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("harvester failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	store, err := cachestore.New(cfg.CacheDir, logger)
	if err != nil {
		return fmt.Errorf("init cache store: %w", err)
	}

	client := noderpc.NewClient(noderpc.Config{
		Address:        cfg.NodeAddress,
		ChainName:      cfg.ChainName,
		AuctionKey:     cfg.AuctionKey,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)
	observed := noderpc.NewObservedClient(client, metrics.NewNodeClient(cfg.ChainName))

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	harvester, err := harvest.New(observed, store, ratelimit.New(cfg.FetchRPS), logger)
	if err != nil {
		return err
	}

	result, err := harvester.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeReports(result, cfg.OutputDir, logger); err != nil {
		return err
	}

	logger.Info("harvest complete",
		zap.Int("blocks", len(result.Blocks)),
		zap.Int("deploys", len(result.Deploys)),
		zap.Int("eras", len(result.Eras)))
	return nil
}

func writeReports(result *harvest.Result, dir string, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	proposerPath := filepath.Join(dir, "block_proposer.csv")
	if err := writeReport(proposerPath, func(f *os.File) error {
		return report.WriteBlockProposerLog(f, result.Blocks)
	}); err != nil {
		return err
	}
	logger.Info("wrote block proposer log", zap.String("path", proposerPath))

	bondsPath := filepath.Join(dir, "validators_by_era.csv")
	if err := writeReport(bondsPath, func(f *os.File) error {
		return report.WriteValidatorBondsByEra(f, harvest.ValidatorBondMatrix(result.Eras))
	}); err != nil {
		return err
	}
	logger.Info("wrote validator bonds log", zap.String("path", bondsPath))

	return nil
}

func writeReport(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics listener stopped", zap.Error(err))
	}
}
