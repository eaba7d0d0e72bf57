package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swapvault/config"
	"swapvault/core"
	"swapvault/ledger"
	"swapvault/observability/logging"
	"swapvault/observability/metrics"
	"swapvault/rpc"
	"swapvault/storage"
)

const genesisPathEnv = "SWAPVAULT_GENESIS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides SWAPVAULT_GENESIS and config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("SWAPVAULT_ENV"))
	var logOpts []logging.Option
	if strings.TrimSpace(cfg.LogFile) != "" {
		logOpts = append(logOpts, logging.WithRotatingFile(cfg.LogFile))
	}
	logger := logging.Setup("swapvaultd", env, logOpts...)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ops := metrics.NewOperations(registry)

	hub := rpc.NewEventHub()
	node := core.NewNode(db, core.WithMetrics(ops), core.WithEventSink(hub.Publish))

	genesisPath := resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)
	if genesisPath != "" {
		gen, err := ledger.LoadGenesis(genesisPath)
		if err != nil {
			panic(fmt.Sprintf("Failed to load genesis document: %v", err))
		}
		if err := node.InitGenesis(gen); err != nil {
			panic(fmt.Sprintf("Failed to apply genesis document: %v", err))
		}
		logger.Info("Genesis document applied",
			slog.String("path", genesisPath),
			slog.String("chain", gen.ChainName))
	}

	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			logger.Info("Starting metrics server", slog.String("address", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("Metrics server stopped", slog.Any("error", err))
			}
		}()
	}

	server := rpc.NewServer(node, hub)
	logger.Info("Starting JSON-RPC server",
		slog.String("address", cfg.RPCAddress),
		slog.String("network", cfg.NetworkName))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("JSON-RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// resolveGenesisPath picks the genesis document in precedence order: the CLI
// flag, the environment variable, then the config file entry.
func resolveGenesisPath(flagValue, cfgValue string, lookup func(string) (string, bool)) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if value, ok := lookup(genesisPathEnv); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(cfgValue)
}
