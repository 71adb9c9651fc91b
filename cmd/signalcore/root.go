package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/signalcore/internal/app"
	"github.com/sawpanic/signalcore/internal/config"
	"github.com/sawpanic/signalcore/internal/logging"
	"github.com/sawpanic/signalcore/internal/opc"
)

var (
	configPath string
	envPath    string
)

// Execute builds the signalcore command tree and runs it under ctx.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:   "signalcore",
		Short: "Real-time cryptocurrency trading signal generation core",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&envPath, "env", ".env", "path to the .env file carrying connection secrets")

	root.AddCommand(runCmd(ctx))
	root.AddCommand(healthCmd(ctx))
	root.AddCommand(poolsProbeCmd(ctx))

	return root.ExecuteContext(ctx)
}

func loadConfig() (config.Config, config.Connections, error) {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return config.Config{}, config.Connections{}, fmt.Errorf("loading config: %w", err)
	}
	logging.Init(cfg.LogLevel, true)
	return cfg, config.LoadConnections(), nil
}

func runCmd(ctx context.Context) *cobra.Command {
	var symbols []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the full signal generation pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conns, err := loadConfig()
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				symbols = cfg.OPC.MainstreamSymbols
			}

			core, err := app.New(cfg, conns, symbols)
			if err != nil {
				return fmt.Errorf("assembling core: %w", err)
			}
			if err := core.Start(ctx); err != nil {
				return fmt.Errorf("starting core: %w", err)
			}
			log.Info().Strs("symbols", symbols).Msg("signalcore running, press ctrl-c to stop")

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			core.Stop(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "trading symbols to track (defaults to the configured mainstream set)")
	return cmd
}

func healthCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Validate configuration and external connectivity without starting the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conns, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("config ok: log_level=%s rpc_endpoints=%d symbols=%v\n",
				cfg.LogLevel, len(cfg.OPC.RPCEndpoints), cfg.OPC.MainstreamSymbols)
			fmt.Printf("redis=%s mysql_dsn_set=%t postgres_dsn_set=%t http_port=%d\n",
				conns.RedisAddr, conns.MySQLDSN != "", conns.PostgresDSN != "", conns.HTTPPort)
			return nil
		},
	}
}

func poolsProbeCmd(ctx context.Context) *cobra.Command {
	var symbol, tokenAddr string
	cmd := &cobra.Command{
		Use:   "pools probe",
		Short: "Run a single pool-discovery pass for one symbol and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if symbol == "" || tokenAddr == "" {
				return fmt.Errorf("--symbol and --token-address are required")
			}
			if cfg.OPC.TokenAddresses == nil {
				cfg.OPC.TokenAddresses = map[string]string{}
			}
			cfg.OPC.TokenAddresses[symbol] = tokenAddr

			rpcPool, err := opc.NewRPCPool(cfg.OPC.RPCEndpoints, time.Duration(cfg.OPC.RPCTimeoutSec)*time.Second)
			if err != nil {
				return fmt.Errorf("dialing RPC pool: %w", err)
			}
			disc := opc.NewDiscovery(cfg.OPC, rpcPool)
			resolver := app.NewStaticTokenResolver(cfg.OPC)

			probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			pool, err := disc.BestPool(probeCtx, symbol, resolver)
			if err != nil {
				return fmt.Errorf("discovering pool for %s: %w", symbol, err)
			}
			fmt.Printf("best pool for %s: address=%s version=%s fee_tier=%d liquidity_score=%.4f\n",
				symbol, pool.Address.Hex(), pool.Version, pool.FeeTier, pool.LiquidityScore)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol to probe, e.g. WETH")
	cmd.Flags().StringVar(&tokenAddr, "token-address", "", "ERC20 address for the symbol")
	return cmd
}
