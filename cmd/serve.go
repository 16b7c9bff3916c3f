package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mezonai/ppy/exception"
	"github.com/mezonai/ppy/jsonrpc"
	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/monitoring"
	"github.com/mezonai/ppy/ratelimit"
	"github.com/spf13/cobra"
)

var (
	serveInteractive bool
	serveNoMetrics   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON-RPC bridge for out-of-process wallet hosts",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBridge(cmd.Context()); err != nil {
			logx.Error("SERVE", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveInteractive, "interactive", false, "answer signature popups on this terminal")
	serveCmd.Flags().BoolVar(&serveNoMetrics, "no-metrics", false, "do not expose the prometheus endpoint")
}

func runBridge(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open plugin: %w", err)
	}
	defer s.Close()

	bridgeCfg, err := loadBridgeConfiguration(settingsFile)
	if err != nil {
		return err
	}
	limiter := ratelimit.NewBridgeLimiter(&ratelimit.BridgeConfig{
		IP:      &ratelimit.Config{MaxRequests: bridgeCfg.IPMaxRequests, WindowSize: bridgeCfg.Window()},
		Account: &ratelimit.Config{MaxRequests: bridgeCfg.AccountMaxRequests, WindowSize: bridgeCfg.Window()},
		Global:  &ratelimit.Config{MaxRequests: bridgeCfg.GlobalMaxRequests, WindowSize: bridgeCfg.Window()},
	})

	if !serveNoMetrics && s.cfg.MetricsAddr != "" {
		exception.SafeGo("MetricsServer", func() {
			logx.Info("SERVE", fmt.Sprintf("metrics on %s/metrics", s.cfg.MetricsAddr))
			if err := monitoring.Serve(s.cfg.MetricsAddr); err != nil {
				logx.Error("SERVE", "metrics server stopped:", err)
			}
		})
	}

	if serveInteractive {
		defer attachPrompt(ctx, s.bus, os.Stdin, os.Stdout)()
	}

	s.tracker.StartCleanup(time.Minute, ctx.Done())

	srv := jsonrpc.NewServer(s.cfg.BridgeAddr, s.plugin, limiter, bridgeCfg.MaxBodyBytes)
	if cors, ok := jsonrpc.CORSFromEnv(); ok {
		srv.SetCORSConfig(cors)
	}
	srv.Start()

	<-ctx.Done()
	logx.Info("SERVE", "shutting down bridge")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
