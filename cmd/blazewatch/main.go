package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/blazewatch/internal/alerting"
	"github.com/good-yellow-bee/blazewatch/internal/api"
	"github.com/good-yellow-bee/blazewatch/internal/api/health"
	"github.com/good-yellow-bee/blazewatch/internal/metrics"
	"github.com/good-yellow-bee/blazewatch/internal/monitor"
	"github.com/good-yellow-bee/blazewatch/pkg/config"
)

var (
	configFile  string
	httpAddr    string
	metricsAddr string
	rulesFile   string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "blazewatch",
	Short: "blazewatch - client-side observability pipeline",
	Long: `blazewatch collects performance samples, errors and user behavior
reported by browsers, evaluates alert rules against them and delivers
notifications to the console, subscribed browsers and webhooks.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion and dashboard API",
	RunE:  runServe,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage alert rule files",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate an alert rules file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := config.GetBuildInfo()
		fmt.Printf("blazewatch %s\n", info.Version)
		fmt.Printf("  commit: %s\n", info.Commit)
		fmt.Printf("  built:  %s\n", info.BuildTime)
		fmt.Printf("  go:     %s %s\n", info.GoVersion, info.Platform)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	serveCmd.Flags().StringVarP(&httpAddr, "address", "a", "", "HTTP API listen address")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-address", "", "Prometheus metrics listen address")
	serveCmd.Flags().StringVar(&rulesFile, "rules", "", "alert rules YAML file, reloaded on change")

	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(serveCmd, rulesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*Config, error) {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	if metricsAddr != "" {
		cfg.Server.MetricsAddress = metricsAddr
	}
	if rulesFile != "" {
		cfg.Alerts.RulesFile = rulesFile
		cfg.Alerts.WatchRules = true
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info := config.GetBuildInfo()
	metrics.SetBuildInfo(info.Version, info.Commit, info.BuildTime)

	mon, err := monitor.New(monitor.Options{Config: cfg.monitorConfig()})
	if err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}
	defer mon.Close()

	if cfg.Alerts.RulesFile != "" {
		rules, err := alerting.LoadRulesFromFile(cfg.Alerts.RulesFile)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		if err := mon.Alerts.ReplaceRules(rules); err != nil {
			return fmt.Errorf("install rules: %w", err)
		}
		log.Printf("loaded %d alert rules from %s", len(rules), cfg.Alerts.RulesFile)
	}

	srv, err := api.New(cfg.apiConfig(), mon)
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gCtx)
	})
	g.Go(func() error {
		return mon.Run(gCtx)
	})

	if cfg.Server.MetricsAddress != "" {
		ms := metrics.NewServer(cfg.Server.MetricsAddress)
		srv.RegisterHealthChecker(health.NewRunningChecker("metrics", ms.Running))
		g.Go(func() error {
			return ms.Run(gCtx)
		})
	}

	if cfg.Alerts.WatchRules {
		w, err := alerting.NewWatcher(cfg.Alerts.RulesFile, mon.Alerts)
		if err != nil {
			cancel()
			g.Wait()
			return fmt.Errorf("watch rules: %w", err)
		}
		srv.RegisterHealthChecker(health.NewFuncChecker("rules", func(ctx context.Context) error {
			return w.LastError()
		}))
		g.Go(func() error {
			return w.Run(gCtx)
		})
	}

	log.Printf("starting %s", config.VersionString())

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	rules, err := alerting.LoadRulesFromFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range rules {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(out, "  %-30s %-12s %-8s %s\n", r.Name, r.Type, state, r.Condition)
	}
	fmt.Fprintf(out, "%s: %d rules OK\n", args[0], len(rules))
	return nil
}
