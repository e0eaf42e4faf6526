package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"gdetector/internal/config"
	"gdetector/internal/gscanner"
	"gdetector/internal/issuse"
	"gdetector/internal/module"
	"gdetector/internal/solver"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	scenarioFile string
	configFile   string
	solveTimeout time.Duration
	modules      []string
	pathOrder    string
	metricsFile  string
)

var scanCommand = &cobra.Command{
	Use:   "scan",
	Short: "replay a hook trace through the detection modules",
	Long:  ``,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return scanExec(cmd)
	},
}

func init() {
	scanCommand.Flags().StringVar(&scenarioFile, "scenario", "", "hook trace scenario (yaml)")
	scanCommand.Flags().StringVar(&configFile, "config", "", "config file (yaml)")
	scanCommand.Flags().DurationVar(&solveTimeout, "timeout", 10*time.Second, "per query solver timeout")
	scanCommand.Flags().StringSliceVar(&modules, "modules", nil, "enabled detection modules, all by default")
	scanCommand.Flags().StringVar(&pathOrder, "strategy", "bfs", "path order, bfs or dfs")
	scanCommand.Flags().StringVar(&metricsFile, "metrics-file", "", "write solver metrics in text format")
	_ = scanCommand.MarkFlagRequired("scenario")
}

// loadConfig 命令行参数覆盖配置文件
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Solver.Timeout = solveTimeout
	}
	if cmd.Flags().Changed("modules") {
		cfg.Detection.Modules = modules
	}
	return cfg, cfg.Validate()
}

func scanExec(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	log.SetLevel(cfg.Level())

	sc, err := gscanner.LoadScenario(scenarioFile)
	if err != nil {
		return err
	}

	yices2.Init()
	defer yices2.Exit()

	dms, err := module.NewModules(cfg.Detection.Modules)
	if err != nil {
		return err
	}
	moduleManager := module.NewModuleManager()
	for _, dm := range dms {
		if err := moduleManager.AddModule(dm); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	analyzer := gscanner.NewAnalyzer(moduleManager, module.NewRoleResolver(cfg.RoleSource()), gscanner.Options{
		Detection: cfg.DetectionConfig(),
		Solver:    cfg.SolverOptions(),
		Metrics:   solver.NewMetrics(registry),
		Strategy:  pathOrder,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	report, err := analyzer.Replay(ctx, sc)
	if err != nil {
		return err
	}
	printReport(report)

	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}

func printReport(report *gscanner.Report) {
	fmt.Printf("total issuses found: %d\n", len(report.Issuses))
	for _, is := range report.Issuses {
		fmt.Println(is)
	}
	if len(report.Inconclusive) > 0 {
		fmt.Println(issuse.Colour(33, fmt.Sprintf("inconclusive (solver timeout): %d", len(report.Inconclusive))))
		for _, pi := range report.Inconclusive {
			fmt.Printf("  %s %s:%d %s\n", pi.Detector, pi.Contract, pi.Address, pi.Title)
		}
	}
	fmt.Println("analyze time used: ", report.Duration.Seconds())
}
