package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	applog "github.com/Sriram-PR/link-auditor/pkg/log"
	"github.com/Sriram-PR/link-auditor/pkg/metrics"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/report"
	"github.com/Sriram-PR/link-auditor/pkg/watch"
)

// runWatch handles the watch subcommand
func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	opts := crawlOptions{}
	bindCrawlFlags(fs, &opts)
	interval := fs.String("interval", "24h", "Time between audits (e.g., 30m, 1h, 24h, 7d)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: link-auditor watch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  link-auditor watch -config config.yaml -interval 24h\n")
		fmt.Fprintf(os.Stderr, "  link-auditor watch -base-url https://webview.hse.ie -domain hse.ie -interval 7d\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(executeWatch(opts, *interval, os.Stdout, os.Stderr))
}

// executeWatch re-audits the configured site until interrupted and returns the exit code
func executeWatch(opts crawlOptions, intervalStr string, stdout, stderr io.Writer) int {
	log, warning := applog.NewLogger(opts.logLevel, opts.logFormat, stderr)
	if warning != "" {
		log.Warn(warning)
	}

	interval, err := watch.ParseInterval(intervalStr)
	if err != nil {
		log.Errorf("Invalid interval: %v", err)
		return 1
	}

	appCfg, err := loadConfig(opts.configFile)
	if err != nil {
		log.Errorf("Config error: %v", err)
		return 1
	}
	applyOverrides(appCfg, opts)
	appWarnings, err := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}
	if err != nil {
		log.Errorf("Configuration error: %v", err)
		return 1
	}
	logAppConfig(appCfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logEntry := log.WithField("component", "watch")
	recorder, err := startMetrics(ctx, appCfg.MetricsAddr, logEntry)
	if err != nil {
		log.Errorf("Failed to start metrics endpoint: %v", err)
		return 1
	}

	scheduler := watch.NewScheduler(appCfg.StateDir, appCfg.BaseURL, interval, auditRunner(appCfg, recorder, log, stdout), logEntry)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal %v, stopping watch...", sig)
			scheduler.Stop()
		case <-ctx.Done():
		}
	}()

	if err := scheduler.Run(); err != nil {
		log.Errorf("Watch scheduler error: %v", err)
		return 1
	}

	log.Info("Watch mode stopped")
	return 0
}

// auditRunner returns the scheduler's run function: one fresh crawl, reports
// overwritten in place, and a summary on stdout
func auditRunner(appCfg *config.AppConfig, recorder metrics.Recorder, log *logrus.Logger, stdout io.Writer) watch.RunFunc {
	return func(ctx context.Context) (*models.CrawlReport, error) {
		rep, err := runAudit(ctx, appCfg, false, recorder, "", log.WithField("component", "crawl"))
		if rep == nil {
			return nil, err
		}
		if _, writeErr := writeReports(appCfg, rep, log); writeErr != nil && err == nil {
			err = writeErr
		}
		report.PrintSummary(stdout, rep.Summary)
		return rep, err
	}
}
