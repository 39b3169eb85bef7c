package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/crawler"
	"github.com/Sriram-PR/link-auditor/pkg/fetch"
	applog "github.com/Sriram-PR/link-auditor/pkg/log"
	"github.com/Sriram-PR/link-auditor/pkg/metrics"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/report"
	"github.com/Sriram-PR/link-auditor/pkg/storage"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:], false)
	case "resume":
		runCrawl(os.Args[2:], true)
	case "launch":
		runLaunch(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "version":
		fmt.Printf("link-auditor %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `link-auditor - Single-domain link and redirect auditor

Usage:
  link-auditor <command> [options]

Commands:
  crawl       Start a fresh crawl
  resume      Resume an interrupted crawl (requires persisted state)
  launch      Start a crawl in the background with timestamped log files
  watch       Re-audit on a schedule and report newly broken links
  validate    Validate configuration file
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'link-auditor <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file. An empty path yields an empty
// config so a crawl can be driven by flags alone.
func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return &config.AppConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w: %w", utils.ErrParsing, err)
	}

	return &cfg, nil
}

// crawlOptions carries the crawl/resume flags
type crawlOptions struct {
	configFile      string
	baseURL         string
	domainSuffix    string
	userAgent       string
	workers         int
	logLevel        string
	logFormat       string
	outputDir       string
	formats         string
	persist         bool
	metricsAddr     string
	pprofAddr       string
	table           bool
	writeVisitedLog bool
	resume          bool
}

// bindCrawlFlags registers the crawl flags on fs
func bindCrawlFlags(fs *flag.FlagSet, opts *crawlOptions) {
	fs.StringVar(&opts.configFile, "config", "", "Path to YAML config file (optional when -base-url is set)")
	fs.StringVar(&opts.baseURL, "base-url", "", "URL the crawl starts from (overrides base_url)")
	fs.StringVar(&opts.domainSuffix, "domain", "", "Hostname suffix treated as internal (overrides domain_suffix)")
	fs.StringVar(&opts.userAgent, "user-agent", "", "User-Agent header (overrides user_agent)")
	fs.IntVar(&opts.workers, "workers", 0, "Concurrent fetches, 1 = sequential (overrides num_workers)")
	fs.StringVar(&opts.logLevel, "loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	fs.StringVar(&opts.logFormat, "logformat", "text", "Log format (text, json)")
	fs.StringVar(&opts.outputDir, "output-dir", "", "Directory for reports (overrides output_dir)")
	fs.StringVar(&opts.formats, "formats", "", "Comma-separated report formats: json,yaml,xlsx (overrides report_formats)")
	fs.BoolVar(&opts.persist, "persist", false, "Keep crawl state on disk so the crawl can be resumed")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Address for the Prometheus /metrics endpoint, e.g. localhost:9090")
	fs.StringVar(&opts.pprofAddr, "pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")
	fs.BoolVar(&opts.table, "table", false, "Print every result as a table when the crawl ends")
	fs.BoolVar(&opts.writeVisitedLog, "write-visited-log", false, "Write visited URLs log on completion")
}

// runCrawl handles both crawl and resume subcommands
func runCrawl(args []string, isResume bool) {
	cmdName := "crawl"
	if isResume {
		cmdName = "resume"
	}

	fs := flag.NewFlagSet(cmdName, flag.ExitOnError)
	opts := crawlOptions{resume: isResume}
	bindCrawlFlags(fs, &opts)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: link-auditor %s [options]\n\nOptions:\n", cmdName)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  link-auditor %s -config config.yaml\n", cmdName)
		fmt.Fprintf(os.Stderr, "  link-auditor %s -base-url https://webview.hse.ie -domain hse.ie -table\n", cmdName)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(executeCrawl(opts, os.Stdout, os.Stderr))
}

// applyOverrides copies set flags onto the loaded config
func applyOverrides(cfg *config.AppConfig, opts crawlOptions) {
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.domainSuffix != "" {
		cfg.DomainSuffix = opts.domainSuffix
	}
	if opts.userAgent != "" {
		cfg.UserAgent = opts.userAgent
	}
	if opts.workers > 0 {
		cfg.NumWorkers = opts.workers
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.formats != "" {
		cfg.ReportFormats = nil
		for _, f := range strings.Split(opts.formats, ",") {
			if f = strings.TrimSpace(f); f != "" {
				cfg.ReportFormats = append(cfg.ReportFormats, f)
			}
		}
	}
	if opts.persist || opts.resume {
		cfg.PersistState = true
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
}

// executeCrawl runs one crawl and returns the process exit code.
func executeCrawl(opts crawlOptions, stdout, stderr io.Writer) int {
	log, warning := applog.NewLogger(opts.logLevel, opts.logFormat, stderr)
	if warning != "" {
		log.Warn(warning)
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

	startPprof(opts.pprofAddr, log)

	// ===========================================================
	// == Setup Context & Signal Handling ==
	// ===========================================================
	crawlCtx, cancelCrawl := context.WithCancel(context.Background())
	defer cancelCrawl()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("PANIC in signal handler: %v", r)
			}
		}()
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
			cancelCrawl()
		case <-crawlCtx.Done():
			return
		}

		select {
		case sig := <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	// ===========================================================
	// == Initialize Components ==
	// ===========================================================
	log.Info("Initializing components...")
	logEntry := log.WithField("component", "crawl")

	recorder, err := startMetrics(crawlCtx, appCfg.MetricsAddr, logEntry)
	if err != nil {
		log.Errorf("Failed to start metrics endpoint: %v", err)
		return 1
	}

	var visitedLogPath string
	if opts.writeVisitedLog {
		visitedLogPath = filepath.Join(appCfg.OutputDir, fmt.Sprintf("%s-visited.txt", utils.HostSlug(appCfg.BaseURL)))
	}

	// ===========================================================
	// == Start Crawler Execution ==
	// ===========================================================
	rep, crawlErr := runAudit(crawlCtx, appCfg, opts.resume, recorder, visitedLogPath, logEntry)
	if rep == nil {
		log.Errorf("Crawl failed: %v", crawlErr)
		return 1
	}

	// ===========================================================
	// == Post-Crawl Actions ==
	// ===========================================================
	exitCode := 0

	// Partial results from a cancelled or timed out crawl are still reported
	if _, err := writeReports(appCfg, rep, log); err != nil {
		exitCode = 1
	}
	if opts.table {
		if err := report.PrintTable(stdout, rep.Results); err != nil {
			log.Errorf("Failed to print results table: %v", err)
		}
	}
	report.PrintSummary(stdout, rep.Summary)

	// --- Exit ---
	if crawlErr != nil {
		switch {
		case errors.Is(crawlErr, context.Canceled):
			log.Warn("Crawl cancelled gracefully.")
		case errors.Is(crawlErr, context.DeadlineExceeded):
			log.Error("Crawl timed out (global timeout).")
			exitCode = 1
		default:
			log.Errorf("Crawl finished with error: %v", crawlErr)
			exitCode = 1
		}
		return exitCode
	}

	if exitCode == 0 {
		log.Info("Crawl completed successfully.")
	}
	return exitCode
}

// runAudit crawls once and builds the report. The report is nil only when the
// crawl could not start; otherwise it holds every result gathered, possibly
// none, even when the returned error reports a cancellation or timeout.
func runAudit(ctx context.Context, appCfg *config.AppConfig, resume bool, recorder metrics.Recorder, visitedLogPath string, log *logrus.Entry) (*models.CrawlReport, error) {
	gcCtx, stopGC := context.WithCancel(ctx)
	defer stopGC()

	store, err := openStore(gcCtx, appCfg, resume, log)
	if err != nil {
		return nil, fmt.Errorf("initialize crawl state: %w", err)
	}
	defer store.Close()

	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(httpClient, appCfg, log)

	crawlerInstance, err := crawler.NewCrawler(appCfg, fetcher, store, recorder, log)
	if err != nil {
		return nil, fmt.Errorf("initialize crawler: %w", err)
	}

	startedAt := time.Now()
	results, crawlErr := crawlerInstance.Run(ctx, resume)

	if visitedLogPath != "" {
		if writeErr := store.WriteVisitedLog(visitedLogPath); writeErr != nil {
			log.Errorf("Error writing final visited log: %v", writeErr)
		} else {
			log.Infof("Visited log written: %s", visitedLogPath)
		}
	}

	if crawlErr != nil && results == nil {
		return nil, fmt.Errorf("run crawler: %w", crawlErr)
	}
	if len(results) == 0 {
		log.Warn("No results recorded, the base URL could not be fetched")
	}
	rep := report.NewReport(report.Meta{
		RunID:        crawlerInstance.RunID(),
		BaseURL:      crawlerInstance.BaseURL(),
		DomainSuffix: appCfg.DomainSuffix,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}, results)
	return rep, crawlErr
}

// writeReports writes every configured report format and logs the files
func writeReports(appCfg *config.AppConfig, rep *models.CrawlReport, log *logrus.Logger) ([]string, error) {
	files, err := report.WriteAll(appCfg.OutputDir, appCfg.ReportBaseName, appCfg.ReportFormats, rep)
	for _, f := range files {
		log.Infof("Report written: %s", f)
	}
	if err != nil {
		log.WithField("error_type", utils.CategorizeError(err)).Errorf("Failed to write reports: %v", err)
	}
	return files, err
}

// openStore returns the Badger-backed store when state is persisted, otherwise an in-memory one
func openStore(ctx context.Context, appCfg *config.AppConfig, resume bool, log *logrus.Entry) (storage.CrawlStore, error) {
	if !appCfg.PersistState {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewBadgerStore(ctx, appCfg.StateDir, utils.HostSlug(appCfg.BaseURL), resume, log)
	if err != nil {
		return nil, err
	}
	go store.RunGC(ctx, appCfg.DBGCInterval)
	return store, nil
}

// startMetrics serves /metrics when addr is set; otherwise metrics are discarded
func startMetrics(ctx context.Context, addr string, log *logrus.Entry) (metrics.Recorder, error) {
	if addr == "" {
		return metrics.NoopRecorder{}, nil
	}
	recorder, err := metrics.NewPrometheusRecorder()
	if err != nil {
		return nil, err
	}
	if _, err := metrics.Serve(ctx, addr, recorder.Registry(), log); err != nil {
		return nil, err
	}
	return recorder, nil
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: link-auditor validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: base_url=%s domain_suffix=%s workers=%d formats=%s\n",
		appCfg.BaseURL, appCfg.DomainSuffix, appCfg.NumWorkers, strings.Join(appCfg.ReportFormats, ","))
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr == "" {
		return
	}
	runtime.SetBlockProfileRate(1000)
	runtime.SetMutexProfileFraction(1000)
	go func() {
		log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Errorf("pprof server error: %v", err)
		}
	}()
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: BaseURL:%s, DomainSuffix:%s, Workers:%d, Pagination:%s",
		appCfg.BaseURL, appCfg.DomainSuffix, appCfg.NumWorkers, appCfg.PaginationMode)
	log.Infof("Config: UserAgent:'%s', AcceptLanguage:'%s', MaxBodyBytes:%d",
		appCfg.UserAgent, appCfg.AcceptLanguage, appCfg.MaxBodyBytes)
	log.Infof("Config Retries: Max:%d, InitialDelay:%v, MaxDelay:%v",
		appCfg.MaxRetries, appCfg.InitialRetryDelay, appCfg.MaxRetryDelay)
	log.Infof("Config State: Persist:%t, StateDir:%s, Checkpoint:%d, GC:%v, GlobalTimeout:%v",
		appCfg.PersistState, appCfg.StateDir, appCfg.CheckpointInterval, appCfg.DBGCInterval, appCfg.GlobalCrawlTimeout)
	log.Infof("Config Output: Dir:%s, BaseName:%s, Formats:%v",
		appCfg.OutputDir, appCfg.ReportBaseName, appCfg.ReportFormats)
	log.Infof("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, IdleTimeout:%v, TLSTimeout:%v, DialerTimeout:%v",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns, appCfg.HTTPClientSettings.MaxIdleConnsPerHost,
		appCfg.HTTPClientSettings.IdleConnTimeout, appCfg.HTTPClientSettings.TLSHandshakeTimeout, appCfg.HTTPClientSettings.DialerTimeout)
}
