package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	applog "github.com/Sriram-PR/link-auditor/pkg/log"
	"github.com/Sriram-PR/link-auditor/pkg/mcp"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	transport := fs.String("transport", "stdio", "Transport type (stdio, sse)")
	port := fs.Int("port", 8080, "HTTP port (for sse transport)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: link-auditor mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport
  link-auditor mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  link-auditor mcp-server -config config.yaml -transport sse -port 8080

Available MCP Tools:
  crawl_site         Start a background link audit
  get_job_status     Progress of a crawl job
  get_crawl_results  Summary and results of a finished job
  cancel_job         Stop a running job, keeping partial results
  check_url          Fetch and classify a single URL
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doMcpServer(*configFile, *transport, *port, *logLevel, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doMcpServer is the testable implementation of the MCP server
func doMcpServer(configPath, transport string, port int, logLevel string, stdout, stderr io.Writer) int {
	// MCP protocol uses stdout, logs go to stderr
	log, warning := applog.NewLogger(logLevel, "text", stderr)
	if warning != "" {
		fmt.Fprintf(stderr, "Invalid log level: %s\n", logLevel)
		return 1
	}

	appCfg, err := loadMcpConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder, err := startMetrics(ctx, appCfg.MetricsAddr, log.WithField("component", "metrics"))
	if err != nil {
		fmt.Fprintf(stderr, "Error starting metrics endpoint: %v\n", err)
		return 1
	}

	serverCfg := &mcp.ServerConfig{
		AppConfig:  appCfg,
		ConfigPath: configPath,
		Transport:  transport,
		Port:       port,
		Version:    version,
		Logger:     log,
		Recorder:   recorder,
	}

	server, err := mcp.NewServer(serverCfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting MCP server (transport: %s)", transport)

	if err := server.Run(); err != nil {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}

	return 0
}

// loadMcpConfig requires a config file: crawl_site falls back to its base_url
func loadMcpConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("-config is required")
	}
	return loadConfig(path)
}
