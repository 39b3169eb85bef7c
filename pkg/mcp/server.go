package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/metrics"
)

const serverName = "link-auditor"

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig // Validated; crawl_site jobs start from a copy
	ConfigPath string
	Transport  string // "stdio" or "sse"
	Port       int
	Version    string
	Logger     *logrus.Logger
	Recorder   metrics.Recorder // Optional, shared by every job
}

// Server exposes crawl jobs and single-URL checks as MCP tools
type Server struct {
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}

	mcpServer := server.NewMCPServer(
		serverName,
		cfg.Version,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        cfg.Logger.WithField("component", "mcp"),
		jobManager: NewJobManager(),
	}

	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	tools := []server.ServerTool{
		{
			Tool: mcp.NewTool("crawl_site",
				mcp.WithDescription("Start a background link audit of a site. Returns immediately with a job ID."),
				mcp.WithString("base_url",
					mcp.Description("URL to start from (defaults to base_url from the config file)"),
				),
				mcp.WithString("domain_suffix",
					mcp.Description("Hostname suffix treated as internal (defaults to the base URL host)"),
				),
				mcp.WithNumber("workers",
					mcp.Description("Concurrent fetches (default from config, 1 = sequential)"),
				),
			),
			Handler: s.handleCrawlSite,
		},
		{
			Tool: mcp.NewTool("get_job_status",
				mcp.WithDescription("Get the status and progress of a crawl job"),
				mcp.WithString("job_id",
					mcp.Required(),
					mcp.Description("The job ID returned by crawl_site"),
				),
			),
			Handler: s.handleGetJobStatus,
		},
		{
			Tool: mcp.NewTool("get_crawl_results",
				mcp.WithDescription("Get the summary and results of a finished crawl job"),
				mcp.WithString("job_id",
					mcp.Required(),
					mcp.Description("The job ID returned by crawl_site"),
				),
				mcp.WithBoolean("only_broken",
					mcp.Description("Return only 4xx and 5xx results"),
				),
				mcp.WithNumber("max_results",
					mcp.Description(fmt.Sprintf("Maximum number of results to return (default: %d, max: %d)", defaultMaxResults, maxResultsCap)),
				),
			),
			Handler: s.handleGetCrawlResults,
		},
		{
			Tool: mcp.NewTool("cancel_job",
				mcp.WithDescription("Cancel a running crawl job. Results gathered so far are kept."),
				mcp.WithString("job_id",
					mcp.Required(),
					mcp.Description("The job ID returned by crawl_site"),
				),
			),
			Handler: s.handleCancelJob,
		},
		{
			Tool: mcp.NewTool("check_url",
				mcp.WithDescription("Fetch one URL without following redirects and report how the crawler would classify it"),
				mcp.WithString("url",
					mcp.Required(),
					mcp.Description("The URL to check"),
				),
			),
			Handler: s.handleCheckURL,
		},
	}

	s.mcpServer.AddTools(tools...)
	s.log.Infof("Registered %d MCP tools", len(tools))
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		s.sseServer = server.NewSSEServer(s.mcpServer)
		return s.sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels running jobs and stops the SSE listener if there is one
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	if s.sseServer != nil {
		return s.sseServer.Shutdown(ctx)
	}
	return nil
}
