package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/crawler"
	"github.com/Sriram-PR/link-auditor/pkg/fetch"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/parse"
	"github.com/Sriram-PR/link-auditor/pkg/report"
	"github.com/Sriram-PR/link-auditor/pkg/storage"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

const (
	defaultMaxResults = 100
	maxResultsCap     = 1000
	progressPoll      = time.Second
)

// handleCrawlSite handles the crawl_site tool
func (s *Server) handleCrawlSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobCfg := *s.cfg.AppConfig
	if baseURL := request.GetString("base_url", ""); baseURL != "" {
		jobCfg.BaseURL = baseURL
		jobCfg.DomainSuffix = ""
	}
	if suffix := request.GetString("domain_suffix", ""); suffix != "" {
		jobCfg.DomainSuffix = suffix
	}
	if workers := request.GetInt("workers", 0); workers > 0 {
		jobCfg.NumWorkers = workers
	}

	if _, err := jobCfg.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid crawl settings: %v", err)), nil
	}

	baseURL, err := parse.Normalize(jobCfg.BaseURL, jobCfg.BaseURL, jobCfg.PaginationMode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid base_url: %v", err)), nil
	}

	if s.jobManager.IsRunning(baseURL) {
		existingJob := s.jobManager.GetJobByBaseURL(baseURL)
		result := map[string]interface{}{
			"status":   "already_running",
			"message":  "A crawl is already in progress for this base URL",
			"job_id":   existingJob.ID,
			"base_url": baseURL,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	job, err := s.jobManager.CreateJob(baseURL, jobCfg.DomainSuffix)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create job: %v", err)), nil
	}

	go s.runCrawlJob(job, &jobCfg)

	result := map[string]interface{}{
		"status":        "started",
		"message":       "Crawl started successfully",
		"job_id":        job.ID,
		"base_url":      baseURL,
		"domain_suffix": jobCfg.DomainSuffix,
		"workers":       jobCfg.NumWorkers,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job, errResult := s.requireJob(request)
	if errResult != nil {
		return errResult, nil
	}

	result := map[string]interface{}{
		"job_id":        job.ID,
		"base_url":      job.BaseURL,
		"domain_suffix": job.DomainSuffix,
		"status":        job.Status,
		"started_at":    job.StartedAt.Format(time.RFC3339),
		"processed":     job.Processed,
		"queued":        job.Queued,
		"failures":      job.Failures,
	}

	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}
	if len(job.ReportFiles) > 0 {
		result["report_files"] = job.ReportFiles
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetCrawlResults handles the get_crawl_results tool
func (s *Server) handleGetCrawlResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job, errResult := s.requireJob(request)
	if errResult != nil {
		return errResult, nil
	}

	results, ready := s.jobManager.Results(job.ID)
	if !ready {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' is %s; results are available once it stops", job.ID, job.Status)), nil
	}

	maxResults := request.GetInt("max_results", defaultMaxResults)
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}

	summary := report.Summarize(results, job.DomainSuffix)
	selected := results
	if request.GetBool("only_broken", false) {
		selected = report.Broken(results)
	}
	total := len(selected)
	if total > maxResults {
		selected = selected[:maxResults]
	}

	response := map[string]interface{}{
		"job_id":        job.ID,
		"status":        job.Status,
		"summary":       summary,
		"results":       selected,
		"total_matches": total,
		"truncated":     total > len(selected),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCancelJob handles the cancel_job tool
func (s *Server) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job, errResult := s.requireJob(request)
	if errResult != nil {
		return errResult, nil
	}

	cancelled := s.jobManager.CancelJob(job.ID)
	result := map[string]interface{}{
		"job_id":    job.ID,
		"cancelled": cancelled,
	}
	if !cancelled {
		result["message"] = fmt.Sprintf("job is already %s", job.Status)
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCheckURL handles the check_url tool
func (s *Server) handleCheckURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := request.GetString("url", "")
	if rawURL == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	appCfg := s.cfg.AppConfig
	target, err := parse.Normalize(rawURL, rawURL, appCfg.PaginationMode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid URL: %v", err)), nil
	}
	baseURL, err := parse.Normalize(appCfg.BaseURL, appCfg.BaseURL, appCfg.PaginationMode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid configured base_url: %v", err)), nil
	}

	startTime := time.Now()
	fetcher := fetch.NewFetcher(fetch.NewClient(appCfg.HTTPClientSettings, s.log), appCfg, s.log)
	resp, err := fetcher.Fetch(ctx, target)
	if err != nil {
		result := map[string]interface{}{
			"url":        target,
			"error":      err.Error(),
			"error_type": utils.CategorizeError(err),
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	kind := crawler.Classify(resp, target, baseURL)
	result := map[string]interface{}{
		"url":           target,
		"http_code":     resp.StatusCode,
		"kind":          kind.String(),
		"content_types": resp.ContentTypes(),
		"internal":      parse.NewScopeFilter(appCfg.DomainSuffix).IsInternal(target),
		"fetch_time_ms": time.Since(startTime).Milliseconds(),
	}
	if loc := resp.Location(); loc != "" {
		if resolved, err := parse.Resolve(loc, target); err == nil {
			result["redirects_to"] = resolved
		} else {
			result["location"] = loc
		}
	}
	if kind == models.ResponseKindHTML {
		links := 0
		for range parse.ExtractLinks(string(resp.Body)) {
			links++
		}
		result["links"] = links
	}
	if resp.Truncated {
		result["truncated"] = true
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runCrawlJob runs a crawl job in the background
func (s *Server) runCrawlJob(job *Job, jobCfg *config.AppConfig) {
	s.jobManager.UpdateStatus(job.ID, JobStatusRunning, "")
	jobCtx := s.jobManager.GetContext(job.ID)
	jobLog := s.log.WithField("job_id", job.ID)

	httpClient := fetch.NewClient(jobCfg.HTTPClientSettings, jobLog)
	fetcher := fetch.NewFetcher(httpClient, jobCfg, jobLog)

	// Jobs never resume: every crawl_site starts from the base URL
	var store storage.CrawlStore = storage.NewMemoryStore()
	if jobCfg.PersistState {
		badgerStore, err := storage.NewBadgerStore(jobCtx, jobCfg.StateDir, utils.HostSlug(jobCfg.BaseURL), false, jobLog)
		if err != nil {
			s.jobManager.UpdateStatus(job.ID, JobStatusFailed, fmt.Sprintf("failed to open store: %v", err))
			return
		}
		go badgerStore.RunGC(jobCtx, jobCfg.DBGCInterval)
		store = badgerStore
	}
	defer store.Close()

	crawlerInstance, err := crawler.NewCrawler(jobCfg, fetcher, store, s.cfg.Recorder, jobLog)
	if err != nil {
		s.jobManager.UpdateStatus(job.ID, JobStatusFailed, fmt.Sprintf("failed to create crawler: %v", err))
		return
	}

	stopProgress := s.trackProgress(job.ID, crawlerInstance)
	startedAt := time.Now()
	results, runErr := crawlerInstance.Run(jobCtx, false)
	stopProgress()

	if runErr != nil && results == nil {
		s.jobManager.UpdateStatus(job.ID, JobStatusFailed, fmt.Sprintf("crawl could not start: %v", runErr))
		return
	}

	files := s.writeJobReports(job.ID, jobCfg, crawlerInstance, startedAt, results, jobLog)
	s.jobManager.SetResults(job.ID, results, files)

	switch {
	case runErr == nil:
		s.jobManager.UpdateStatus(job.ID, JobStatusCompleted, "")
	case errors.Is(runErr, context.Canceled):
		s.jobManager.UpdateStatus(job.ID, JobStatusCancelled, "")
	default:
		s.jobManager.UpdateStatus(job.ID, JobStatusFailed, runErr.Error())
	}
}

// trackProgress copies crawler counters into the job until stopped
func (s *Server) trackProgress(jobID string, c *crawler.Crawler) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressPoll)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := c.Progress()
				s.jobManager.UpdateProgress(jobID, p.Processed, p.Queued, p.Failures)
			}
		}
	}()
	return func() { close(done) }
}

// writeJobReports writes the configured report formats, suffixed with the job ID
func (s *Server) writeJobReports(jobID string, jobCfg *config.AppConfig, c *crawler.Crawler, startedAt time.Time, results []models.CrawlResult, jobLog *logrus.Entry) []string {
	rep := report.NewReport(report.Meta{
		RunID:        c.RunID(),
		BaseURL:      c.BaseURL(),
		DomainSuffix: jobCfg.DomainSuffix,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}, results)

	basename := fmt.Sprintf("%s-%s", jobCfg.ReportBaseName, jobID[:8])
	files, err := report.WriteAll(jobCfg.OutputDir, basename, jobCfg.ReportFormats, rep)
	if err != nil {
		jobLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Failed to write reports: %v", err)
	}
	return files
}

func (s *Server) requireJob(request mcp.CallToolRequest) (*Job, *mcp.CallToolResult) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return nil, mcp.NewToolResultError("job_id parameter is required")
	}
	job := s.jobManager.GetJob(jobID)
	if job == nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("%v: '%s'", utils.ErrJobNotFound, jobID))
	}
	return job, nil
}

// formatJSON formats data as an indented JSON string
func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
