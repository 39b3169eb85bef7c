package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sriram-PR/link-auditor/pkg/models"
)

// JobStatus represents the current state of a crawl job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job has stopped
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents a background crawl job
type Job struct {
	ID           string    `json:"id"`
	BaseURL      string    `json:"base_url"`
	DomainSuffix string    `json:"domain_suffix"`
	Status       JobStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
	Processed    int64     `json:"processed"`
	Queued       int64     `json:"queued"`
	Failures     int64     `json:"failures"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ReportFiles  []string  `json:"report_files,omitempty"`

	// Internal fields
	results      []models.CrawlResult
	resultsReady bool
	ctx          context.Context
	cancel       context.CancelFunc
}

// JobManager manages background crawl jobs
type JobManager struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	byBase map[string]string // baseURL -> jobID for active jobs
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:   make(map[string]*Job),
		byBase: make(map[string]string),
	}
}

// CreateJob creates a job for baseURL, or returns the active one for the same URL
func (m *JobManager) CreateJob(baseURL, domainSuffix string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingJobID, exists := m.byBase[baseURL]; exists {
		if existing := m.jobs[existingJobID]; existing != nil && !existing.Status.IsTerminal() {
			return snapshot(existing), nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:           uuid.New().String(),
		BaseURL:      baseURL,
		DomainSuffix: domainSuffix,
		Status:       JobStatusPending,
		StartedAt:    time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}

	m.jobs[job.ID] = job
	m.byBase[baseURL] = job.ID
	return snapshot(job), nil
}

// GetJob returns a copy of the job, or nil if unknown
func (m *JobManager) GetJob(jobID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return snapshot(job)
	}
	return nil
}

// GetJobByBaseURL returns the active job for baseURL, or nil
func (m *JobManager) GetJobByBaseURL(baseURL string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, exists := m.byBase[baseURL]; exists {
		if job := m.jobs[jobID]; job != nil {
			return snapshot(job)
		}
	}
	return nil
}

// IsRunning checks if a job is pending or running for baseURL
func (m *JobManager) IsRunning(baseURL string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, exists := m.byBase[baseURL]; exists {
		job := m.jobs[jobID]
		return job != nil && !job.Status.IsTerminal()
	}
	return false
}

// UpdateStatus moves a job to status. A cancelled job stays cancelled.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status == JobStatusCancelled {
		return
	}
	job.Status = status
	if status.IsTerminal() {
		job.CompletedAt = time.Now()
		job.cancel()
		delete(m.byBase, job.BaseURL)
	}
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
}

// UpdateProgress updates the progress counters of a job
func (m *JobManager) UpdateProgress(jobID string, processed, queued, failures int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.Processed = processed
		job.Queued = queued
		job.Failures = failures
	}
}

// SetResults stores the final (or partial) results and the report files written for them
func (m *JobManager) SetResults(jobID string, results []models.CrawlResult, reportFiles []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.results = results
		job.resultsReady = true
		job.ReportFiles = reportFiles
		job.Processed = int64(len(results))
	}
}

// Results returns the stored results. ok is false until the crawl has returned.
func (m *JobManager) Results(jobID string) (results []models.CrawlResult, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists || !job.resultsReady {
		return nil, false
	}
	return job.results, true
}

// CancelJob cancels a pending or running job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists && !job.Status.IsTerminal() {
		job.cancel()
		job.Status = JobStatusCancelled
		job.CompletedAt = time.Now()
		delete(m.byBase, job.BaseURL)
		return true
	}
	return false
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if !job.Status.IsTerminal() {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
		}
	}
	m.byBase = make(map[string]string)
}

// ListJobs returns copies of all jobs
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, snapshot(job))
	}
	return jobs
}

// GetContext returns the context a job's crawl runs under
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}

// snapshot copies a job so callers can read it without holding the lock
func snapshot(job *Job) *Job {
	cp := *job
	cp.ReportFiles = append([]string(nil), job.ReportFiles...)
	return &cp
}
