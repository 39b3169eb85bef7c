// Package watch re-runs a link audit on a fixed interval and tracks which
// links broke or were fixed between runs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/report"
)

// errNoResults marks a run that fetched nothing, usually an unreachable base URL
var errNoResults = errors.New("no results recorded, base URL unreachable")

// RunFunc performs one audit. A non-nil report is recorded even when err is set,
// unless the scheduler was stopped during the run.
type RunFunc func(ctx context.Context) (*models.CrawlReport, error)

// Scheduler re-audits one base URL whenever its interval has elapsed
type Scheduler struct {
	key          string // Base URL the state is recorded under
	interval     time.Duration
	run          RunFunc
	log          *logrus.Entry
	stateManager *StateManager

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler whose state file lives in stateDir
func NewScheduler(stateDir, key string, interval time.Duration, run RunFunc, log *logrus.Entry) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		key:          key,
		interval:     interval,
		run:          run,
		log:          log.WithField("base_url", key),
		stateManager: NewStateManager(stateDir),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run blocks, auditing whenever due, until Stop is called
func (s *Scheduler) Run() error {
	if err := s.stateManager.Load(); err != nil {
		s.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}

	s.log.Infof("Starting watch mode with interval %s", FormatInterval(s.interval))
	s.logNextRun()

	s.runIfDue()

	ticker := time.NewTicker(s.calculateTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			return nil
		case <-ticker.C:
			s.runIfDue()
		}
	}
}

// Stop cancels a running audit and makes Run return
func (s *Scheduler) Stop() {
	s.log.Info("Stopping watch scheduler...")
	s.cancel()
}

// runIfDue runs one audit inline; ticks that arrive meanwhile are dropped by the ticker
func (s *Scheduler) runIfDue() {
	if s.ctx.Err() != nil || !s.stateManager.ShouldRun(s.key, s.interval, time.Now()) {
		return
	}

	s.log.Info("Audit due, starting crawl")
	rep, err := s.run(s.ctx)

	if s.ctx.Err() != nil {
		// Interrupted; a partial crawl would report every unvisited link as fixed
		s.log.Warnf("Audit interrupted after %d results, keeping previous baseline", resultCount(rep))
		return
	}
	s.record(rep, err)

	if saveErr := s.stateManager.Save(); saveErr != nil {
		s.log.Errorf("Failed to save watch state: %v", saveErr)
	}
	s.logNextRun()
}

func resultCount(rep *models.CrawlReport) int {
	if rep == nil {
		return 0
	}
	return len(rep.Results)
}

func (s *Scheduler) record(rep *models.CrawlReport, err error) {
	previous, hadPrevious := s.stateManager.Get(s.key)

	if err == nil && resultCount(rep) == 0 {
		err = errNoResults
	}
	state := AuditState{
		LastRunTime:    time.Now(),
		LastRunSuccess: err == nil,
		Results:        resultCount(rep),
	}

	if err != nil {
		// A failed or empty run saw only part of the site; diffing it would report unseen links as fixed
		state.ErrorMessage = err.Error()
		state.BrokenURLs = previous.BrokenURLs
		s.stateManager.Record(s.key, state)
		s.log.WithFields(logrus.Fields{"results": state.Results, "error": err}).Warn("Audit failed, keeping previous broken-link baseline")
		return
	}

	for _, r := range report.Broken(rep.Results) {
		state.BrokenURLs = append(state.BrokenURLs, r.URL)
	}
	s.stateManager.Record(s.key, state)

	current, _ := s.stateManager.Get(s.key)
	fields := logrus.Fields{"results": current.Results, "broken": len(current.BrokenURLs)}
	if !hadPrevious {
		s.log.WithFields(fields).Info("First audit recorded")
		return
	}

	newlyBroken, fixed := DiffBroken(previous.BrokenURLs, current.BrokenURLs)
	fields["newly_broken"] = len(newlyBroken)
	fields["fixed"] = len(fixed)
	s.log.WithFields(fields).Info("Audit recorded")
	for _, u := range newlyBroken {
		s.log.Warnf("Newly broken: %s", u)
	}
	for _, u := range fixed {
		s.log.Infof("Fixed: %s", u)
	}
}

// calculateTickInterval returns how often to check whether an audit is due:
// a tenth of the interval, between one second and ten minutes, never longer than the interval itself
func (s *Scheduler) calculateTickInterval() time.Duration {
	checkInterval := s.interval / 10
	if checkInterval < time.Second {
		checkInterval = min(time.Second, s.interval)
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	if checkInterval <= 0 {
		checkInterval = time.Second
	}
	return checkInterval
}

func (s *Scheduler) logNextRun() {
	now := time.Now()
	next := s.stateManager.NextRunTime(s.key, s.interval, now)
	until := max(next.Sub(now), 0)
	s.log.Infof("Next audit in %v (at %s)", until.Round(time.Second), next.Format("15:04:05"))
}

// Status describes the watched base URL
type Status struct {
	BaseURL     string
	LastRun     AuditState
	NeverRun    bool
	NextRunTime time.Time
}

// Status returns the last recorded run and the next due time
func (s *Scheduler) Status() Status {
	state, ok := s.stateManager.Get(s.key)
	return Status{
		BaseURL:     s.key,
		LastRun:     state,
		NeverRun:    !ok,
		NextRunTime: s.stateManager.NextRunTime(s.key, s.interval, time.Now()),
	}
}

// FormatInterval renders d compactly, e.g. 45s, 30m, 1h30m, 7d, 2d6h
func FormatInterval(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		hours, mins := int(d.Hours()), int(d.Minutes())%60
		if mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days, hours := int(d.Hours())/24, int(d.Hours())%24
	if hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a Go duration with an optional leading day count, e.g. 7d or 1d12h.
// The interval must be positive.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	var d time.Duration
	if daysStr, rest, ok := strings.Cut(s, "d"); ok {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 0 {
			return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 1h, 24h, 7d)", s)
		}
		d = time.Duration(days) * 24 * time.Hour
		s = rest
	}
	if s != "" {
		extra, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 1h, 24h, 7d)", s)
		}
		d += extra
	}

	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %v", d)
	}
	return d, nil
}
