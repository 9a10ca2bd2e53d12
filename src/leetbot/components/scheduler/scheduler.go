// Package scheduler keeps a durable registry of timed jobs on top of
// robfig/cron. Jobs survive restarts through the scheduled_jobs table and
// firings missed while the process was down are coalesced into at most one
// catch-up run inside a bounded grace window.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/codetrack/leetcode-bot/src/shared/leet"
)

// Job ids and handler kinds.
const (
	JobDailyStart = "daily-start"
	JobDailyEnd   = "daily-end"

	remindPrefix = "remind-"

	KindDailyStart = "daily-start"
	KindDailyEnd   = "daily-end"
	KindRemind     = "remind"
)

const (
	dailyStartSpec = "0 0 0 * * *"
	dailyEndSpec   = "59 59 23 * * *"

	// Firings missed by more than this while the process was down are
	// dropped instead of fired late.
	missedGrace = time.Hour

	handlerTimeout = 5 * time.Minute
)

// HandlerFunc runs one firing of a job. arg is the guild id for reminder
// jobs, empty for the globals.
type HandlerFunc func(ctx context.Context, arg string) error

// ReminderID builds the job id for a guild's reminder job.
func ReminderID(guildID string) string {
	return remindPrefix + guildID
}

type jobEntry struct {
	entryID  cron.EntryID
	schedule cron.Schedule
	arg      string
	kind     string
	inFlight sync.Mutex
}

// Scheduler owns the cron instance and the durable job table.
type Scheduler struct {
	db     *gorm.DB
	cron   *cron.Cron
	parser cron.Parser
	now    func() time.Time

	mu       sync.Mutex
	jobs     map[string]*jobEntry
	handlers map[string]HandlerFunc

	started bool
}

func New(db *gorm.DB) *Scheduler {
	return &Scheduler{
		db:       db,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		parser:   cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		now:      func() time.Time { return time.Now().UTC() },
		jobs:     make(map[string]*jobEntry),
		handlers: make(map[string]HandlerFunc),
	}
}

// RegisterHandler binds a handler to a job kind. Handlers must be registered
// before Start.
func (s *Scheduler) RegisterHandler(kind string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = fn
}

func jobKind(jobID string) string {
	if strings.HasPrefix(jobID, remindPrefix) {
		return KindRemind
	}
	return jobID
}

// Start loads persisted jobs, fires coalesced catch-ups for firings missed
// within the grace window, and starts the cron loop.
func (s *Scheduler) Start() error {
	var rows []leet.ScheduledJob
	if err := s.db.Find(&rows).Error; err != nil {
		return fmt.Errorf("scheduler: load jobs: %w", err)
	}

	now := s.now()
	for i := range rows {
		row := rows[i]
		if err := s.add(row.ID, row.Spec, row.Arg); err != nil {
			log.Printf("scheduler: drop unparseable job %s: %v", row.ID, err)
			s.db.Delete(&leet.ScheduledJob{}, "id = ?", row.ID)
			continue
		}
		if !row.NextFire.IsZero() && row.NextFire.Before(now) {
			missed := now.Sub(row.NextFire)
			if missed <= missedGrace {
				log.Printf("scheduler: firing %s once for missed run (%s late)", row.ID, missed.Round(time.Second))
				go s.runJob(row.ID)
			} else {
				log.Printf("scheduler: skipping %s run missed by %s (outside grace window)", row.ID, missed.Round(time.Second))
				s.persistNextFire(row.ID)
			}
		}
	}

	s.cron.Start()
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

// Stop halts the cron loop; running jobs finish on their own goroutines.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// EnsureGlobalJobs registers the two day-boundary jobs. Idempotent:
// registering an id that already exists is a no-op.
func (s *Scheduler) EnsureGlobalJobs() error {
	if err := s.ensure(JobDailyStart, dailyStartSpec, ""); err != nil {
		return err
	}
	return s.ensure(JobDailyEnd, dailyEndSpec, "")
}

func (s *Scheduler) ensure(jobID, spec, arg string) error {
	s.mu.Lock()
	_, exists := s.jobs[jobID]
	s.mu.Unlock()
	if exists {
		return nil
	}
	if err := s.add(jobID, spec, arg); err != nil {
		return err
	}
	return s.persistRow(jobID, spec, arg)
}

// UpsertReminder registers (or replaces) a guild's daily reminder job at the
// given UTC time of day.
func (s *Scheduler) UpsertReminder(guildID string, hour, minute, second int) error {
	if err := s.RemoveReminder(guildID); err != nil {
		return err
	}
	jobID := ReminderID(guildID)
	spec := fmt.Sprintf("%d %d %d * * *", second, minute, hour)
	if err := s.add(jobID, spec, guildID); err != nil {
		return err
	}
	return s.persistRow(jobID, spec, guildID)
}

// RemoveReminder deregisters a guild's reminder job. Safe to call when no
// such job exists, including from inside the job's own handler.
func (s *Scheduler) RemoveReminder(guildID string) error {
	jobID := ReminderID(guildID)

	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	if ok {
		delete(s.jobs, jobID)
	}
	s.mu.Unlock()

	if ok {
		s.cron.Remove(entry.entryID)
	}
	return s.db.Delete(&leet.ScheduledJob{}, "id = ?", jobID).Error
}

// HasJob reports whether a job id is currently registered.
func (s *Scheduler) HasJob(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobID]
	return ok
}

func (s *Scheduler) add(jobID, spec, arg string) error {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("scheduler: parse spec %q: %w", spec, err)
	}

	entry := &jobEntry{schedule: schedule, arg: arg, kind: jobKind(jobID)}
	entry.entryID = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.runJob(jobID)
	}))

	s.mu.Lock()
	s.jobs[jobID] = entry
	s.mu.Unlock()
	return nil
}

// runJob executes one firing with single-flight protection per job id. A
// firing that overlaps a still-running previous firing of the same id is
// dropped.
func (s *Scheduler) runJob(jobID string) {
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	handler := s.handlers[jobKind(jobID)]
	s.mu.Unlock()

	if !ok {
		return
	}
	if handler == nil {
		log.Printf("scheduler: no handler registered for %s", jobID)
		return
	}
	if !entry.inFlight.TryLock() {
		log.Printf("scheduler: %s still running, dropping overlapping firing", jobID)
		return
	}
	defer entry.inFlight.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: %s panicked: %v", jobID, r)
		}
		s.persistNextFire(jobID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := handler(ctx, entry.arg); err != nil {
		log.Printf("scheduler: %s failed: %v", jobID, err)
	}
}

func (s *Scheduler) persistRow(jobID, spec, arg string) error {
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	row := leet.ScheduledJob{
		ID:       jobID,
		Spec:     spec,
		Arg:      arg,
		NextFire: entry.schedule.Next(s.now()),
	}
	return s.db.Save(&row).Error
}

func (s *Scheduler) persistNextFire(jobID string) {
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return
	}
	next := entry.schedule.Next(s.now())
	if err := s.db.Model(&leet.ScheduledJob{}).
		Where("id = ?", jobID).
		Update("next_fire", next).Error; err != nil {
		log.Printf("scheduler: persist next fire for %s: %v", jobID, err)
	}
}
