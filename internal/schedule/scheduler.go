package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/joescharf/nightfix/internal/output"
)

// Job is a named function run once a day at a fixed wall-clock time.
type Job struct {
	Name string
	At   string // HH:MM
	Run  func(ctx context.Context)

	hour, minute int
}

// Scheduler fires registered jobs at their daily times until stopped.
type Scheduler struct {
	jobs []Job
	loc  *time.Location
	ui   *output.UI

	now func() time.Time
}

// NewScheduler creates a Scheduler for the given location. ui may be nil.
func NewScheduler(loc *time.Location, ui *output.UI) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if ui == nil {
		ui = output.New()
	}
	return &Scheduler{loc: loc, ui: ui, now: time.Now}
}

// Add registers a daily job. Returns an error for a malformed time.
func (s *Scheduler) Add(job Job) error {
	hour, minute, err := parseClock(job.At)
	if err != nil {
		return err
	}
	job.hour, job.minute = hour, minute
	s.jobs = append(s.jobs, job)
	return nil
}

// Start blocks, firing each job at its next occurrence, until the context is
// cancelled. Jobs run sequentially on the scheduler goroutine; a long run
// delays but never skips the next job, because occurrences are recomputed
// from the clock after each run.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		job, at, ok := s.next()
		if !ok {
			<-ctx.Done()
			return
		}
		s.ui.VerboseLog("next job %q at %s", job.Name, at.Format("2006-01-02 15:04 MST"))

		timer := time.NewTimer(at.Sub(s.now()))
		select {
		case <-timer.C:
			s.ui.Info("running scheduled job %q", job.Name)
			job.Run(ctx)
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// next returns the job with the soonest upcoming occurrence.
func (s *Scheduler) next() (Job, time.Time, bool) {
	if len(s.jobs) == 0 {
		return Job{}, time.Time{}, false
	}
	type upcoming struct {
		job Job
		at  time.Time
	}
	now := s.now().In(s.loc)
	all := make([]upcoming, 0, len(s.jobs))
	for _, j := range s.jobs {
		all = append(all, upcoming{job: j, at: nextOccurrence(now, j.hour, j.minute)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	return all[0].job, all[0].at, true
}

// nextOccurrence returns the next instant at hour:minute strictly after now.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}
