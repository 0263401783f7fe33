// Package scheduler runs named jobs on fixed intervals or cron expressions
// from a single polling loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/metrics"
)

// DefaultPollInterval is how often due jobs are checked.
const DefaultPollInterval = 60 * time.Second

// Job is a unit of scheduled work. Cron, when set, takes precedence over
// Every.
type Job struct {
	Name       string
	Every      time.Duration
	Cron       string
	RunOnStart bool
	Fn         func(ctx context.Context) error
}

type entry struct {
	job  Job
	expr *cronexpr.Expression
	next time.Time
}

func (e *entry) schedule(from time.Time) {
	if e.expr != nil {
		e.next = e.expr.Next(from)
		return
	}
	e.next = from.Add(e.job.Every)
}

// Scheduler checks its jobs every poll interval and runs the due ones in
// order, one at a time. Job errors are logged and counted, never returned.
type Scheduler struct {
	poll    time.Duration
	entries []*entry
	now     func() time.Time

	mu      sync.Mutex
	running bool
}

// New validates jobs and returns a scheduler. A non-positive poll uses
// DefaultPollInterval.
func New(poll time.Duration, jobs ...Job) (*Scheduler, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	s := &Scheduler{poll: poll, now: time.Now}
	seen := make(map[string]bool)
	for _, j := range jobs {
		if j.Name == "" {
			return nil, eris.New("scheduler: job name is required")
		}
		if seen[j.Name] {
			return nil, eris.Errorf("scheduler: duplicate job %q", j.Name)
		}
		seen[j.Name] = true
		if j.Fn == nil {
			return nil, eris.Errorf("scheduler: job %q has no function", j.Name)
		}
		e := &entry{job: j}
		if j.Cron != "" {
			expr, err := cronexpr.Parse(j.Cron)
			if err != nil {
				return nil, eris.Wrapf(err, "scheduler: job %q cron %q", j.Name, j.Cron)
			}
			if expr.Next(s.now()).IsZero() {
				return nil, eris.Errorf("scheduler: job %q cron %q never fires", j.Name, j.Cron)
			}
			e.expr = expr
		} else if j.Every <= 0 {
			return nil, eris.Errorf("scheduler: job %q needs an interval or cron expression", j.Name)
		}
		s.entries = append(s.entries, e)
	}
	return s, nil
}

// Jobs returns the job names in registration order.
func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.job.Name
	}
	return names
}

// NextRun returns when the named job is next due. It is zero before Run
// has scheduled the job and after a cron expression stops matching.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.job.Name == name {
			return e.next
		}
	}
	return time.Time{}
}

// Run blocks, polling for due jobs, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return eris.New("scheduler: already running")
	}
	s.running = true
	start := s.now()
	for _, e := range s.entries {
		if e.job.RunOnStart {
			e.next = start
		} else {
			e.schedule(start)
		}
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	zap.L().Info("scheduler started",
		zap.Duration("poll_interval", s.poll),
		zap.Strings("jobs", s.Jobs()),
	)

	s.runPending(ctx)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.runPending(ctx)
		}
	}
}

// Start runs the scheduler in a goroutine. The returned stop function
// cancels it and waits for the current job to finish.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil {
			zap.L().Error("scheduler exited", zap.Error(err))
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (s *Scheduler) runPending(ctx context.Context) {
	for _, e := range s.due() {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, e)
	}
}

func (s *Scheduler) due() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []*entry
	for _, e := range s.entries {
		// A zero next time means the cron expression has no further match.
		if !e.next.IsZero() && !e.next.After(now) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Scheduler) runJob(ctx context.Context, e *entry) {
	log := zap.L().With(zap.String("job", e.job.Name))
	start := s.now()
	metrics.ScheduledJobRuns.WithLabelValues(e.job.Name).Inc()

	err := safeRun(ctx, e.job.Fn)

	s.mu.Lock()
	e.schedule(s.now())
	next := e.next
	s.mu.Unlock()

	if err != nil {
		metrics.ScheduledJobFailures.WithLabelValues(e.job.Name).Inc()
		log.Warn("scheduled job failed", zap.Error(err), zap.Time("next_run", next))
		return
	}
	log.Info("scheduled job complete",
		zap.Duration("elapsed", s.now().Sub(start)),
		zap.Time("next_run", next),
	)
}

func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("scheduler: job panicked: %v", r)
		}
	}()
	return fn(ctx)
}
