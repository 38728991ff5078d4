package tasks

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	SpecScrapeAll   = "0 2 * * *"
	SpecDailyReport = "0 8 * * *"
	SpecCleanup     = "0 1 * * 1"
)

// Job is a named recurring trigger.
type Job struct {
	Name string
	Spec string
	Work Work
}

// Scheduler fires jobs in UTC by submitting them to the same Runner that
// manual triggers use, so a tick that overlaps a running task just queues
// another one.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	ids    map[string]cron.EntryID
}

func NewScheduler(runner Runner) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cron.DefaultLogger)),
		runner: runner,
		ids:    make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Add(j Job) error {
	if _, dup := s.ids[j.Name]; dup {
		return fmt.Errorf("job %q already scheduled", j.Name)
	}
	id, err := s.cron.AddFunc(j.Spec, func() {
		info, err := s.runner.Submit(j.Name, j.Work)
		if err != nil {
			log.Printf("[scheduler] job=%q submit err=%v", j.Name, err)
			return
		}
		log.Printf("[scheduler] job=%q task=%s submitted", j.Name, info.ID)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc %q (%s): %w", j.Name, j.Spec, err)
	}
	s.ids[j.Name] = id
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[scheduler] cron started jobs=%d", len(s.ids))
}

// Stop halts the clock and waits for in-flight submissions, not for tasks.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] cron stopped")
}

// Next reports when the named job fires next (UTC); zero if unknown.
func (s *Scheduler) Next(name string) time.Time {
	id, ok := s.ids[name]
	if !ok {
		return time.Time{}
	}
	e := s.cron.Entry(id)
	if e.Next.IsZero() && e.Schedule != nil {
		return e.Schedule.Next(time.Now().UTC())
	}
	return e.Next
}
