/*
scheduler.go - Automated reminder planning

PURPOSE:
  Periodically loads the open obligations, asks the engine which reminders
  are due (debts.PlanReminders) and stores the new ones. Delivery is left
  to whatever reads /api/reminders.

DESIGN:
  - Runs on a cron schedule (robfig/cron, default "@hourly")
  - Runs once immediately on start so a fresh server has reminders
  - Reminder IDs are deterministic, so overlapping runs store nothing twice
  - A run that fails is logged and retried on the next tick

CONFIGURATION:
  - Schedule: cron expression or descriptor (REMINDER_SCHEDULE)
  - Horizon:  how far ahead upcoming reminders are planned
  - Enabled:  whether the scheduler is active (default: true)

USAGE:
  scheduler, err := NewReminderScheduler(store, log, "@hourly", 7*24*time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: PlanReminders endpoint (manual run)
  - debts/alerts.go: PlanReminders
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/store"
)

// DefaultReminderSchedule runs the planner at the top of every hour.
const DefaultReminderSchedule = "@hourly"

// openStatuses are the statuses the planner needs to see.
var openStatuses = []debts.Status{debts.StatusPending, debts.StatusOverdue, debts.StatusPostponed}

// ReminderScheduler plans reminders on a cron schedule.
type ReminderScheduler struct {
	Store   store.Store
	Horizon time.Duration
	Enabled bool

	// Clock is the reference instant of each run.
	Clock func() time.Time

	log      logrus.FieldLogger
	schedule cron.Schedule
	spec     string
	cron     *cron.Cron
	mu       sync.Mutex
	running  sync.WaitGroup // the startup run
}

// NewReminderScheduler creates a scheduler. An empty spec uses
// DefaultReminderSchedule.
func NewReminderScheduler(st store.Store, log logrus.FieldLogger, spec string, horizon time.Duration) (*ReminderScheduler, error) {
	if spec == "" {
		spec = DefaultReminderSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if horizon <= 0 {
		horizon = debts.DefaultReminderHorizon
	}
	return &ReminderScheduler{
		Store:    st,
		Horizon:  horizon,
		Enabled:  true,
		Clock:    utcNow,
		log:      log.WithField("component", "scheduler"),
		schedule: schedule,
		spec:     spec,
	}, nil
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.log.Info("disabled, not starting")
		return
	}
	if rs.cron != nil {
		return
	}

	rs.cron = cron.New()
	rs.cron.Schedule(rs.schedule, cron.FuncJob(rs.tick))
	rs.cron.Start()

	// Run immediately on start
	rs.running.Add(1)
	go func() {
		defer rs.running.Done()
		rs.tick()
	}()

	rs.log.WithField("schedule", rs.spec).Info("started")
}

// Stop stops the scheduler and waits for running jobs to finish, the
// startup run included.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.cron == nil {
		return
	}
	<-rs.cron.Stop().Done()
	rs.running.Wait()
	rs.cron = nil
	rs.log.Info("stopped")
}

func (rs *ReminderScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, _, err := rs.RunOnce(ctx); err != nil {
		rs.log.WithError(err).Error("reminder planning failed")
	}
}

// RunOnce plans and stores reminders for the current instant. It returns
// how many reminders were planned and how many of them were new.
func (rs *ReminderScheduler) RunOnce(ctx context.Context) (planned, added int, err error) {
	now := rs.Clock()
	planned, added, err = planAndStore(ctx, rs.Store, now, rs.Horizon)
	if err != nil {
		return 0, 0, err
	}
	rs.log.WithFields(logrus.Fields{
		"at":      now.Format(time.RFC3339),
		"planned": planned,
		"added":   added,
	}).Info("reminders planned")
	return planned, added, nil
}

func planAndStore(ctx context.Context, st store.Store, now time.Time, horizon time.Duration) (planned, added int, err error) {
	obligations, err := st.ListObligations(ctx, store.ObligationFilter{Statuses: openStatuses})
	if err != nil {
		return 0, 0, fmt.Errorf("loading obligations: %w", err)
	}

	reminders := debts.PlanReminders(obligations, now, horizon)
	if len(reminders) == 0 {
		return 0, 0, nil
	}

	added, err = st.SaveReminders(ctx, reminders)
	if err != nil {
		return 0, 0, fmt.Errorf("saving reminders: %w", err)
	}
	return len(reminders), added, nil
}
