package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/notification"
	"github.com/frahmantamala/gatepass/internal/user"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "0 8 * * *"

type PendingCounter interface {
	PendingSummary(ctx context.Context) ([]gatepass.PendingCount, error)
}

type ContactDirectory interface {
	GetContact(ctx context.Context, id int64) (*user.Contact, error)
}

type Enqueuer interface {
	Enqueue(msg notification.Message) error
}

// Job sends every approver with waiting requests one digest message.
type Job struct {
	counter  PendingCounter
	contacts ContactDirectory
	queue    Enqueuer
	logger   *slog.Logger
	timeout  time.Duration
}

func NewJob(counter PendingCounter, contacts ContactDirectory, queue Enqueuer, logger *slog.Logger) *Job {
	return &Job{
		counter:  counter,
		contacts: contacts,
		queue:    queue,
		logger:   logger,
		timeout:  time.Minute,
	}
}

// Run returns how many reminders were queued.
func (j *Job) Run(ctx context.Context) (int, error) {
	counts, err := j.counter.PendingSummary(ctx)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, c := range counts {
		if c.Count == 0 {
			continue
		}
		contact, err := j.contacts.GetContact(ctx, c.ApproverID)
		if err != nil {
			j.logger.Warn("reminder: approver lookup failed", "error", err, "approver_id", c.ApproverID)
			continue
		}
		if contact.Email == "" {
			continue
		}
		if err := j.queue.Enqueue(digest(contact, c)); err != nil {
			j.logger.Warn("reminder: enqueue failed", "error", err, "approver_id", c.ApproverID)
			continue
		}
		queued++
	}
	return queued, nil
}

// Execute is the cron entry point.
func (j *Job) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.Run(ctx)
	if err != nil {
		j.logger.Error("pending reminder job failed", "error", err)
		return
	}
	j.logger.Info("pending reminder job finished", "queued", n, "duration", time.Since(start))
}

func digest(contact *user.Contact, c gatepass.PendingCount) notification.Message {
	noun := "requests"
	if c.Count == 1 {
		noun = "request"
	}
	text := fmt.Sprintf("You have %d gate pass %s waiting for your approval as %s.", c.Count, noun, c.Role)
	return notification.Message{
		Kind:      notification.KindReminder,
		To:        contact.Email,
		ToName:    contact.Name,
		Subject:   fmt.Sprintf("%d gate pass %s awaiting approval", c.Count, noun),
		PlainText: fmt.Sprintf("Hello %s,\n\n%s", contact.Name, text),
		HTML:      fmt.Sprintf("<p>%s</p>", text),
	}
}

// Scheduler runs the reminder job on a cron schedule. The seconds field is optional.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(schedule string, job *Job, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(cron.NewParser(
			cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
		)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(schedule, job.Execute); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("starting reminder scheduler")
	s.cron.Start()
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping reminder scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
