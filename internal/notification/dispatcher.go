package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrStopped   = errors.New("notification dispatcher stopped")
)

type Job struct {
	Message Message
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("notification worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "kind", job.Message.Kind)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("notification worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// DeliveryRecorder counts delivery outcomes.
type DeliveryRecorder interface {
	IncNotification(kind string, ok bool)
}

type Config struct {
	MaxWorkers   int
	JobQueueSize int
	SendTimeout  time.Duration
}

// Dispatcher queues messages and hands them to a fixed pool of workers.
type Dispatcher struct {
	sender   Sender
	recorder DeliveryRecorder
	logger   *slog.Logger
	timeout  time.Duration

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewDispatcher(cfg Config, sender Sender, recorder DeliveryRecorder, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	jobQueueSize := cfg.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d := &Dispatcher{
		sender:     sender,
		recorder:   recorder,
		logger:     logger,
		timeout:    timeout,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.pending.Done()
					return
				}
			case <-d.ctx.Done():
				d.pending.Done()
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

// Enqueue never blocks; a full queue drops the message with ErrQueueFull.
func (d *Dispatcher) Enqueue(msg Message) error {
	if d.ctx.Err() != nil {
		return ErrStopped
	}
	d.pending.Add(1)
	select {
	case d.jobQueue <- Job{Message: msg}:
		return nil
	default:
		d.pending.Done()
		d.logger.Warn("notification queue full, dropping message",
			"kind", msg.Kind,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) process(job Job) {
	defer d.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, job.Message)
	if d.recorder != nil {
		d.recorder.IncNotification(job.Message.Kind, err == nil)
	}
	if err != nil {
		d.logger.Error("failed to deliver notification", "error", err, "kind", job.Message.Kind, "to", job.Message.To)
		return
	}
	d.logger.Debug("notification delivered", "kind", job.Message.Kind, "to", job.Message.To)
}

// Drain waits until every queued message has been processed or ctx ends.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Producer is anything that may still call Enqueue, such as the event bus.
type Producer interface {
	Wait()
}

// Stop waits for the producers to finish, delivers what they queued within ctx,
// then stops the workers.
func (d *Dispatcher) Stop(ctx context.Context, producers ...Producer) error {
	for _, p := range producers {
		p.Wait()
	}
	err := d.Drain(ctx)
	d.Shutdown()
	return err
}

func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down notification dispatcher")
		d.cancel()
		d.wg.Wait()
		d.logger.Info("notification dispatcher shutdown complete")
	})
}
