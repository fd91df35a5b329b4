package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/gatepass/internal/core/events"
	coreuser "github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	fail bool
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

type countingRecorder struct {
	mu       sync.Mutex
	ok, fail int
}

func (c *countingRecorder) IncNotification(_ string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.ok++
	} else {
		c.fail++
	}
}

type blockingSender struct {
	release chan struct{}
}

func (s *blockingSender) Send(ctx context.Context, _ Message) error {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil
}

var _ = Describe("Dispatcher", func() {
	It("should deliver every queued message", func() {
		sender := &recordingSender{}
		recorder := &countingRecorder{}
		d := NewDispatcher(Config{MaxWorkers: 3, JobQueueSize: 20}, sender, recorder, quietLogger())
		defer d.Shutdown()

		for i := 0; i < 10; i++ {
			Expect(d.Enqueue(Message{Kind: KindStatusChange, To: "s@campus.edu"})).To(Succeed())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(d.Drain(ctx)).To(Succeed())
		Expect(sender.Sent()).To(HaveLen(10))
		Expect(recorder.ok).To(Equal(10))
	})

	It("should count failed deliveries", func() {
		recorder := &countingRecorder{}
		d := NewDispatcher(Config{MaxWorkers: 1}, &recordingSender{fail: true}, recorder, quietLogger())
		defer d.Shutdown()

		Expect(d.Enqueue(Message{Kind: KindReminder})).To(Succeed())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(d.Drain(ctx)).To(Succeed())
		Expect(recorder.fail).To(Equal(1))
	})

	It("should reject messages when the queue is full", func() {
		sender := &blockingSender{release: make(chan struct{})}
		d := NewDispatcher(Config{MaxWorkers: 1, JobQueueSize: 1}, sender, nil, quietLogger())

		// one message held by the worker, one by the dispatcher, one in the queue
		var err error
		for i := 0; i < 10 && err == nil; i++ {
			err = d.Enqueue(Message{})
		}
		Expect(err).To(MatchError(ErrQueueFull))

		close(sender.release)
		d.Shutdown()
		Expect(d.Enqueue(Message{})).To(MatchError(ErrStopped))
	})

	It("should deliver messages queued by event handlers still running at stop", func() {
		sender := &recordingSender{}
		d := NewDispatcher(Config{MaxWorkers: 2, JobQueueSize: 10}, sender, nil, quietLogger())

		bus := events.NewEventBus(quietLogger())
		bus.Subscribe(events.EventTypeGatePassApproved, func(_ context.Context, _ events.Event) error {
			time.Sleep(50 * time.Millisecond)
			return d.Enqueue(Message{Kind: KindStatusChange, To: "s@campus.edu"})
		})
		event := events.NewGatePassEvent(events.EventTypeGatePassApproved, events.GatePassEventInput{RequestID: 1})
		Expect(bus.Publish(context.Background(), event)).To(Succeed())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(d.Stop(ctx, bus)).To(Succeed())
		Expect(sender.Sent()).To(HaveLen(1))
		Expect(d.Enqueue(Message{})).To(MatchError(ErrStopped))
	})
})

type fakeContacts map[int64]*user.Contact

func (f fakeContacts) GetContact(_ context.Context, id int64) (*user.Contact, error) {
	c, ok := f[id]
	if !ok {
		return nil, coreuser.ErrNotFound
	}
	return c, nil
}

type queueRecorder struct {
	msgs []Message
}

func (q *queueRecorder) Enqueue(msg Message) error {
	q.msgs = append(q.msgs, msg)
	return nil
}

var _ = Describe("EventHandler", func() {
	var (
		queue   *queueRecorder
		handler *EventHandler
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		queue = &queueRecorder{}
		contacts := fakeContacts{
			1: {ID: 1, Name: "Stu", Email: "stu@campus.edu", Role: coreuser.RoleStudent},
			2: {ID: 2, Name: "Tara", Email: "tara@campus.edu", Role: coreuser.RoleTutor},
			3: {ID: 3, Name: "Wade", Role: coreuser.RoleWarden},
		}
		handler = NewEventHandler(contacts, queue, quietLogger())
	})

	event := func(t, from, to, reason string) *events.GatePassEvent {
		return events.NewGatePassEvent(t, events.GatePassEventInput{
			RequestID: 7, StudentID: 1, TutorID: 2, WardenID: 3,
			FromStatus: from, ToStatus: to, Reason: reason,
		})
	}

	It("should tell the tutor about a new submission", func() {
		Expect(handler.HandleGatePassEvent(ctx, event(events.EventTypeGatePassSubmitted, "", "PENDING_TUTOR_APPROVAL", ""))).To(Succeed())
		Expect(queue.msgs).To(HaveLen(1))
		Expect(queue.msgs[0].To).To(Equal("tara@campus.edu"))
		Expect(queue.msgs[0].Kind).To(Equal(KindAwaiting))
	})

	It("should tell the student about a rejection with the reason", func() {
		Expect(handler.HandleGatePassEvent(ctx, event(events.EventTypeGatePassRejected, "PENDING_TUTOR_APPROVAL", "REJECTED", "exam week"))).To(Succeed())
		Expect(queue.msgs).To(HaveLen(1))
		Expect(queue.msgs[0].To).To(Equal("stu@campus.edu"))
		Expect(queue.msgs[0].Subject).To(ContainSubstring("rejected"))
		Expect(queue.msgs[0].PlainText).To(ContainSubstring("exam week"))
	})

	It("should skip approvers without an email", func() {
		Expect(handler.HandleGatePassEvent(ctx, event(events.EventTypeGatePassApproved, "PENDING_TUTOR_APPROVAL", "PENDING_WARDEN_APPROVAL", ""))).To(Succeed())
		Expect(queue.msgs).To(HaveLen(1))
		Expect(queue.msgs[0].To).To(Equal("stu@campus.edu"))
	})

	It("should not notify anyone about a deleted request", func() {
		Expect(handler.HandleGatePassEvent(ctx, event(events.EventTypeGatePassDeleted, "PENDING_TUTOR_APPROVAL", "PENDING_TUTOR_APPROVAL", ""))).To(Succeed())
		Expect(queue.msgs).To(BeEmpty())
	})

	It("should reject foreign events", func() {
		err := handler.HandleGatePassEvent(ctx, events.BaseEvent{Type: "other"})
		Expect(err).To(HaveOccurred())
	})

	It("should be driven by the event bus", func() {
		bus := events.NewEventBus(quietLogger())
		handler.RegisterEventHandlers(bus)

		Expect(bus.PublishSync(ctx, event(events.EventTypeGatePassApproved, "PENDING_WARDEN_APPROVAL", "APPROVED", ""))).To(Succeed())
		Expect(queue.msgs).To(HaveLen(1))
		Expect(queue.msgs[0].Subject).To(ContainSubstring("approved"))
	})
})

type fakeMailClient struct {
	status int
	got    *mail.SGMailV3
}

func (f *fakeMailClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.got = email
	return &rest.Response{StatusCode: f.status, Body: "{}"}, nil
}

var _ = Describe("SendGridSender", func() {
	It("should build a single recipient mail", func() {
		client := &fakeMailClient{status: http.StatusAccepted}
		s := &SendGridSender{client: client, fromEmail: "noreply@campus.edu", fromName: "Gate Pass"}

		Expect(s.Send(context.Background(), Message{To: "stu@campus.edu", ToName: "Stu", Subject: "hi", PlainText: "x", HTML: "<p>x</p>"})).To(Succeed())
		Expect(client.got.Subject).To(Equal("hi"))
		Expect(client.got.From.Address).To(Equal("noreply@campus.edu"))
		Expect(client.got.Personalizations[0].To[0].Address).To(Equal("stu@campus.edu"))
	})

	It("should fail on an error status", func() {
		s := &SendGridSender{client: &fakeMailClient{status: http.StatusUnauthorized}}
		Expect(s.Send(context.Background(), Message{To: "stu@campus.edu"})).To(HaveOccurred())
	})
})
