package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/frahmantamala/gatepass/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var _ = Describe("EventBus", func() {
	var (
		bus *events.EventBus
		ctx context.Context
	)

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx = context.Background()
	})

	It("delivers asynchronously to every subscriber and Wait drains them", func() {
		var calls int32
		for i := 0; i < 3; i++ {
			bus.Subscribe(events.EventTypeGatePassApproved, func(ctx context.Context, e events.Event) error {
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}

		ev := events.NewGatePassEvent(events.EventTypeGatePassApproved, events.GatePassEventInput{RequestID: 7})
		Expect(bus.Publish(ctx, ev)).To(Succeed())
		bus.Wait()
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(3)))
	})

	It("keeps the handler context alive after the publisher cancels", func() {
		var handlerErr atomic.Value
		release := make(chan struct{})
		bus.Subscribe(events.EventTypeGatePassSubmitted, func(ctx context.Context, e events.Event) error {
			<-release
			handlerErr.Store(ctx.Err() == nil)
			return nil
		})

		pctx, cancel := context.WithCancel(ctx)
		Expect(bus.Publish(pctx, events.NewGatePassEvent(events.EventTypeGatePassSubmitted, events.GatePassEventInput{}))).To(Succeed())
		cancel()
		close(release)
		bus.Wait()
		Expect(handlerErr.Load()).To(Equal(true))
	})

	It("returns the first handler error from PublishSync", func() {
		bus.Subscribe(events.EventTypeGatePassRejected, func(ctx context.Context, e events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(ctx, events.NewGatePassEvent(events.EventTypeGatePassRejected, events.GatePassEventInput{}))
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("reports a panicking handler as an error", func() {
		bus.SubscribeAll([]string{events.EventTypeGatePassDeleted}, func(ctx context.Context, e events.Event) error {
			panic("nil contact")
		})

		err := bus.PublishSync(ctx, events.NewGatePassEvent(events.EventTypeGatePassDeleted, events.GatePassEventInput{}))
		Expect(err).To(MatchError(ContainSubstring("handler panic")))

		Expect(bus.Publish(ctx, events.NewGatePassEvent(events.EventTypeGatePassDeleted, events.GatePassEventInput{}))).To(Succeed())
		bus.Wait()
	})

	It("ignores events nobody subscribed to", func() {
		Expect(bus.Publish(ctx, events.BaseEvent{Type: "nobody.listens"})).To(Succeed())
	})

	It("carries the gate pass fields in the payload", func() {
		ev := events.NewGatePassEvent(events.EventTypeGatePassModified, events.GatePassEventInput{
			RequestID: 1, StudentID: 2, ActorRole: "WARDEN", FromStatus: "APPROVED", ToStatus: "PENDING_WARDEN_APPROVAL",
		})
		payload := ev.Payload().(map[string]interface{})
		Expect(payload).To(HaveKeyWithValue("request_id", int64(1)))
		Expect(payload).To(HaveKeyWithValue("to_status", "PENDING_WARDEN_APPROVAL"))
		Expect(ev.EventID()).NotTo(BeEmpty())
	})
})
