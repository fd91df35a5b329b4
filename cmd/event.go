package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Manage events: publish gate pass lifecycle events to exercise the notification handlers`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a gate pass event",
	Long: `Publish a gate pass lifecycle event (` + strings.Join(events.GatePassEventTypes, ", ") + `).
With --notify the event goes through the real notification handler and is delivered
to the participants; otherwise it is only logged.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishGatePassEvent(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var (
	eventInput  events.GatePassEventInput
	eventNotify bool
)

func publishGatePassEvent(eventType string) error {
	if !slices.Contains(events.GatePassEventTypes, eventType) {
		return fmt.Errorf("unknown event type %q", eventType)
	}

	lg := logger.LoggerWrapper()
	event := events.NewGatePassEvent(eventType, eventInput)

	if !eventNotify {
		bus := events.NewEventBus(lg)
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			lg.Info("received event",
				"event_id", event.EventID(),
				"event_type", event.EventType(),
				"payload", event.Payload())
			return nil
		})
		if err := bus.PublishSync(context.Background(), event); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		return nil
	}

	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	lg.Info("publishing event", "event_type", eventType, "event_id", event.EventID(), "request_id", eventInput.RequestID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	publishErr := deps.EventBus.PublishSync(ctx, event)
	closeErr := deps.Close(ctx)
	if publishErr != nil {
		return fmt.Errorf("failed to publish event: %w", publishErr)
	}
	if closeErr != nil {
		return fmt.Errorf("notifications not delivered: %w", closeErr)
	}
	lg.Info("event published successfully")
	return nil
}

func init() {
	f := publishEventCmd.Flags()
	f.Int64Var(&eventInput.RequestID, "request", 0, "Gate pass request id")
	f.Int64Var(&eventInput.StudentID, "student", 0, "Student user id")
	f.Int64Var(&eventInput.TutorID, "tutor", 0, "Tutor user id")
	f.Int64Var(&eventInput.WardenID, "warden", 0, "Warden user id")
	f.Int64Var(&eventInput.ActorID, "actor", 0, "Acting user id")
	f.StringVar(&eventInput.ActorRole, "actor-role", "", "Acting user role")
	f.StringVar(&eventInput.FromStatus, "from", "", "Status before the transition")
	f.StringVar(&eventInput.ToStatus, "to", "", "Status after the transition")
	f.StringVar(&eventInput.Reason, "reason", "", "Reject or modify reason")
	f.BoolVar(&eventNotify, "notify", false, "Deliver notifications through the configured sender")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
