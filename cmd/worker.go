package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/gatepass/internal/reminder"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers such as the pending approval reminder scheduler.`,
}

// Reminder worker command
var reminderWorkerCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Start the pending approval reminder scheduler",
	Long:  `Send every approver a digest of the gate pass requests waiting for them on a cron schedule`,
	Run: func(cmd *cobra.Command, args []string) {
		startReminderWorker()
	},
}

var (
	reminderSchedule string
	reminderRunOnce  bool
	maxWorkers       int
	jobQueueSize     int
)

func startReminderWorker() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.closeWithTimeout(30 * time.Second)
	lg := deps.Logger

	job := reminder.NewJob(deps.GatePasses, deps.Users, deps.Dispatcher, lg)

	if reminderRunOnce {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := job.Run(ctx)
		if err != nil {
			lg.Error("reminder run failed", "error", err)
			return
		}
		lg.Info("reminder run finished", "queued", n)
		return
	}

	schedule := getStringFlag(reminderSchedule, deps.Config.Reminder.Schedule)
	scheduler, err := reminder.NewScheduler(schedule, job, lg)
	if err != nil {
		lg.Error("failed to create reminder scheduler", "error", err)
		return
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	lg.Info("reminder worker is running. Press Ctrl+C to stop.", "schedule", schedule)

	sig := <-sigChan
	lg.Info("received signal, shutting down reminder worker", "signal", sig)
	scheduler.Stop()
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	reminderWorkerCmd.Flags().StringVar(&reminderSchedule, "schedule", "", "Cron schedule (overrides config)")
	reminderWorkerCmd.Flags().BoolVar(&reminderRunOnce, "run-once", false, "Send reminders once and exit")
	workerCmd.PersistentFlags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of notification workers (overrides config)")
	workerCmd.PersistentFlags().IntVar(&jobQueueSize, "job-queue-size", 0, "Notification job queue buffer size (overrides config)")

	workerCmd.AddCommand(reminderWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
