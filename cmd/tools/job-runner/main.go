// Package main implements the job-runner CLI for invoking scheduled tasks
// directly, bypassing the Lambda runtime. It is meant for local development,
// manual backfills and operational debugging.
//
// Usage:
//
//	go run ./cmd/tools/job-runner --task=evaluate
//	go run ./cmd/tools/job-runner --task=evaluate --reference-time=2026-10-14T06:10:00Z --users=u1,u2
//	go run ./cmd/tools/job-runner --task=purge_forecast_cache
//	go run ./cmd/tools/job-runner --dry-run --task=evaluate
//	go run ./cmd/tools/job-runner --list
//
// Configuration is read the same way as the evaluator (environment, then
// .env). --dry-run prints the payload without touching any backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	_ "time/tzdata"

	"weatheralert/internal/app"
	"weatheralert/internal/config"
	"weatheralert/internal/scheduler"
)

var validTasks = map[scheduler.TaskType]string{
	scheduler.TaskEvaluate:           "Run one evaluation cycle",
	scheduler.TaskPurgeForecastCache: "Delete expired forecast cache entries",
}

func main() {
	taskFlag := flag.String("task", string(scheduler.TaskEvaluate), "Task type to execute")
	refTimeFlag := flag.String("reference-time", "", "Override reference time (RFC3339)")
	usersFlag := flag.String("users", "", "Comma-separated user IDs to restrict the cycle to")
	listFlag := flag.Bool("list", false, "List available task types and exit")
	dryRunFlag := flag.Bool("dry-run", false, "Print the JSON payload without executing")
	flag.Parse()

	if *listFlag {
		printTasks(os.Stdout)
		return
	}

	payload, err := buildPayload(*taskFlag, *refTimeFlag, *usersFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if *dryRunFlag {
		if err := writeJSON(os.Stdout, payload); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := execute(payload); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// buildPayload validates the flags and assembles the trigger payload.
func buildPayload(task, refTime, users string) (scheduler.TriggerPayload, error) {
	t := scheduler.TaskType(task)
	if _, ok := validTasks[t]; !ok {
		return scheduler.TriggerPayload{}, fmt.Errorf("unknown task %q (see --list)", task)
	}
	payload := scheduler.TriggerPayload{Task: t}

	if refTime != "" {
		ts, err := time.Parse(time.RFC3339, refTime)
		if err != nil {
			return scheduler.TriggerPayload{}, fmt.Errorf("invalid --reference-time: %w", err)
		}
		ts = ts.UTC()
		payload.ReferenceTime = &ts
	}

	for _, id := range strings.Split(users, ",") {
		if id = strings.TrimSpace(id); id != "" {
			payload.UserIDs = append(payload.UserIDs, id)
		}
	}
	if len(payload.UserIDs) > 0 && t != scheduler.TaskEvaluate {
		return scheduler.TriggerPayload{}, fmt.Errorf("--users only applies to %s", scheduler.TaskEvaluate)
	}
	return payload, nil
}

func execute(payload scheduler.TriggerPayload) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.NewLogger(cfg.LogLevel, os.Stderr).With("component", "job-runner")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring dependencies: %w", err)
	}
	defer a.Close()

	res, err := scheduler.NewTriggerHandler(a.Runner, a.Maintenance, a.Clock, logger).Handle(ctx, payload)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, res)
}

func printTasks(w io.Writer) {
	names := make([]string, 0, len(validTasks))
	for t := range validTasks {
		names = append(names, string(t))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-22s %s\n", n, validTasks[scheduler.TaskType(n)])
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
