// Package main is the entry point for the evaluator Lambda function.
//
// An EventBridge schedule invokes the function every few minutes with an
// optional payload:
//
//	{"task": "evaluate", "reference_time": "2026-10-14T06:10:00Z", "user_ids": ["u1"]}
//	{"task": "purge_forecast_cache"}
//
// This file handles dependency wiring (cold start) and delegates the work to
// scheduler.TriggerHandler. With APP_ENV=local and outside Lambda, one payload
// is read from stdin and the result is printed to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

	// Embedded zone database: the Lambda base image has no /usr/share/zoneinfo.
	_ "time/tzdata"

	"weatheralert/internal/app"
	"weatheralert/internal/config"
	"weatheralert/internal/scheduler"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.LogLevel, os.Stdout).With("service", cfg.Service, "component", "evaluator")
	logger.Info("evaluator initializing (cold start)",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
	)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		app.Exit(logger, "failed to wire dependencies", err)
	}
	defer a.Close()

	trigger := scheduler.NewTriggerHandler(a.Runner, a.Maintenance, a.Clock, logger)
	handler := newHandler(trigger, logger)

	if cfg.Environment == "local" && !isLambdaEnvironment() {
		if err := runOnce(handler, os.Stdin, os.Stdout); err != nil {
			a.Close()
			app.Exit(logger, "local invocation failed", err)
		}
		return
	}

	lambda.Start(handler)
}

type handlerFunc func(ctx context.Context, payload scheduler.TriggerPayload) (scheduler.TriggerResult, error)

// newHandler wraps TriggerHandler.Handle with invocation logging.
func newHandler(trigger *scheduler.TriggerHandler, logger *slog.Logger) handlerFunc {
	return func(ctx context.Context, payload scheduler.TriggerPayload) (scheduler.TriggerResult, error) {
		logger.InfoContext(ctx, "evaluator invoked",
			"task", payload.Task,
			"reference_time_override", payload.ReferenceTime != nil,
			"user_filter", len(payload.UserIDs),
		)
		res, err := trigger.Handle(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "evaluator invocation failed", "task", payload.Task, "error", err)
			return res, err
		}
		return res, nil
	}
}

// runOnce decodes one payload from r (an empty input is the default
// payload), runs it and writes the JSON result to w. SIGINT cancels the run.
func runOnce(handler handlerFunc, r io.Reader, w io.Writer) error {
	var payload scheduler.TriggerPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding payload: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := handler(ctx, payload)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// isLambdaEnvironment reports whether the process runs inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	return hasRuntimeAPI
}
