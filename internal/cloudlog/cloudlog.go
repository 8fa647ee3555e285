// Package cloudlog ships orchestrator logs to Cloud Logging alongside the
// local logger. The orchestrator treats it as optional: a nil Writer means
// local-only logging.
package cloudlog

import (
	"context"
	"fmt"

	"cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

// Writer receives leveled log lines with optional labels.
type Writer interface {
	Info(message string)
	Warning(message string)
	Error(message string)
	WithLabels(severity logging.Severity, message string, labels map[string]string)
	Flush() error
	Close() error
}

// logName is the Cloud Logging log stream the orchestrator writes to.
const logName = "farmer-code-orchestrator"

// GCPWriter ships entries to Cloud Logging.
type GCPWriter struct {
	client *logging.Client
	logger *logging.Logger
}

// NewGCPWriter creates a writer for the given project.
func NewGCPWriter(ctx context.Context, projectID string, opts ...option.ClientOption) (*GCPWriter, error) {
	client, err := logging.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud logging client: %w", err)
	}
	return &GCPWriter{
		client: client,
		logger: client.Logger(logName),
	}, nil
}

// Info logs at INFO severity.
func (w *GCPWriter) Info(message string) {
	w.WithLabels(logging.Info, message, nil)
}

// Warning logs at WARNING severity.
func (w *GCPWriter) Warning(message string) {
	w.WithLabels(logging.Warning, message, nil)
}

// Error logs at ERROR severity.
func (w *GCPWriter) Error(message string) {
	w.WithLabels(logging.Error, message, nil)
}

// WithLabels logs a message with explicit severity and labels.
func (w *GCPWriter) WithLabels(severity logging.Severity, message string, labels map[string]string) {
	w.logger.Log(logging.Entry{
		Severity: severity,
		Payload:  message,
		Labels:   labels,
	})
}

// Flush sends buffered entries.
func (w *GCPWriter) Flush() error {
	return w.logger.Flush()
}

// Close flushes and closes the client.
func (w *GCPWriter) Close() error {
	return w.client.Close()
}
