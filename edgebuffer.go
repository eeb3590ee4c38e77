// Package edgebuffer provides a durable store-and-forward buffer for edge
// observation records.
//
// Example usage:
//
//	cfg := edgebuffer.Config{
//	    StorePath:  "/var/lib/edgebufferd/records.db",
//	    DeviceID:   "cam-01",
//	    ServiceURL: "https://ingest.example.com",
//	    AuthKey:    "your-api-key",
//	}
//	if err := edgebuffer.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For embedded use with control over the record producer, see pkg/edgebuffer.
package edgebuffer

import (
	"context"

	buffer "github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/edgebuffer"
)

// Config holds the configuration for the buffering agent.
type Config = buffer.Config

// Option configures optional behavior of the buffer.
type Option = buffer.Option

// Buffer is the embeddable edge observation buffer.
type Buffer = buffer.Buffer

// New creates a new Buffer with the given configuration.
func New(cfg Config, opts ...Option) (*Buffer, error) {
	return buffer.New(cfg, opts...)
}

// Run starts the buffering agent and blocks until the context is cancelled,
// then shuts it down gracefully.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	b, err := buffer.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return b.Stop()
}
