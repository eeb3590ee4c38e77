// Package edgebuffer provides an embeddable buffering agent that reliably
// delivers edge observations (e.g. inference results) to a remote ingestion
// endpoint despite intermittent connectivity, process crashes, and endpoint
// outages.
//
// Every record is durably persisted to a local SQLite store before the
// logging call returns, then delivered in batches by a background worker.
// Delivery is at-least-once: a confirmed record is marked Sent and cleaned
// up after a retention window; a failed one stays Pending and is retried
// with exponential backoff. A connectivity monitor gates sends while the
// endpoint is unreachable, and a recovery sweep drains the backlog when it
// comes back.
//
// # Basic Usage
//
//	cfg := edgebuffer.Config{
//	    StorePath:  "/var/lib/edgebufferd/records.db",
//	    DeviceID:   "camera-7",
//	    ServiceURL: "https://ingest.example.com",
//	    AuthKey:    "your-api-key",
//	}
//
//	buf, err := edgebuffer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := buf.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := buf.LogRecord(ctx, payload, "observation-123")
//
//	// ... run until shutdown signal ...
//
//	if err := buf.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Configuration
//
// Create a [Config] with at minimum StorePath, DeviceID and ServiceURL.
// All other fields have sensible defaults set via [Config.SetDefaults].
//
// # Event Handling
//
// To receive notifications about delivery, connectivity and capacity,
// implement [EventHandler] and pass it via [WithEventHandler]. Events are
// called synchronously from agent goroutines; implementations should return
// quickly.
//
// # Dependency Injection
//
// For testing, inject custom implementations of external dependencies:
//
//	buf, err := edgebuffer.New(cfg,
//	    edgebuffer.WithHTTPClient(mockClient),
//	    edgebuffer.WithLogger(customLogger),
//	)
//
// # Observability
//
// [Buffer.Status] returns a pull-based snapshot: Pending/Sent/Failed counts,
// size versus capacity, connectivity state, recovery activity and a bounded
// sample of recent errors. Operators observe degradation exclusively through
// this snapshot; producers keep working uninterrupted under network loss.
package edgebuffer
