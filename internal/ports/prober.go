package ports

import "context"

// ConnectivityProber performs a lightweight reachability check against the
// ingestion endpoint. A nil return means the endpoint answered within the
// probe timeout.
type ConnectivityProber interface {
	Probe(ctx context.Context) error
}
