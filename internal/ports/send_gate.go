package ports

// SendGate tells the delivery worker whether sends may proceed.
// The connectivity monitor implements it: while the endpoint is
// Disconnected the gate is closed and records accumulate in the store
// instead of feeding a hot retry loop.
type SendGate interface {
	// OK returns true if delivery attempts are currently allowed.
	OK() bool
}
