package domain

// ConnectivityState is the reachability state of the remote endpoint as
// observed by the connectivity monitor.
type ConnectivityState int

const (
	// ConnectivityUnknown is the state before the first probe completes.
	ConnectivityUnknown ConnectivityState = iota

	// ConnectivityConnected means the last probe reached the endpoint.
	ConnectivityConnected

	// ConnectivityDisconnected means the last probe failed; the delivery
	// worker stops attempting new sends until the state flips back.
	ConnectivityDisconnected
)

// String returns a human-readable representation of the state.
func (s ConnectivityState) String() string {
	switch s {
	case ConnectivityUnknown:
		return "Unknown"
	case ConnectivityConnected:
		return "Connected"
	case ConnectivityDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes the state as its string form.
func (s ConnectivityState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
