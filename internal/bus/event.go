package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds are dot-separated and namespaced by the publishing subsystem:
// "gateway." for inbound socket traffic, "store." for cache mutations,
// "session." for connection lifecycle changes.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
