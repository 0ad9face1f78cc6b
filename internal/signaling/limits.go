package signaling

import "time"

// Operational limits — named constants for values that would otherwise be
// scattered across the handler, roster, and outbox.
const (
	// outboxCapacity is the per-connection fan-in queue depth. Once full,
	// the oldest queued message is dropped to make room (§5).
	outboxCapacity = 16

	// sendTimeout bounds how long the handler's writer loop may block
	// flushing a single message before the connection is considered stuck.
	sendTimeout = 5 * time.Second

	// rateLimitPerSecond is the steady-state number of control messages a
	// single connection may submit per second; inbound messages of any
	// command beyond the limit are dropped unprocessed.
	rateLimitPerSecond = 20

	// rateLimitBurst is the token-bucket burst size paired with
	// rateLimitPerSecond.
	rateLimitBurst = 40

	// queueSaturationWarnAfter is the number of consecutive drop-oldest
	// overflows on one recipient's outbox before a warning is logged.
	queueSaturationWarnAfter = 50
)
