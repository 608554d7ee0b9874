package enums

// OutboxDLQErrorReason records why an outbox row was parked in the DLQ.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts means retries ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable means the broker rejected the message outright.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnresolvable means the row's type or payload is not in the event registry.
	OutboxDLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnresolvable:
		return true
	}
	return false
}

func (r OutboxDLQErrorReason) String() string { return string(r) }
