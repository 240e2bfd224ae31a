package cart

// Op names a cart mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
	OpClear  Op = "clear"
)

// Outcome classifies how a mutation ended.
type Outcome int

const (
	// Synced means the backend accepted the mutation and the cart was
	// replaced by a fresh server read.
	Synced Outcome = iota
	// LocalOnly means there is no session; the mutation lives in memory only.
	LocalOnly
	// Degraded means a session existed but the backend could not be reached
	// or refused; the mutation was applied locally anyway.
	Degraded
	// Rejected means the request itself was invalid and nothing changed.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Synced:
		return "synced"
	case LocalOnly:
		return "local_only"
	case Degraded:
		return "degraded"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Reason explains a non-synced outcome.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotPersisted   Reason = "not_persisted"
	ReasonSessionExpired Reason = "session_expired"
	ReasonSyncFailed     Reason = "sync_failed"
	ReasonResyncFailed   Reason = "resync_failed"
	ReasonInvalid        Reason = "invalid_request"
)

// Result is returned by every mutation. Consumers decide how to surface it.
type Result struct {
	Op        Op
	ProductID string
	Outcome   Outcome
	Reason    Reason
	// Err is the underlying cause for Degraded and Rejected outcomes.
	Err error
}

// OK reports whether the mutation took effect, locally or remotely.
func (r Result) OK() bool {
	return r.Outcome != Rejected
}

// Severity ranks a notice for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityFailure Severity = "failure"
)

// Notice is the transient, non-blocking message for a Result.
type Notice struct {
	Severity Severity
	Message  string
}

var syncedMessages = map[Op]string{
	OpAdd:    "Item added to cart",
	OpRemove: "Item removed from cart",
	OpUpdate: "Quantity updated",
	OpClear:  "Cart cleared successfully",
}

var expiredMessages = map[Op]string{
	OpAdd:    "Session expired. Item added locally only.",
	OpRemove: "Session expired. Item removed locally only.",
	OpUpdate: "Session expired. Updated locally only.",
	OpClear:  "Session expired. Cart cleared locally only.",
}

var failedMessages = map[Op]string{
	OpAdd:    "Failed to sync with server. Added locally.",
	OpRemove: "Failed to sync with server. Item removed locally.",
	OpUpdate: "Failed to sync with server. Updated locally.",
	OpClear:  "Failed to sync with server. Cart cleared locally.",
}

// Notice returns the user-facing message for r.
func (r Result) Notice() Notice {
	switch r.Outcome {
	case Synced:
		return Notice{Severity: SeveritySuccess, Message: syncedMessages[r.Op]}
	case LocalOnly:
		return Notice{Severity: SeverityWarning, Message: "Login to save your cart"}
	case Rejected:
		msg := "Invalid cart request"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return Notice{Severity: SeverityFailure, Message: msg}
	}
	if r.Reason == ReasonSessionExpired {
		return Notice{Severity: SeverityWarning, Message: expiredMessages[r.Op]}
	}
	return Notice{Severity: SeverityFailure, Message: failedMessages[r.Op]}
}
