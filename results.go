package ddsauth

// ValidationResult is the outcome of a plugin operation.
type ValidationResult int

const (
	ValidationOK = ValidationResult(iota)
	ValidationFailed
	ValidationPendingRetry
	// ValidationPendingHandshakeRequest means the local participant must begin the handshake.
	ValidationPendingHandshakeRequest
	// ValidationPendingHandshakeMessage means the local participant waits for the peer's request.
	ValidationPendingHandshakeMessage
	// ValidationOKFinalMessage means the handshake completed and a final message must be sent.
	ValidationOKFinalMessage
)

func (r ValidationResult) String() string {
	switch r {
	case ValidationOK:
		return "OK"
	case ValidationFailed:
		return "FAILED"
	case ValidationPendingRetry:
		return "PENDING_RETRY"
	case ValidationPendingHandshakeRequest:
		return "PENDING_HANDSHAKE_REQUEST"
	case ValidationPendingHandshakeMessage:
		return "PENDING_HANDSHAKE_MESSAGE"
	case ValidationOKFinalMessage:
		return "OK_FINAL_MESSAGE"
	default:
		return "UNKNOWN"
	}
}
