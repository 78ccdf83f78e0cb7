package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Provisioning
	ErrRegistrationFailed = fmt.Errorf("registration failed")
	ErrLoginFailed        = fmt.Errorf("login failed")
	ErrMissingToken       = fmt.Errorf("login response without token or id")

	// Connection
	ErrConnectFailed = fmt.Errorf("connection attempts exhausted")

	// Registry
	ErrSessionNotLive   = fmt.Errorf("session is not live")
	ErrDuplicateSession = fmt.Errorf("identity already has a live session")
	ErrSessionClosed    = fmt.Errorf("session closed")

	// Delivery and cleanup
	ErrDeliveryFailed   = fmt.Errorf("delivery failed")
	ErrCleanupFailed    = fmt.Errorf("cleanup failed")
	ErrUnexpectedStatus = fmt.Errorf("unexpected status")

	// Configuration checked by a single command
	ErrMissingAdminToken = fmt.Errorf("ADMIN_TOKEN is required")
)
