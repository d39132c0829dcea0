package events

import "time"

// Event types
const (
	UserRegistered       = "user.registered"
	TransactionSubmitted = "transaction.submitted"
)

// AuditStream receives every audit event.
const AuditStream = "audit.events"

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserRegisteredEvent struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

// TransactionSubmittedEvent records who submitted an entry and what the
// procedure answered. Kind is MOV or TRX.
type TransactionSubmittedEvent struct {
	Kind       string `json:"kind"`
	UserID     int64  `json:"userId"`
	OrigenID   int64  `json:"origenId"`
	DestinoID  int64  `json:"destinoId,omitempty"`
	Monto      string `json:"monto"`
	Referencia string `json:"referencia"`
	StatusCode int64  `json:"statusCode"`
}
