package entity

import "time"

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification categories
const (
	NotificationCategoryWorkflow = "workflow"
)

// Notification is one delivered (or pending) message to a single recipient
type Notification struct {
	ID           int64      `json:"id"`
	JobID        int64      `json:"job_id"`
	Kind         Kind       `json:"kind"`
	RecipientID  string     `json:"recipient_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Status       string     `json:"status"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Audience selects who receives a notification: either a single user or
// every user holding a capability. Exactly one selector is set.
type Audience struct {
	UserID     string     `json:"user_id,omitempty"`
	Capability Capability `json:"capability,omitempty"`
}

// AudienceUser addresses a single user
func AudienceUser(userID string) Audience {
	return Audience{UserID: userID}
}

// AudienceCapability addresses every user holding the capability
func AudienceCapability(c Capability) Audience {
	return Audience{Capability: c}
}
