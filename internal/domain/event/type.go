package event

// Type identifies the type of domain event
type Type string

const (
	TypeWorkflowInitialized Type = "workflow.initialized"
	TypeStageAdvanced       Type = "workflow.stage_advanced"
	TypeWorkflowCompleted   Type = "workflow.completed"
	TypeWorkflowRejected    Type = "workflow.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowInitialized,
		TypeStageAdvanced,
		TypeWorkflowCompleted,
		TypeWorkflowRejected:
		return true
	default:
		return false
	}
}
