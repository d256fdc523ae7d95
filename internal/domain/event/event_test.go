package event

import (
	"testing"
	"time"

	"github.com/complyco/caseflow/internal/domain/entity"
)

func TestType_String(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      string
	}{
		{
			name:      "workflow initialized",
			eventType: TypeWorkflowInitialized,
			want:      "workflow.initialized",
		},
		{
			name:      "stage advanced",
			eventType: TypeStageAdvanced,
			want:      "workflow.stage_advanced",
		},
		{
			name:      "workflow completed",
			eventType: TypeWorkflowCompleted,
			want:      "workflow.completed",
		},
		{
			name:      "workflow rejected",
			eventType: TypeWorkflowRejected,
			want:      "workflow.rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("Type.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{
			name:      "valid - workflow initialized",
			eventType: TypeWorkflowInitialized,
			want:      true,
		},
		{
			name:      "valid - stage advanced",
			eventType: TypeStageAdvanced,
			want:      true,
		},
		{
			name:      "valid - workflow completed",
			eventType: TypeWorkflowCompleted,
			want:      true,
		},
		{
			name:      "valid - workflow rejected",
			eventType: TypeWorkflowRejected,
			want:      true,
		},
		{
			name:      "invalid - unknown type",
			eventType: Type("workflow.archived"),
			want:      false,
		},
		{
			name:      "invalid - empty string",
			eventType: Type(""),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"stage":    "lmro",
		"actor_id": "alice",
	}

	evt := NewEvent(TypeWorkflowInitialized, 123, entity.KindKYC, payload)

	if evt == nil {
		t.Fatal("NewEvent() returned nil")
	}

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}

	if evt.Type != TypeWorkflowInitialized {
		t.Errorf("Event Type = %v, want %v", evt.Type, TypeWorkflowInitialized)
	}

	if evt.JobID != 123 {
		t.Errorf("Event JobID = %v, want %v", evt.JobID, 123)
	}

	if evt.Kind != entity.KindKYC {
		t.Errorf("Event Kind = %v, want %v", evt.Kind, entity.KindKYC)
	}

	if evt.Payload == nil {
		t.Fatal("Event Payload should not be nil")
	}

	if evt.Payload["stage"] != "lmro" {
		t.Errorf("Event Payload[stage] = %v, want %v", evt.Payload["stage"], "lmro")
	}

	if evt.Timestamp.IsZero() {
		t.Error("Event Timestamp should not be zero")
	}

	if evt.CorrelationID == "" {
		t.Error("Event CorrelationID should not be empty")
	}

	// Timestamp should be recent
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	correlationID := "kyc-completion-123"
	payload := map[string]interface{}{
		"stage": "lmro",
	}

	evt := NewEventWithCorrelation(TypeWorkflowInitialized, 789, entity.KindBRA, payload, correlationID)

	if evt == nil {
		t.Fatal("NewEventWithCorrelation() returned nil")
	}

	if evt.CorrelationID != correlationID {
		t.Errorf("Event CorrelationID = %v, want %v", evt.CorrelationID, correlationID)
	}

	if evt.Type != TypeWorkflowInitialized {
		t.Errorf("Event Type = %v, want %v", evt.Type, TypeWorkflowInitialized)
	}

	if evt.JobID != 789 {
		t.Errorf("Event JobID = %v, want %v", evt.JobID, 789)
	}

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeWorkflowCompleted, 1, entity.KindKYC, map[string]interface{}{
		"actor_id": "alice",
	})

	modified := original.WithPayload("audience_user", "bob")

	// Original should be unchanged (immutability)
	if _, exists := original.Payload["audience_user"]; exists {
		t.Error("Original event should not be modified")
	}

	if original.Payload["actor_id"] != "alice" {
		t.Error("Original event payload should remain intact")
	}

	// Modified should have both keys
	if modified.Payload["actor_id"] != "alice" {
		t.Error("Modified event should retain original payload")
	}

	if modified.Payload["audience_user"] != "bob" {
		t.Error("Modified event should have new payload")
	}

	// Other fields should be copied
	if modified.ID != original.ID {
		t.Error("Modified event should have same ID")
	}

	if modified.Type != original.Type {
		t.Error("Modified event should have same Type")
	}

	if modified.JobID != original.JobID {
		t.Error("Modified event should have same JobID")
	}

	if modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should have same CorrelationID")
	}
}

func TestEvent_GetPayloadString(t *testing.T) {
	evt := NewEvent(TypeStageAdvanced, 1, entity.KindKYC, map[string]interface{}{
		"to_stage": "dlmro",
		"chained":  true,
		"missing":  nil,
	})

	tests := []struct {
		name string
		key  string
		want string
	}{
		{
			name: "existing string",
			key:  "to_stage",
			want: "dlmro",
		},
		{
			name: "non-string value",
			key:  "chained",
			want: "",
		},
		{
			name: "missing key",
			key:  "nonexistent",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evt.GetPayloadString(tt.key); got != tt.want {
				t.Errorf("GetPayloadString(%v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestEvent_GetPayloadBool(t *testing.T) {
	evt := NewEvent(TypeWorkflowInitialized, 1, entity.KindBRA, map[string]interface{}{
		"chained": true,
		"stage":   "lmro",
	})

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{
			name: "existing bool",
			key:  "chained",
			want: true,
		},
		{
			name: "non-bool value",
			key:  "stage",
			want: false,
		},
		{
			name: "missing key",
			key:  "nonexistent",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evt.GetPayloadBool(tt.key); got != tt.want {
				t.Errorf("GetPayloadBool(%v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
