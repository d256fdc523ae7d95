package service

import (
	"context"
	"fmt"

	"github.com/complyco/caseflow/internal/application/dispatcher"
	"github.com/complyco/caseflow/internal/application/port"
	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/internal/domain/event"
)

// NotificationHandler turns workflow events into notifications. It is wired
// onto the dispatcher so the workflow path never waits on delivery.
type NotificationHandler struct {
	notifier port.Notifier
	logger   Logger
}

// NewNotificationHandler creates a handler bound to the given notifier
func NewNotificationHandler(notifier port.Notifier, logger Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, logger: logger}
}

// Register subscribes the handler to every workflow event type
func (h *NotificationHandler) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeWorkflowInitialized, "notify-workflow-initialized", h.Handle)
	d.SubscribeNamed(event.TypeStageAdvanced, "notify-stage-advanced", h.Handle)
	d.SubscribeNamed(event.TypeWorkflowCompleted, "notify-workflow-completed", h.Handle)
	d.SubscribeNamed(event.TypeWorkflowRejected, "notify-workflow-rejected", h.Handle)
}

// Handle routes one event to its audiences
func (h *NotificationHandler) Handle(ctx context.Context, evt *event.Event) error {
	msg, ok := h.buildMessage(evt)
	if !ok {
		h.logger.Info("Skipping notification for unhandled event type", "type", evt.Type)
		return nil
	}

	for _, audience := range h.audiences(evt) {
		h.notifier.Notify(ctx, msg, audience)
	}
	return nil
}

func (h *NotificationHandler) buildMessage(evt *event.Event) (port.Message, bool) {
	msg := port.Message{
		Category: entity.NotificationCategoryWorkflow,
		JobID:    evt.JobID,
		Kind:     evt.Kind,
	}

	switch evt.Type {
	case event.TypeWorkflowInitialized:
		msg.Title = fmt.Sprintf("%s review required", evt.Kind)
		msg.Description = fmt.Sprintf("Job %d is awaiting %s review at the %s stage.",
			evt.JobID, evt.Kind, evt.GetPayloadString("stage"))
		if evt.GetPayloadBool("chained") {
			msg.Description = fmt.Sprintf("Job %d finished its predecessor review; %s review opened automatically at the %s stage.",
				evt.JobID, evt.Kind, evt.GetPayloadString("stage"))
		}
	case event.TypeStageAdvanced:
		msg.Title = fmt.Sprintf("%s review required", evt.Kind)
		msg.Description = fmt.Sprintf("Job %d passed the %s stage and is awaiting %s review.",
			evt.JobID, evt.GetPayloadString("from_stage"), evt.GetPayloadString("to_stage"))
	case event.TypeWorkflowCompleted:
		msg.Title = fmt.Sprintf("%s workflow completed", evt.Kind)
		msg.Description = fmt.Sprintf("All %s review stages for job %d have been approved.",
			evt.Kind, evt.JobID)
	case event.TypeWorkflowRejected:
		msg.Title = fmt.Sprintf("%s workflow rejected", evt.Kind)
		msg.Description = fmt.Sprintf("Job %d was rejected at the %s stage: %s",
			evt.JobID, evt.GetPayloadString("stage"), evt.GetPayloadString("reason"))
	default:
		return port.Message{}, false
	}
	return msg, true
}

// audiences resolves the payload's audience selectors. Events may target a
// capability group, a single user, or both.
func (h *NotificationHandler) audiences(evt *event.Event) []entity.Audience {
	var out []entity.Audience
	if capability := evt.GetPayloadString("audience_capability"); capability != "" {
		out = append(out, entity.AudienceCapability(entity.Capability(capability)))
	}
	if userID := evt.GetPayloadString("audience_user"); userID != "" {
		out = append(out, entity.AudienceUser(userID))
	}
	return out
}
