package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/application/port"
	"github.com/complyco/caseflow/internal/domain/entity"
)

// LarkConfig holds Lark app credentials
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// LarkChannel pushes workflow notifications as Lark IM text messages to the
// recipient's open id. Recipients without a linked open id are skipped.
type LarkChannel struct {
	client *lark.Client
	logger *zap.Logger
}

// NewLarkChannel creates a Lark IM channel
func NewLarkChannel(cfg LarkConfig, logger *zap.Logger) *LarkChannel {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithEnableTokenCache(true),
	)
	return &LarkChannel{
		client: client,
		logger: logger,
	}
}

// Name identifies the channel in logs and failure records
func (c *LarkChannel) Name() string {
	return "lark"
}

// Send delivers one message to one recipient
func (c *LarkChannel) Send(ctx context.Context, recipient *entity.Actor, msg port.Message) error {
	if recipient.LarkOpenID == "" {
		c.logger.Debug("Recipient has no Lark open id, skipping",
			zap.String("recipient", recipient.ID))
		return nil
	}

	text := fmt.Sprintf("%s\n%s", msg.Title, msg.Description)
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to build message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(recipient.LarkOpenID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.client.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	return nil
}
