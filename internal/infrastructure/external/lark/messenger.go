package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/fieldops/internal/application/port"
)

// Receive ID types accepted by the IM create-message API
const (
	ReceiveIDTypeChatID  = "chat_id"
	ReceiveIDTypeOpenID  = "open_id"
	ReceiveIDTypeUnionID = "union_id"
	ReceiveIDTypeUserID  = "user_id"
	ReceiveIDTypeEmail   = "email"
)

// messageCreator is satisfied by the SDK's Im.Message service
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger implements port.MessageSender over Lark IM
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(client *Client, logger *zap.Logger) *Messenger {
	return newMessenger(client.GetClient().Im.Message, logger)
}

func newMessenger(messages messageCreator, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: messages,
		logger:   logger,
	}
}

var _ port.MessageSender = (*Messenger)(nil)

// SendText posts a plain text message. The receive ID type is derived from
// the ID prefix (oc_ chat, ou_ open id, on_ union id, email, else user id).
func (m *Messenger) SendText(ctx context.Context, receiveID, text string) error {
	if receiveID == "" {
		return errors.New("receiveID cannot be empty")
	}
	if text == "" {
		return errors.New("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}

	_, err = m.send(ctx, ReceiveIDType(receiveID), receiveID, larkim.MsgTypeText, string(content))
	return err
}

// SendEmail sends a titled rich-text message to the user owning recipient
func (m *Messenger) SendEmail(ctx context.Context, recipient, subject, body string) error {
	if !strings.Contains(recipient, "@") {
		return fmt.Errorf("invalid email recipient: %q", recipient)
	}

	lines := make([][]map[string]string, 0)
	for _, line := range strings.Split(body, "\n") {
		lines = append(lines, []map[string]string{{"tag": "text", "text": line}})
	}
	content, err := json.Marshal(map[string]interface{}{
		"en_us": map[string]interface{}{
			"title":   subject,
			"content": lines,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal post content: %w", err)
	}

	_, err = m.send(ctx, ReceiveIDTypeEmail, recipient, larkim.MsgTypePost, string(content))
	return err
}

func (m *Messenger) send(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.String("msg_type", msgType),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id_type", receiveIDType))
	return messageID, nil
}

// ReceiveIDType infers the receive ID type from the shape of id
func ReceiveIDType(id string) string {
	switch {
	case strings.HasPrefix(id, "oc_"):
		return ReceiveIDTypeChatID
	case strings.HasPrefix(id, "ou_"):
		return ReceiveIDTypeOpenID
	case strings.HasPrefix(id, "on_"):
		return ReceiveIDTypeUnionID
	case strings.Contains(id, "@"):
		return ReceiveIDTypeEmail
	default:
		return ReceiveIDTypeUserID
	}
}
