package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/qs3c/pec_go_server/config"
)

// Message 待发送邮件；Bcc 收件人不会出现在邮件头中
type Message struct {
	To      []string
	Bcc     []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Recipients 信封收件人
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Bcc...)
	return out
}

// Sender 邮件发送
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender 根据 driver 创建发送器
func NewSender(cfg *config.EmailConfig) (Sender, error) {
	switch strings.ToLower(cfg.Driver) {
	case "smtp", "":
		return NewSMTPSender(cfg), nil
	case "sendgrid":
		return NewSendGridSender(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported email driver: %s", cfg.Driver)
	}
}
