package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/qs3c/pec_go_server/config"
)

// SendGridSender 通过 SendGrid API 发送
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridSender(cfg *config.EmailConfig) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.SendgridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.From),
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.Recipients()) == 0 {
		return nil
	}

	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (s *SendGridSender) build(msg *Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	if len(msg.To) == 0 {
		// SendGrid 要求至少一个 To，仅密送时发给发件人自己
		p.AddTos(s.from)
	}
	for _, addr := range msg.To {
		p.AddTos(mail.NewEmail("", addr))
	}
	for _, addr := range msg.Bcc {
		p.AddBCCs(mail.NewEmail("", addr))
	}
	m.AddPersonalizations(p)

	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	return m
}
