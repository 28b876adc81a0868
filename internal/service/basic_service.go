package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/email"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/mailchimp"
)

var ErrNewsletterUnavailable = errors.New("订阅服务暂不可用")

// Subscriber 邮件列表订阅
type Subscriber interface {
	Subscribe(ctx context.Context, email string) (string, error)
}

// BasicService 联系表单和邮件订阅
type BasicService struct {
	mailer     email.Sender
	subscriber Subscriber
	cfg        *config.EmailConfig
}

func NewBasicService(mailer email.Sender, subscriber Subscriber, cfg *config.EmailConfig) *BasicService {
	return &BasicService{mailer: mailer, subscriber: subscriber, cfg: cfg}
}

// Contact 发送给管理员，Reply-To 为提交者；发送失败只记录日志
func (s *BasicService) Contact(ctx context.Context, req *dto.ContactRequest) error {
	log := logger.For(ctx).WithField("from", req.Email)
	if len(s.cfg.StaffEmails) == 0 {
		log.Warn("no staff recipients configured, contact message dropped")
		return nil
	}

	htmlBody, textBody, err := email.Render("contact.html", req)
	if err != nil {
		return err
	}

	msg := &email.Message{
		To:      s.cfg.StaffEmails,
		ReplyTo: strings.TrimSpace(req.Email),
		Subject: req.Subject,
		HTML:    htmlBody,
		Text:    textBody,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.WithError(err).Error("send contact email failed")
		return nil
	}
	log.Info("contact email sent")
	return nil
}

// Newsletter 订阅邮件列表；已经订阅的邮箱视为成功
func (s *BasicService) Newsletter(ctx context.Context, req *dto.NewsletterRequest) (*dto.NewsletterResponse, error) {
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	status, err := s.subscriber.Subscribe(ctx, addr)
	if err != nil {
		log := logger.For(ctx).WithError(err).WithField("email", addr)

		var apiErr *mailchimp.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Status < 500:
			log.WithFields(logrus.Fields{"status": apiErr.Status, "title": apiErr.Title}).Warn("newsletter subscription rejected")
			return nil, FieldError("email", CodeInvalid)
		case errors.Is(err, mailchimp.ErrNotConfigured):
			log.Error("newsletter subscription is not configured")
		default:
			log.Error("newsletter subscription failed")
		}
		return nil, ErrNewsletterUnavailable
	}

	return &dto.NewsletterResponse{Email: addr, Status: status}, nil
}
