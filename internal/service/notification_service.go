package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/email"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/repository"
)

const notificationTemplate = "comment_notification.html"

// NotificationService 回复通知
type NotificationService struct {
	commentRepo *repository.CommentRepository
	mailer      email.Sender
	avatars     *avatar.Resolver
	cfg         *config.Config
}

func NewNotificationService(
	commentRepo *repository.CommentRepository,
	mailer email.Sender,
	avatars *avatar.Resolver,
	cfg *config.Config,
) *NotificationService {
	return &NotificationService{
		commentRepo: commentRepo,
		mailer:      mailer,
		avatars:     avatars,
		cfg:         cfg,
	}
}

// Subscribers 计算收件人：父评论作者和父评论下所有回复的作者中开启通知的人，
// 排除 comment 自己的作者，按邮箱去重（忽略大小写）
func Subscribers(parent *model.Comment, siblings []*model.Comment, comment *model.Comment) []string {
	self := comment.AuthorEmail()
	seen := make(map[string]struct{})

	add := func(c *model.Comment) {
		if c == nil || !c.BeNotified {
			return
		}
		addr := c.AuthorEmail()
		if addr == "" || addr == self {
			return
		}
		seen[addr] = struct{}{}
	}

	add(parent)
	for _, s := range siblings {
		add(s)
	}

	recipients := make([]string, 0, len(seen))
	for addr := range seen {
		recipients = append(recipients, addr)
	}
	sort.Strings(recipients)
	return recipients
}

// notificationData 邮件模板数据
type notificationData struct {
	ObjectURL    string
	ObjectTitle  string
	AuthorAvatar string
	AuthorName   string
	Content      string
	SiteName     string
}

// NotifyReply 已审核的回复通知订阅者，失败只记录日志；返回收件人数量
func (s *NotificationService) NotifyReply(ctx context.Context, comment *model.Comment, target *Target) int {
	if !comment.IsReply() || !comment.IsValid {
		return 0
	}

	log := logger.For(ctx).WithFields(logrus.Fields{
		"component":  "notification",
		"comment_id": comment.ID,
		"parent_id":  *comment.ParentID,
	})

	parent, err := s.commentRepo.GetByIDWithAuthor(*comment.ParentID)
	if err != nil {
		log.WithError(err).Warn("load parent comment failed")
		return 0
	}
	siblings, err := s.commentRepo.ListChildren(parent.ID)
	if err != nil {
		log.WithError(err).Warn("load sibling comments failed")
		return 0
	}

	recipients := Subscribers(parent, siblings, comment)
	if len(recipients) == 0 {
		return 0
	}

	author := comment.Author()
	data := &notificationData{
		ObjectURL:   target.URL(s.cfg.Server.PublicURL),
		ObjectTitle: target.FullTitle,
		Content:     comment.Content,
		SiteName:    s.cfg.Email.SiteName,
	}
	if author != nil {
		data.AuthorName = author.AuthorName()
		data.AuthorAvatar = s.avatars.URL(author)
	}

	htmlBody, textBody, err := email.Render(notificationTemplate, data)
	if err != nil {
		log.WithError(err).Error("render notification failed")
		return 0
	}

	msg := &email.Message{
		Bcc:     recipients,
		Subject: fmt.Sprintf("Nouveau commentaire sur %s", s.cfg.Email.SiteName),
		HTML:    htmlBody,
		Text:    textBody,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.WithError(err).WithField("recipients", len(recipients)).Warn("send notification failed")
		return 0
	}

	log.WithField("recipients", len(recipients)).Info("reply notification sent")
	return len(recipients)
}
