package testutil

import (
	"context"
	"sync"

	"github.com/qs3c/pec_go_server/internal/pkg/email"
)

// FakeMailer 记录发送的邮件，Err 不为空时发送失败
type FakeMailer struct {
	mu   sync.Mutex
	Sent []*email.Message
	Err  error
}

func (m *FakeMailer) Send(ctx context.Context, msg *email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Messages 已发送邮件的快照
func (m *FakeMailer) Messages() []*email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*email.Message(nil), m.Sent...)
}
