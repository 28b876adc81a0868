package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/pec_go_server/internal/pkg/queue"
	"github.com/qs3c/pec_go_server/internal/service"
	"github.com/qs3c/pec_go_server/internal/testutil"
)

type fakeIndexer struct {
	mu    sync.Mutex
	calls []string
	errs  []error // 按调用顺序返回
}

func (f *fakeIndexer) Process(ctx context.Context, msg *queue.IndexMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg.ObjectID)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeIndexer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestProcessor(indexer Indexer, maxRetries int) *Processor {
	p := NewProcessor(nil, indexer, 1, maxRetries)
	p.backoff = time.Millisecond
	return p
}

func TestNewProcessor_Defaults(t *testing.T) {
	p := NewProcessor(nil, &fakeIndexer{}, 0, -1)
	assert.Equal(t, 1, p.workers)
	assert.Equal(t, 0, p.maxRetries)
}

func TestProcessor_Handle(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		retries   int
		wantCalls int
		wantErr   bool
	}{
		{"success", nil, 3, 1, false},
		{"transient then success", []error{errors.New("db gone"), errors.New("db gone")}, 3, 3, false},
		{"retries exhausted", []error{errors.New("a"), errors.New("b"), errors.New("c")}, 2, 3, true},
		{"unknown kind is not retried", []error{fmt.Errorf("%w: video", service.ErrUnknownKind)}, 3, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indexer := &fakeIndexer{errs: tt.errs}
			p := newTestProcessor(indexer, tt.retries)

			err := p.Handle(context.Background(), &queue.IndexMessage{Kind: "recipe", ObjectID: "r-1"})
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantCalls, indexer.count())
		})
	}
}

func TestProcessor_Handle_Cancelled(t *testing.T) {
	indexer := &fakeIndexer{errs: []error{errors.New("db gone")}}
	p := newTestProcessor(indexer, 3)
	p.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Handle(ctx, &queue.IndexMessage{Kind: "recipe", ObjectID: "r-1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, indexer.count())
}

func TestProcessor_Run(t *testing.T) {
	rdb, _ := testutil.SetupTestRedis(t)
	q := queue.NewQueue(rdb, "index:test")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, &queue.IndexMessage{Kind: "story", ObjectID: id}))
	}

	indexer := &fakeIndexer{}
	p := NewProcessor(q, indexer, 2, 0)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		p.Run(runCtx)
		close(done)
	}()

	require.Eventually(t, func() bool { return indexer.count() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(popTimeout + time.Second):
		t.Fatal("processor did not stop")
	}

	n, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type fakeRebuilder struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (f *fakeRebuilder) Rebuild(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return 2, f.err
}

func (f *fakeRebuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func TestReindexer_Start(t *testing.T) {
	rebuilder := &fakeRebuilder{err: errors.New("first run fails")}
	r := NewReindexer(rebuilder, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return rebuilder.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestReindexer_Disabled(t *testing.T) {
	rebuilder := &fakeRebuilder{}
	NewReindexer(rebuilder, 0).Start(context.Background())
	assert.Zero(t, rebuilder.count())
}
