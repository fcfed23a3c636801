package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"portfolio_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// typingRecorder 收集 SetTyping 寫入的值
type typingRecorder struct {
	mu     sync.Mutex
	values []bool
}

func (r *typingRecorder) record(args mock.Arguments) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, args.Bool(3))
}

func (r *typingRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.values...)
}

func newTypingFixture(quiet time.Duration) (*TypingSignaler, *typingRecorder) {
	repo := new(MockConversationRepository)
	rec := &typingRecorder{}
	repo.On("SetTyping", mock.Anything, "guest@example.com", visitor.ID, mock.Anything).Run(rec.record).Return(nil)
	return NewTypingSignaler(context.Background(), repo, "guest@example.com", visitor.ID, quiet), rec
}

func TestTypingSignaler_BurstWritesTrueOnceThenFalse(t *testing.T) {
	s, rec := newTypingFixture(100 * time.Millisecond)

	for i := 0; i < 10; i++ {
		s.Keystroke()
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, s.Active())
	assert.Equal(t, []bool{true}, rec.snapshot())

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.snapshot())
	assert.False(t, s.Active())
}

func TestTypingSignaler_StopClearsImmediately(t *testing.T) {
	s, rec := newTypingFixture(time.Hour)

	s.Keystroke()
	s.Stop(context.Background())
	assert.Equal(t, []bool{true, false}, rec.snapshot())

	// 沒在輸入時 Stop 不寫入
	s.Stop(context.Background())
	assert.Equal(t, []bool{true, false}, rec.snapshot())
}

func TestTypingSignaler_MissingConversationIsQuiet(t *testing.T) {
	repo := new(MockConversationRepository)
	repo.On("SetTyping", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrConversationNotFound)
	s := NewTypingSignaler(context.Background(), repo, "new@example.com", "new@example.com", time.Hour)

	s.Keystroke()
	s.Stop(context.Background())

	repo.AssertNumberOfCalls(t, "SetTyping", 2)
}

// slowTypingRepo SetTyping(true) 卡住直到 release 關閉
type slowTypingRepo struct {
	MockConversationRepository
	started chan struct{}
	release chan struct{}
	rec     typingRecorder
}

func (r *slowTypingRepo) SetTyping(_ context.Context, _, _ string, active bool) error {
	r.rec.mu.Lock()
	r.rec.values = append(r.rec.values, active)
	r.rec.mu.Unlock()
	if active {
		close(r.started)
		<-r.release
	}
	return nil
}

func TestTypingSignaler_SlowTrueWriteStaysOrdered(t *testing.T) {
	repo := &slowTypingRepo{started: make(chan struct{}), release: make(chan struct{})}
	s := NewTypingSignaler(context.Background(), repo, "guest@example.com", visitor.ID, 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Keystroke()
	}()
	<-repo.started

	// 安靜期已過, false 必須等 true 寫完
	time.Sleep(100 * time.Millisecond)
	assert.False(t, s.Active())
	assert.Equal(t, []bool{true}, repo.rec.snapshot())

	close(repo.release)
	<-done
	assert.Eventually(t, func() bool {
		return len(repo.rec.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{true, false}, repo.rec.snapshot())
}
