package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []ports.ResetMail
	fail  bool
	block chan struct{}
}

func (m *recordingMailer) SendReset(_ context.Context, mail ports.ResetMail) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	if m.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestMailDispatcher_DeliversInOrderPerUser(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewMailDispatcher(4, mailer, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for _, tok := range []string{"t1", "t2", "t3"} {
		if err := d.SendReset(ctx, ports.ResetMail{Username: "admin", Token: tok}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	waitFor(t, func() bool { return mailer.count() == 3 })
	cancel()
	d.Wait()

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	for i, want := range []string{"t1", "t2", "t3"} {
		if mailer.sent[i].Token != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, mailer.sent[i].Token)
		}
	}
}

func TestMailDispatcher_FailureDoesNotStopWorker(t *testing.T) {
	mailer := &recordingMailer{fail: true}
	d := NewMailDispatcher(1, mailer, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		d.Wait()
	}()
	d.Start(ctx)

	_ = d.SendReset(ctx, ports.ResetMail{Username: "a"})
	_ = d.SendReset(ctx, ports.ResetMail{Username: "a"})
	waitFor(t, func() bool { return mailer.count() == 2 })
}

func TestMailDispatcher_FullQueueDoesNotBlock(t *testing.T) {
	mailer := &recordingMailer{block: make(chan struct{})}
	d := NewMailDispatcher(1, mailer, zerolog.Nop())

	// Not started: nothing drains the channel.
	var err error
	for i := 0; i <= channelBuffer; i++ {
		err = d.SendReset(context.Background(), ports.ResetMail{Username: "admin"})
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(mailer.block)
}

func TestMailDispatcher_ShardIndexDeterministic(t *testing.T) {
	d := NewMailDispatcher(0, &recordingMailer{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	for _, u := range []string{"admin", "bob", ""} {
		a, b := d.shardIndex(u), d.shardIndex(u)
		if a != b || a < 0 || a >= len(d.workers) {
			t.Fatalf("shard for %q unstable or out of range: %d %d", u, a, b)
		}
	}
}

func TestMailDispatcher_DrainsQueueOnShutdown(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewMailDispatcher(1, mailer, zerolog.Nop())

	for _, tok := range []string{"t1", "t2", "t3"} {
		if err := d.SendReset(context.Background(), ports.ResetMail{Username: "admin", Token: tok}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	if got := mailer.count(); got != 3 {
		t.Fatalf("expected 3 mails delivered on shutdown, got %d", got)
	}
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	for i, want := range []string{"t1", "t2", "t3"} {
		if mailer.sent[i].Token != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, mailer.sent[i].Token)
		}
	}
}
