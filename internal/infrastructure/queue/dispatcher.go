package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumiereluxe/site-backend/internal/api/metrics"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
)

const (
	defaultWorkers = 2
	channelBuffer  = 64
	drainTimeout   = 10 * time.Second
)

// ErrQueueFull is returned when the worker owning a mail has no room left.
var ErrQueueFull = errors.New("mail queue full")

// MailDispatcher is the reset-mail outbox. Enqueueing never blocks, so the
// forgot-password handler answers in the same time whether or not a mail was
// produced. Mails are sharded by username, keeping one admin's mails ordered.
type MailDispatcher struct {
	workers []chan ports.ResetMail
	mailer  ports.ResetMailer
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewMailDispatcher creates a MailDispatcher with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, mailer ports.ResetMailer, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		workers: make([]chan ports.ResetMail, numWorkers),
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ResetMail, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// delivers what is already queued and returns.
func (d *MailDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *MailDispatcher) Wait() {
	d.wg.Wait()
}

// SendReset queues mail for delivery. It satisfies ports.ResetMailer.
func (d *MailDispatcher) SendReset(_ context.Context, mail ports.ResetMail) error {
	idx := d.shardIndex(mail.Username)
	select {
	case d.workers[idx] <- mail:
		metrics.ResetMailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.ResetMailsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// shardIndex maps a username deterministically to a worker index.
func (d *MailDispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *MailDispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ResetMail) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case mail := <-ch:
			d.deliver(ctx, id, len(ch), mail)
		}
	}
}

// drain delivers what is still queued once the worker is told to stop,
// giving up after drainTimeout.
func (d *MailDispatcher) drain(id int, ch <-chan ports.ResetMail) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case mail := <-ch:
			if ctx.Err() != nil {
				metrics.ResetMailsTotal.WithLabelValues("dropped").Inc()
				d.log.Warn().Str("username", mail.Username).Int("worker_id", id).Msg("reset mail dropped on shutdown")
				continue
			}
			d.deliver(ctx, id, len(ch), mail)
		default:
			return
		}
	}
}

func (d *MailDispatcher) deliver(ctx context.Context, id, pending int, mail ports.ResetMail) {
	metrics.ResetMailQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(pending))
	if err := d.mailer.SendReset(ctx, mail); err != nil {
		metrics.ResetMailsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("username", mail.Username).
			Int("worker_id", id).
			Msg("reset mail delivery failed")
		return
	}
	metrics.ResetMailsTotal.WithLabelValues("sent").Inc()
}
