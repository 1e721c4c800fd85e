package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-rentnotice/internal/logging"
)

// DefaultRecordTimeout bounds one background write.
const DefaultRecordTimeout = 5 * time.Second

// NonBlocking records events in background goroutines detached from the
// request context. Failures are logged and dropped.
type NonBlocking struct {
	next    Recorder
	logger  logrus.FieldLogger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewNonBlocking wraps next. A nil logger discards failure logs.
func NewNonBlocking(next Recorder, logger logrus.FieldLogger) *NonBlocking {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NonBlocking{next: next, logger: logger, timeout: DefaultRecordTimeout}
}

// RecordGenerate schedules e and returns immediately.
func (n *NonBlocking) RecordGenerate(_ context.Context, e GenerateEvent) error {
	n.spawn("generate", func(ctx context.Context) error { return n.next.RecordGenerate(ctx, e) })
	return nil
}

// RecordDownload schedules e and returns immediately.
func (n *NonBlocking) RecordDownload(_ context.Context, e DownloadEvent) error {
	n.spawn("download", func(ctx context.Context) error { return n.next.RecordDownload(ctx, e) })
	return nil
}

// spawn drops the event once Close has started, so Add never races Wait.
func (n *NonBlocking) spawn(kind string, write func(context.Context) error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.WithField("event", kind).Debug("recorder closed, event dropped")
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := write(ctx); err != nil {
			n.logger.WithError(err).WithField("event", kind).Warn("event not recorded")
		}
	}()
}

// Close waits for pending writes, then closes the wrapped recorder.
// Events recorded after Close are dropped.
func (n *NonBlocking) Close() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	n.wg.Wait()
	return n.next.Close()
}

var _ Recorder = (*NonBlocking)(nil)
