package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// DispatcherConfig sizes the intent dispatcher.
type DispatcherConfig struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

type publishJob struct {
	boardID string
	cmds    []domain.Command
}

// IntentDispatcher hands applied intents to a pool of workers that publish them, so board
// mutations do not wait on the queue. When the buffer stays full past the handoff timeout
// the intents are published inline instead.
type IntentDispatcher struct {
	pub Publisher
	log *log.Logger
	cfg DispatcherConfig

	startOnce sync.Once
	stopOnce  sync.Once
	jobs      chan publishJob
	wg        sync.WaitGroup
}

func NewIntentDispatcher(pub Publisher, cfg DispatcherConfig, logger *log.Logger) *IntentDispatcher {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &IntentDispatcher{pub: pub, log: logger, cfg: cfg}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *IntentDispatcher) Start() {
	d.startOnce.Do(func() {
		d.jobs = make(chan publishJob, d.cfg.Buffer)
		for i := 0; i < d.cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker(i, d.jobs)
		}
		d.log.Infof("intent dispatcher started, workers: %d, buffer: %d, timeout: %v, handoff: %v",
			d.cfg.Workers, d.cfg.Buffer, d.cfg.Timeout, d.cfg.HandoffTimeout)
	})
}

// Shutdown stops accepting jobs and waits for queued ones to be published or for ctx to
// expire.
func (d *IntentDispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() {
		if d.jobs != nil {
			close(d.jobs)
		}
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish implements board.IntentSink.
func (d *IntentDispatcher) Publish(ctx context.Context, boardID string, cmds []domain.Command) error {
	if len(cmds) == 0 {
		return nil
	}
	job := publishJob{boardID: boardID, cmds: append([]domain.Command(nil), cmds...)}
	if d.tryEnqueue(job) {
		return nil
	}
	d.log.WithField("board", boardID).Warn("intent buffer saturated; publishing inline")

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Timeout)
	defer cancel()
	return d.pub.PublishIntents(pctx, boardID, job.cmds)
}

func (d *IntentDispatcher) worker(id int, jobs <-chan publishJob) {
	defer d.wg.Done()
	for j := range jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		err := d.pub.PublishIntents(ctx, j.boardID, j.cmds)
		cancel()
		if err != nil {
			d.log.WithError(err).WithFields(log.Fields{
				"board":  j.boardID,
				"count":  len(j.cmds),
				"worker": id,
			}).Error("publish intents failed")
		}
	}
}

func (d *IntentDispatcher) tryEnqueue(job publishJob) bool {
	if d.jobs == nil {
		return false
	}
	if ok, closed := trySendNonBlocking(d.jobs, job); closed {
		return false
	} else if ok {
		return true
	}
	if d.cfg.HandoffTimeout <= 0 {
		return false
	}
	timer := time.NewTimer(d.cfg.HandoffTimeout)
	defer timer.Stop()
	ok, closed := sendWithTimer(d.jobs, job, timer.C)
	return ok && !closed
}

func trySendNonBlocking(ch chan publishJob, job publishJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()
	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan publishJob, job publishJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()
	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}
