package otpgate

import (
	"context"
	"sync"
	"sync/atomic"
)

type notifyJob struct {
	email string
	code  string
}

// notifyDispatcher forwards codes to the configured Notifier from a worker
// goroutine. Delivery is at-least-once on the collaborator's side and
// fire-and-forget on ours: failures are reported through onResult (the engine
// logs and counts them) and never reach the challenge flow.
type notifyDispatcher struct {
	cfg      NotifyConfig
	notifier Notifier
	onResult func(email string, err error)

	ch        chan notifyJob
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newNotifyDispatcher(cfg NotifyConfig, notifier Notifier, onResult func(email string, err error)) *notifyDispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if notifier == nil {
		notifier = NoOpNotifier{}
	}
	if onResult == nil {
		onResult = func(string, error) {}
	}

	d := &notifyDispatcher{
		cfg:      cfg,
		notifier: notifier,
		onResult: onResult,
		ch:       make(chan notifyJob, cfg.BufferSize),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *notifyDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.ch:
			d.deliver(job)
		case <-d.done:
			for {
				select {
				case job := <-d.ch:
					d.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (d *notifyDispatcher) deliver(job notifyJob) {
	err := d.notifier.Notify(context.Background(), job.email, job.code)
	d.onResult(job.email, err)
}

// Dispatch enqueues a delivery. When DropIfFull is set a full buffer drops the
// job and bumps the dropped counter instead of blocking the request path. Any
// job discarded for another reason (shutdown, caller context expiry) is
// counted as dropped too, so delivered + dropped always accounts for every
// dispatch.
func (d *notifyDispatcher) Dispatch(ctx context.Context, email, code string) {
	if d == nil {
		return
	}
	if d.closed.Load() {
		d.dropped.Add(1)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	job := notifyJob{email: email, code: code}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- job:
			d.flushIfClosing()
		case <-d.done:
			d.dropped.Add(1)
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- job:
		d.flushIfClosing()
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
		d.dropped.Add(1)
	}
}

// flushIfClosing finishes delivery of anything still buffered once Close has
// begun. A Dispatch racing Close can land its job in the buffer after the
// worker's final drain already gave up on an empty channel; the enqueuer then
// observes closed and delivers the leftovers itself instead of losing them.
func (d *notifyDispatcher) flushIfClosing() {
	if !d.closed.Load() {
		return
	}
	for {
		select {
		case job := <-d.ch:
			d.deliver(job)
		default:
			return
		}
	}
}

// Close drains the buffer and stops the worker.
func (d *notifyDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports deliveries discarded instead of handed to the Notifier,
// whether due to a full buffer, shutdown, or context expiry.
func (d *notifyDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
