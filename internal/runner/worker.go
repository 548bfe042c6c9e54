package runner

import (
	"fmt"
	"time"

	"jmdev.ca/glade-room-bot/internal/events"
	"jmdev.ca/glade-room-bot/internal/workqueue"
)

// worker pulls one item at a time from the shared queue and drives it through
// the executor. Its loop is: dequeue with a short timeout; on empty, re-check
// the run's liveness flag; on a sentinel, mark it done and exit; on a real
// item, execute and report. A worker signaled to stop still finishes the item
// it is holding.
type worker struct {
	id            int
	runner        *Runner
	executor      Executor
	room          int
	registerFirst bool
}

func (w *worker) run() {
	defer w.runner.workerWG.Done()

	for {
		item, ok := w.runner.queue.TryPop(w.runner.popTimeout)
		if !ok {
			if !w.runner.running.Load() {
				return
			}
			continue
		}

		if item.Stop {
			w.runner.queue.Done()
			return
		}

		w.process(item)
	}
}

// process executes a single account attempt. The queue item is always marked
// done, even if the executor panics, so the batch can never deadlock on a
// misbehaving workflow.
func (w *worker) process(item workqueue.Item) {
	r := w.runner
	defer r.queue.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.status(fmt.Sprintf("[worker %d] Error processing %s: %v", w.id, item.Account.Email, rec))
		}
	}()

	account := item.Account
	r.status(fmt.Sprintf("[worker %d] Processing %s (%d/%d)...", w.id, account.Email, item.Index+1, item.Total))

	err := w.executor.Execute(account, w.room, w.registerFirst)
	if err == nil {
		// Status and timestamp mutate only on success; a failed account
		// stays eligible for a later run.
		account.MarkPlayed(w.room, time.Now())
		r.status(fmt.Sprintf("[worker %d] Success: %s", w.id, account.Email))
	} else {
		r.status(fmt.Sprintf("[worker %d] Failed: %s: %v", w.id, account.Email, err))
	}
	r.publish(events.NewAccountProcessedEvent(account.Email, w.room, w.id, err == nil))

	r.reportProgress(item.Index+1, item.Total)
	r.reportProcessed(account.Clone())
}
