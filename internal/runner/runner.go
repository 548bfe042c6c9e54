// Package runner coordinates one batch run: it seeds a shared work queue
// from the readiness-filtered account list, fans the work out across a
// bounded pool of workers, and reports per-account results as they land.
// Cancellation is cooperative: a stop request discards queued work but lets
// in-flight accounts finish.
package runner

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"jmdev.ca/glade-room-bot/internal/config"
	"jmdev.ca/glade-room-bot/internal/events"
	"jmdev.ca/glade-room-bot/internal/ledger"
	"jmdev.ca/glade-room-bot/internal/logging"
	"jmdev.ca/glade-room-bot/internal/workqueue"
)

// Executor performs the network workflow for one account and one room. A nil
// error marks the attempt successful. Implementations must tolerate
// concurrent calls for different accounts; the runner never submits the same
// account twice within a run.
type Executor interface {
	Execute(account *ledger.Account, room int, registerFirst bool) error
}

// ExecutorFactory builds the executor a worker will use. Each worker gets its
// own executor so sessions are never shared across concurrent accounts.
type ExecutorFactory func(workerID int) Executor

// Callbacks receive run output. Any callback may be nil. OnAccountProcessed
// and OnProgress are serialized by the runner, so a callback does not need
// its own locking to stay consistent.
type Callbacks struct {
	OnProgress         func(current, total int)
	OnStatus           func(message string)
	OnAccountProcessed func(account *ledger.Account)
	OnFinished         func(completed bool)
}

// State is the coordinator's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateSeeding
	StateRunning
	StateStopping
	StateDraining
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeding:
		return "seeding"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Runner owns the work queue and worker pool for batch runs. A Runner may be
// reused for consecutive runs but never for overlapping ones.
type Runner struct {
	factory   ExecutorFactory
	callbacks Callbacks
	bus       *events.Bus
	logger    *logging.Logger

	popTimeout time.Duration
	exitWait   time.Duration

	mu            sync.Mutex
	state         State
	queue         *workqueue.Queue
	doneCh        chan struct{}
	room          int
	registerFirst bool

	running        atomic.Bool
	workerWG       sync.WaitGroup
	reportMu       sync.Mutex
	processedCount atomic.Int64
}

// New creates a runner with default timing.
func New(factory ExecutorFactory, callbacks Callbacks) *Runner {
	return &Runner{
		factory:    factory,
		callbacks:  callbacks,
		logger:     logging.NewLogger("runner"),
		popTimeout: time.Second,
		exitWait:   2 * time.Second,
		state:      StateIdle,
	}
}

// WithBus publishes run events to the bus in addition to callbacks.
func (r *Runner) WithBus(bus *events.Bus) *Runner {
	r.bus = bus
	return r
}

// WithPopTimeout sets how long an idle worker waits on the queue before
// re-checking the stop flag.
func (r *Runner) WithPopTimeout(d time.Duration) *Runner {
	r.popTimeout = d
	return r
}

// WithExitWait bounds how long run completion waits for workers to exit.
func (r *Runner) WithExitWait(d time.Duration) *Runner {
	r.exitWait = d
	return r
}

// State returns the coordinator's current phase.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start launches a batch run and returns immediately. The accounts slice
// must already be readiness-filtered; every entry is attempted. numThreads
// is clamped to the supported worker range.
func (r *Runner) Start(accounts []*ledger.Account, room int, registerFirst bool, numThreads int) error {
	r.mu.Lock()
	if r.state != StateIdle && r.state != StateFinished {
		r.mu.Unlock()
		return fmt.Errorf("run already in progress (state %s)", r.state)
	}

	numThreads = config.ClampThreads(numThreads)
	r.state = StateSeeding
	r.queue = workqueue.New()
	r.doneCh = make(chan struct{})
	r.room = room
	r.registerFirst = registerFirst
	r.processedCount.Store(0)
	r.mu.Unlock()

	r.running.Store(true)
	go r.run(accounts, numThreads)
	return nil
}

// Wait blocks until the current run has finished. It returns immediately if
// no run was started.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.doneCh
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Stop requests cooperative cancellation: queued accounts not yet dequeued
// are discarded unprocessed, while accounts already being executed run to
// completion and are still reported. Calling Stop more than once is a no-op.
func (r *Runner) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	r.mu.Lock()
	queue := r.queue
	r.mu.Unlock()
	if queue == nil {
		return
	}

	r.setState(StateStopping)
	r.status("Stopping processing...")

	discarded := 0
	for _, item := range queue.Drain() {
		if !item.Stop {
			discarded++
		}
	}
	if discarded > 0 {
		r.status(fmt.Sprintf("Discarded %d queued account(s)", discarded))
	}
	r.publish(events.NewRunStoppingEvent(discarded))
}

// run is the coordinator body, executed off the caller's goroutine so Start
// never blocks the front end.
func (r *Runner) run(accounts []*ledger.Account, numThreads int) {
	total := len(accounts)

	r.status(fmt.Sprintf("Starting %d worker(s)...", numThreads))
	r.publish(events.NewRunStartedEvent(r.room, numThreads, total))

	for i := 1; i <= numThreads; i++ {
		w := &worker{
			id:            i,
			runner:        r,
			executor:      r.factory(i),
			room:          r.room,
			registerFirst: r.registerFirst,
		}
		r.workerWG.Add(1)
		go w.run()
	}

	for idx, account := range accounts {
		if !r.running.Load() {
			break
		}
		r.queue.Push(workqueue.Item{Account: account, Index: idx, Total: total})
	}

	// One sentinel per worker. Each worker exits on the first sentinel it
	// consumes, so no worker can starve another of its sentinel.
	for i := 0; i < numThreads; i++ {
		r.queue.Push(workqueue.StopItem())
	}

	r.setState(StateRunning)
	r.queue.Join()

	r.setState(StateDraining)
	r.waitWorkers()

	completed := r.running.Load()
	if completed {
		r.status(fmt.Sprintf("Completed processing %d account(s) for room %d", total, r.room))
	} else {
		r.status("Processing stopped")
	}
	r.publish(events.NewRunFinishedEvent(r.room, int(r.processedCount.Load()), completed))

	r.running.Store(false)
	r.setState(StateFinished)

	if cb := r.callbacks.OnFinished; cb != nil {
		cb(completed)
	}

	r.mu.Lock()
	done := r.doneCh
	r.mu.Unlock()
	close(done)
}

// waitWorkers waits for worker goroutines to exit, bounded by exitWait so a
// wedged executor cannot hang run completion.
func (r *Runner) waitWorkers() {
	done := make(chan struct{})
	go func() {
		r.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.exitWait):
		r.logger.Warn("workers did not exit within wait window")
	}
}

func (r *Runner) setState(state State) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

func (r *Runner) status(message string) {
	r.logger.Info(message)
	if cb := r.callbacks.OnStatus; cb != nil {
		cb(message)
	}
	r.publish(events.NewRunStatusEvent(message))
}

func (r *Runner) publish(event events.Event) {
	if r.bus != nil {
		r.bus.Publish(event)
	}
}

// reportProgress emits one progress tuple. Serialized so interleaved workers
// cannot deliver progress updates concurrently to the same callback.
func (r *Runner) reportProgress(current, total int) {
	r.reportMu.Lock()
	defer r.reportMu.Unlock()

	if cb := r.callbacks.OnProgress; cb != nil {
		cb(current, total)
	}
	r.publish(events.NewRunProgressEvent(current, total))
}

// reportProcessed hands a processed-account snapshot to the persistence sink.
func (r *Runner) reportProcessed(account *ledger.Account) {
	r.reportMu.Lock()
	defer r.reportMu.Unlock()

	r.processedCount.Add(1)
	if cb := r.callbacks.OnAccountProcessed; cb != nil {
		cb(account)
	}
}
