// Package dispatch executes interpreted voice commands: it selects an
// execution strategy, consults the result cache, resolves a handler, applies
// the Swiss business rules and invokes the host callbacks, feeding every
// outcome into metrics and the command history.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/pkg/types"
)

// ExecutionSink receives the outcome of every executed command. The learning
// tracker implements it; a nil sink disables metrics.
type ExecutionSink interface {
	RecordExecution(intent types.IntentName, success bool, latency time.Duration, code types.ErrorCode)
}

// Observer is notified after a command completes. Observers run on the
// executing goroutine and must return quickly.
type Observer func(cmd *types.Command, res *types.Result)

// batchableIntents is the static allow-list of intents executed through the
// batch strategy by default. It ships empty: batching is opt-in through an
// explicit strategy on the command.
var batchableIntents = map[types.IntentName]bool{}

// Dispatcher runs commands to completion within one scheduling turn. All
// shared state (queue, cache, transactions, batch buffer, history) is
// guarded internally; callers may dispatch from multiple goroutines.
type Dispatcher struct {
	cfg       config.DispatchConfig
	validator *BusinessValidator
	cache     *ResultCache
	queue     *CommandQueue
	txm       *TransactionManager
	runner    *CallbackRunner
	callbacks types.Callbacks

	mu        sync.Mutex
	batch     []*queuedCommand
	scheduled []*queuedCommand
	history   map[string]*types.Command
	observers []Observer

	sink ExecutionSink
}

// New creates a dispatcher wired to the host callbacks.
func New(cfg config.DispatchConfig, business config.BusinessConfig, callbacks types.Callbacks) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		validator: NewBusinessValidator(business),
		cache:     NewResultCache(cfg.CacheSize, cfg.CacheTTL),
		queue:     NewCommandQueue(cfg.QueueSize),
		txm:       NewTransactionManager(cfg.TransactionTTL),
		runner:    NewCallbackRunner(),
		callbacks: callbacks,
		history:   make(map[string]*types.Command),
	}
}

// SetSink installs the metrics sink. Pass nil to disable.
func (d *Dispatcher) SetSink(sink ExecutionSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

// Observe registers an observer for completed commands.
func (d *Dispatcher) Observe(obs Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, obs)
}

// Dispatch runs one command according to its strategy. Immediate commands
// return their final result; queued, batched and scheduled commands return
// an acknowledgement carrying the buffer position.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = dctx.Clock()
	}
	if cmd.SessionID == "" {
		cmd.SessionID = dctx.SessionID
	}
	// Priority follows from the intent, never from the caller.
	cmd.Priority = types.PriorityOf(cmd.Intent.Name)

	switch d.chooseStrategy(cmd, dctx.Clock()) {
	case types.StrategyQueued:
		pos, ok := d.queue.Enqueue(cmd, dctx)
		if !ok {
			return types.Fail(string(cmd.Intent.Name), types.ErrExecution, "command queue is full")
		}
		res := types.OK(string(cmd.Intent.Name), fmt.Sprintf("queued at position %d", pos))
		res.Queued = true
		res.QueuePosition = pos
		return res

	case types.StrategyBatch:
		return d.enqueueBatch(ctx, cmd, dctx)

	case types.StrategyScheduled:
		d.mu.Lock()
		d.scheduled = append(d.scheduled, &queuedCommand{cmd: cmd, dctx: dctx})
		pos := len(d.scheduled)
		d.mu.Unlock()
		res := types.OK(string(cmd.Intent.Name),
			fmt.Sprintf("scheduled for %s", cmd.NotBefore.Format(time.RFC3339)))
		res.Queued = true
		res.QueuePosition = pos
		return res

	default:
		return d.execute(ctx, cmd, dctx)
	}
}

// chooseStrategy resolves the effective strategy. CRITICAL and HIGH commands
// always run immediately regardless of what the caller asked for.
func (d *Dispatcher) chooseStrategy(cmd *types.Command, now time.Time) types.Strategy {
	if cmd.Priority <= types.PriorityHigh {
		return types.StrategyImmediate
	}
	switch cmd.Strategy {
	case types.StrategyQueued, types.StrategyBatch:
		return cmd.Strategy
	case types.StrategyScheduled:
		if cmd.NotBefore.After(now) {
			return types.StrategyScheduled
		}
		return types.StrategyImmediate
	}
	if !cmd.NotBefore.IsZero() && cmd.NotBefore.After(now) {
		return types.StrategyScheduled
	}
	if batchableIntents[cmd.Intent.Name] {
		return types.StrategyBatch
	}
	return types.StrategyImmediate
}

// execute is the immediate path: cache check, handler execution with retries,
// cache write-back, history, metrics and observer notification.
func (d *Dispatcher) execute(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	start := time.Now()

	if Cacheable(cmd.Intent.Name) {
		if res := d.cache.Get(cmd); res != nil {
			res.ExecutionTime = time.Since(start)
			d.finish(cmd, res)
			return res
		}
	}

	handler := d.resolveHandler(cmd.Intent.Name)
	var res *types.Result
	if handler == nil {
		res = types.Fail(string(cmd.Intent.Name), types.ErrExecution,
			fmt.Sprintf("no handler for intent %q", cmd.Intent.Name))
	} else {
		res = d.runWithRetry(ctx, handler, cmd, dctx)
	}
	res.ExecutionTime = time.Since(start)

	if res.Success {
		d.cache.Put(cmd, res)
		if isMutating(cmd.Intent.Name) {
			d.cache.InvalidateSession(cmd.SessionID)
		}
		d.recordHistory(cmd)
	}
	d.finish(cmd, res)
	return res
}

// runWithRetry executes the handler within the priority timeout, retrying
// retryable failures up to the priority's retry budget. Panics inside a
// handler are converted to EXECUTION_ERROR at this boundary.
func (d *Dispatcher) runWithRetry(ctx context.Context, handler handlerFunc, cmd *types.Command, dctx types.DomainContext) *types.Result {
	attempts := cmd.Priority.MaxRetries() + 1

	var res *types.Result
	for attempt := 0; attempt < attempts; attempt++ {
		res = d.runOnce(ctx, handler, cmd, dctx)
		if res.Success || !res.Retryable {
			return res
		}
		log.Printf("WARNING: command %s attempt %d/%d failed with %s, retrying",
			cmd.ID, attempt+1, attempts, res.Code)
	}
	return res
}

// runOnce executes the handler once, recovering panics.
func (d *Dispatcher) runOnce(ctx context.Context, handler handlerFunc, cmd *types.Command, dctx types.DomainContext) (res *types.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: handler panic for command %s: %v", cmd.ID, r)
			res = types.Fail(string(cmd.Intent.Name), types.ErrExecution,
				fmt.Sprintf("handler panic: %v", r))
		}
	}()
	return handler(ctx, cmd, dctx)
}

// isMutating reports whether a successful execution of the intent changes
// cart or order state and must invalidate cached inquiries.
func isMutating(name types.IntentName) bool {
	switch types.CategoryOf(name) {
	case types.CategoryOrder, types.CategoryCheckout:
		return true
	default:
		return false
	}
}

// finish feeds metrics and observers after a command completes.
func (d *Dispatcher) finish(cmd *types.Command, res *types.Result) {
	d.mu.Lock()
	sink := d.sink
	observers := append([]Observer(nil), d.observers...)
	d.mu.Unlock()

	if sink != nil {
		sink.RecordExecution(cmd.Intent.Name, res.Success, res.ExecutionTime, res.Code)
	}
	for _, obs := range observers {
		obs(cmd, res)
	}
}

// recordHistory stores the session's last repeatable command. Control-class
// commands are not repeatable.
func (d *Dispatcher) recordHistory(cmd *types.Command) {
	if types.CategoryOf(cmd.Intent.Name) == types.CategoryControl {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *cmd
	d.history[cmd.SessionID] = &cp
}

// lastCommand returns the session's last repeatable command, or nil.
func (d *Dispatcher) lastCommand(sessionID string) *types.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history[sessionID]
}

// enqueueBatch buffers the command. Reaching the batch size flushes the whole
// buffer synchronously and returns this command's own result; otherwise the
// caller gets an acknowledgement with its buffer position.
func (d *Dispatcher) enqueueBatch(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	d.mu.Lock()
	d.batch = append(d.batch, &queuedCommand{cmd: cmd, dctx: dctx})
	pos := len(d.batch)
	full := pos >= d.cfg.BatchSize
	d.mu.Unlock()

	if !full {
		res := types.OK(string(cmd.Intent.Name), fmt.Sprintf("batched at position %d", pos))
		res.Queued = true
		res.QueuePosition = pos
		return res
	}

	results := d.FlushBatch(ctx)
	for i, r := range results {
		if i == pos-1 {
			return r
		}
	}
	return types.Fail(string(cmd.Intent.Name), types.ErrExecution, "batch flush lost the command")
}

// FlushBatch executes every buffered command in arrival order and returns
// their results. Safe to call with an empty buffer.
func (d *Dispatcher) FlushBatch(ctx context.Context) []*types.Result {
	d.mu.Lock()
	pending := d.batch
	d.batch = nil
	d.mu.Unlock()

	results := make([]*types.Result, 0, len(pending))
	for _, item := range pending {
		results = append(results, d.execute(ctx, item.cmd, item.dctx))
	}
	return results
}

// dropBatched removes the session's buffered batch commands.
func (d *Dispatcher) dropBatched(sessionID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.batch[:0]
	dropped := 0
	for _, item := range d.batch {
		if item.cmd.SessionID == sessionID {
			dropped++
		} else {
			kept = append(kept, item)
		}
	}
	d.batch = kept
	return dropped
}

// DrainOne executes the highest-priority queued command, if any. Driven by
// the engine's drain tick, one command per tick.
func (d *Dispatcher) DrainOne(ctx context.Context) (*types.Result, bool) {
	cmd, dctx, ok := d.queue.Dequeue()
	if !ok {
		return nil, false
	}
	return d.execute(ctx, cmd, dctx), true
}

// DrainScheduled executes every scheduled command whose NotBefore has passed.
func (d *Dispatcher) DrainScheduled(ctx context.Context, now time.Time) int {
	d.mu.Lock()
	var due []*queuedCommand
	kept := d.scheduled[:0]
	for _, item := range d.scheduled {
		if item.cmd.NotBefore.After(now) {
			kept = append(kept, item)
		} else {
			due = append(due, item)
		}
	}
	d.scheduled = kept
	d.mu.Unlock()

	for _, item := range due {
		d.execute(ctx, item.cmd, item.dctx)
	}
	return len(due)
}

// Sweep purges expired transactions. Cache entries expire through the LRU's
// own TTL. Returns the number of purged transactions.
func (d *Dispatcher) Sweep(now time.Time) int {
	purged := d.txm.Sweep(now)
	if purged > 0 {
		log.Printf("dispatch: purged %d expired transactions", purged)
	}
	return purged
}

// QueueDepth returns the current queued-command count.
func (d *Dispatcher) QueueDepth() int {
	return d.queue.Len()
}

// MonitorQueue logs a warning when the queue depth crosses the configured
// threshold. Driven by the engine's monitor tick.
func (d *Dispatcher) MonitorQueue() {
	if depth := d.queue.Len(); depth >= d.cfg.QueueWarnSize {
		log.Printf("WARNING: command queue depth %d exceeds threshold %d", depth, d.cfg.QueueWarnSize)
	}
}

// CallbackState exposes the circuit breaker state for diagnostics.
func (d *Dispatcher) CallbackState() string {
	return d.runner.State()
}

// PendingTransaction returns the session's live pending transaction, or nil.
func (d *Dispatcher) PendingTransaction(sessionID string, now time.Time) *types.Transaction {
	return d.txm.Pending(sessionID, now)
}
