// Package coordinator is the exchange's central orchestrator: it is the
// only component that touches the Balance Store, Order Store, Order Book,
// and Event Sink together, and the only place a submit/cancel/deposit/
// withdraw request runs start to finish. Submit, Cancel, Deposit and
// Withdraw dispatch their work onto a bounded pool of tomb-supervised
// workers, adapted from the connection worker-pool idiom used elsewhere in
// this codebase so that each request runs to completion on a single
// goroutine. The read-only queries and RebuildBooks run directly on the
// caller's goroutine.
package coordinator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/eventsink"
	"fenrir/internal/matching"
	"fenrir/internal/risk"
	"fenrir/internal/storage"
)

const defaultTaskQueueSize = 256

// Coordinator is the C9 collaborator.
type Coordinator struct {
	balances *storage.Balances
	orders   *storage.Orders
	trades   *storage.Trades
	deposits *storage.Deposits
	books    *matching.Manager
	risk     *risk.Validator
	sink     eventsink.Sink

	allowSelfMatch bool

	tasks chan task
	t     *tomb.Tomb
}

type task struct {
	run    func(ctx context.Context) (any, error)
	result chan taskResult
}

type taskResult struct {
	value any
	err   error
}

// New builds a Coordinator. Call Start before submitting any request.
func New(balances *storage.Balances, orders *storage.Orders, trades *storage.Trades,
	deposits *storage.Deposits, books *matching.Manager, validator *risk.Validator,
	sink eventsink.Sink, allowSelfMatch bool) *Coordinator {
	return &Coordinator{
		balances:       balances,
		orders:         orders,
		trades:         trades,
		deposits:       deposits,
		books:          books,
		risk:           validator,
		sink:           sink,
		allowSelfMatch: allowSelfMatch,
		tasks:          make(chan task, defaultTaskQueueSize),
	}
}

// Start launches workerCount workers under ctx, each pulling tasks off the
// shared queue and running them to completion one at a time.
func (c *Coordinator) Start(ctx context.Context, workerCount int) {
	t, ctx := tomb.WithContext(ctx)
	c.t = t
	for i := 0; i < workerCount; i++ {
		t.Go(func() error {
			return c.worker(ctx)
		})
	}
	log.Info().Int("workers", workerCount).Msg("coordinator started")
}

// Stop signals all workers to exit and waits for them.
func (c *Coordinator) Stop() {
	if c.t == nil {
		return
	}
	c.t.Kill(nil)
	_ = c.t.Wait()
}

func (c *Coordinator) worker(ctx context.Context) error {
	for {
		select {
		case <-c.t.Dying():
			return nil
		case tk := <-c.tasks:
			value, err := tk.run(ctx)
			tk.result <- taskResult{value: value, err: err}
		}
	}
}

// dispatch enqueues fn and blocks until a worker has run it to completion,
// or ctx is cancelled first.
func (c *Coordinator) dispatch(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if c.t == nil {
		return nil, fmt.Errorf("coordinator not started")
	}
	tk := task{run: fn, result: make(chan taskResult, 1)}
	select {
	case c.tasks <- tk:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.t.Dying():
		return nil, fmt.Errorf("coordinator shutting down")
	}
	select {
	case res := <-tk.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
