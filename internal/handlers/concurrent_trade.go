package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/atharvakonge/papertrade/internal/ledger"
	"go.uber.org/zap"
)

var ErrProcessorStopped = errors.New("order processor stopped")

// OrderExecutor executes a single order.
type OrderExecutor interface {
	Execute(ctx context.Context, o ledger.Order) (ledger.Receipt, error)
}

// OrderResult is the outcome of one queued order
type OrderResult struct {
	Receipt ledger.Receipt
	Err     error
}

// orderRequest represents an order waiting for a worker
type orderRequest struct {
	ctx      context.Context
	order    ledger.Order
	resultCh chan OrderResult // Channel to send result back
}

// OrderProcessor drains queued orders with a fixed pool of workers.
type OrderProcessor struct {
	workers    int
	orderQueue chan orderRequest
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	executor   OrderExecutor
}

// NewOrderProcessor creates a new order processor with worker pool
func NewOrderProcessor(workers int, executor OrderExecutor) *OrderProcessor {
	return &OrderProcessor{
		workers:    workers,
		orderQueue: make(chan orderRequest, 100), // Buffer of 100 orders
		stopCh:     make(chan struct{}),
		executor:   executor,
	}
}

// Start starts the worker pool
func (p *OrderProcessor) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	zap.L().Info("order workers started", zap.Int("workers", p.workers))
}

// Stop gracefully stops all workers. Orders still queued are abandoned and
// their callers see ErrProcessorStopped.
func (p *OrderProcessor) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	zap.L().Info("order processor stopped")
}

// worker processes orders from the queue
func (p *OrderProcessor) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			zap.L().Debug("order worker stopping", zap.Int("worker", id))
			return

		case req := <-p.orderQueue:
			zap.L().Debug("order worker processing",
				zap.Int("worker", id),
				zap.Int64("user_id", req.order.UserID),
				zap.Int64("stock_id", req.order.StockID),
				zap.String("side", string(req.order.Side)),
				zap.Int64("quantity", req.order.Quantity),
			)

			receipt, err := p.executor.Execute(req.ctx, req.order)
			req.resultCh <- OrderResult{Receipt: receipt, Err: err}
		}
	}
}

// SubmitOrder queues an order and blocks until a worker has executed it or
// ctx is done.
func (p *OrderProcessor) SubmitOrder(ctx context.Context, o ledger.Order) (ledger.Receipt, error) {
	// buffered so a worker never blocks on a caller that gave up
	resultCh := make(chan OrderResult, 1)

	select {
	case <-p.stopCh:
		return ledger.Receipt{}, ErrProcessorStopped
	default:
	}

	select {
	case p.orderQueue <- orderRequest{ctx: ctx, order: o, resultCh: resultCh}:
	case <-p.stopCh:
		return ledger.Receipt{}, ErrProcessorStopped
	case <-ctx.Done():
		return ledger.Receipt{}, ctx.Err()
	}

	select {
	case result := <-resultCh:
		return result.Receipt, result.Err
	case <-p.stopCh:
		// an order already picked up still completes
		p.wg.Wait()
		select {
		case result := <-resultCh:
			return result.Receipt, result.Err
		default:
			return ledger.Receipt{}, ErrProcessorStopped
		}
	case <-ctx.Done():
		return ledger.Receipt{}, ctx.Err()
	}
}
