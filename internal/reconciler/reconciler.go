// Package reconciler implements OrderReconciler (spec §4.4): the resting
// order map keyed by (match, ticker, side), per-key serialization, the
// overbid-cancel hysteresis, and the emergency-cancel shutdown pass.
// Grounded on the teacher's internal/execution/executor.go for the
// gateway-call/metrics/logging shape, generalized from one-shot batch
// execution into a continuously-reconciled resting-order state machine,
// and on internal/circuitbreaker/breaker.go for the atomic-gated,
// mutex-protected state pattern used for the overbid hysteresis clock.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap"
)

// Gateway is the subset of ExchangeGateway the reconciler drives.
type Gateway interface {
	PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.PlaceOrderResponse, error)
	CancelOrder(ctx context.Context, orderID string) error
	ListRestingOrders(ctx context.Context) ([]types.ExchangeOrder, error)
}

// Breaker receives every gateway call's outcome so it can trip order
// placement off when the transient-error rate gets too high.
type Breaker interface {
	RecordResult(err error)
	IsEnabled() bool
}

// TargetKind is the three-way reconciliation outcome from QuotingCore's
// per-leg AdaptivePricer evaluation.
type TargetKind int

const (
	TargetGated TargetKind = iota
	TargetBackOff
	TargetPrice
)

// Target is one (key, target) reconciliation request (spec §4.3 step 5).
type Target struct {
	Kind      TargetKind
	Price     int
	Size      int
	ExpiresAt time.Time
}

// queuedTarget is one pending Reconcile call waiting for its key's drain
// goroutine to pick it up.
type queuedTarget struct {
	ctx    context.Context
	target Target
}

type keyState struct {
	mu           sync.Mutex
	resting      *types.RestingOrder
	overbidSince *time.Time

	queueMu sync.Mutex
	queue   []queuedTarget
	running bool
}

// Config configures a Reconciler.
type Config struct {
	Gateway            Gateway
	Breaker            Breaker
	Logger             *zap.Logger
	OverbidCancelDelay time.Duration
	MaxConcurrency     int
}

// Reconciler is the process-wide OrderReconciler.
type Reconciler struct {
	gateway Gateway
	breaker Breaker
	logger  *zap.Logger

	delayMu            sync.RWMutex
	overbidCancelDelay time.Duration

	mu   sync.Mutex
	keys map[types.OrderKey]*keyState
	sem  chan struct{}
	wg   sync.WaitGroup
}

// New creates a Reconciler.
func New(cfg *Config) *Reconciler {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	return &Reconciler{
		gateway:            cfg.Gateway,
		breaker:            cfg.Breaker,
		logger:             cfg.Logger,
		overbidCancelDelay: cfg.OverbidCancelDelay,
		keys:               make(map[types.OrderKey]*keyState),
		sem:                make(chan struct{}, maxConcurrency),
	}
}

// SetOverbidCancelDelay updates how long a leg must stay overbid before
// its resting order is cancelled (operator "POST /api/settings", spec
// §6). Takes effect on the next TargetBackOff evaluation.
func (r *Reconciler) SetOverbidCancelDelay(d time.Duration) {
	r.delayMu.Lock()
	r.overbidCancelDelay = d
	r.delayMu.Unlock()
}

func (r *Reconciler) getOverbidCancelDelay() time.Duration {
	r.delayMu.RLock()
	defer r.delayMu.RUnlock()
	return r.overbidCancelDelay
}

func (r *Reconciler) stateFor(key types.OrderKey) *keyState {
	r.mu.Lock()
	defer r.mu.Unlock()

	ks, ok := r.keys[key]
	if !ok {
		ks = &keyState{}
		r.keys[key] = ks
	}
	return ks
}

// Reconcile enqueues one (key, target) request onto its key's drain queue.
// Each key has at most one drain goroutine, which applies queued requests
// strictly in arrival order (spec §5); requests for distinct keys run
// concurrently up to MaxConcurrency via the shared semaphore.
func (r *Reconciler) Reconcile(ctx context.Context, key types.OrderKey, target Target) {
	ks := r.stateFor(key)

	ks.queueMu.Lock()
	ks.queue = append(ks.queue, queuedTarget{ctx: ctx, target: target})
	if ks.running {
		ks.queueMu.Unlock()
		return
	}
	ks.running = true
	ks.queueMu.Unlock()

	r.wg.Add(1)
	go r.drain(key, ks)
}

// drain applies a key's queued requests one at a time, in the order they
// arrived, until the queue runs dry.
func (r *Reconciler) drain(key types.OrderKey, ks *keyState) {
	defer r.wg.Done()

	for {
		ks.queueMu.Lock()
		if len(ks.queue) == 0 {
			ks.running = false
			ks.queueMu.Unlock()
			return
		}
		qt := ks.queue[0]
		ks.queue = ks.queue[1:]
		ks.queueMu.Unlock()

		select {
		case r.sem <- struct{}{}:
		case <-qt.ctx.Done():
			continue
		}

		ks.mu.Lock()
		start := time.Now()
		r.apply(qt.ctx, key, ks, qt.target)
		reconcileDurationSeconds.Observe(time.Since(start).Seconds())
		ks.mu.Unlock()

		<-r.sem
	}
}

func (r *Reconciler) apply(ctx context.Context, key types.OrderKey, ks *keyState, target Target) {
	switch target.Kind {
	case TargetGated:
		ks.overbidSince = nil
		if ks.resting == nil {
			reconcileActionsTotal.WithLabelValues("gated_noop").Inc()
			return
		}
		r.cancel(ctx, key, ks)
		reconcileActionsTotal.WithLabelValues("gated_cancel").Inc()

	case TargetBackOff:
		if ks.resting == nil {
			reconcileActionsTotal.WithLabelValues("backoff_noop").Inc()
			return
		}
		if ks.overbidSince == nil {
			now := time.Now()
			ks.overbidSince = &now
			reconcileActionsTotal.WithLabelValues("backoff_started").Inc()
			return
		}
		if time.Since(*ks.overbidSince) >= r.getOverbidCancelDelay() {
			r.cancel(ctx, key, ks)
			ks.overbidSince = nil
			reconcileActionsTotal.WithLabelValues("backoff_cancel").Inc()
			return
		}
		reconcileActionsTotal.WithLabelValues("backoff_hold").Inc()

	case TargetPrice:
		ks.overbidSince = nil
		if ks.resting != nil && ks.resting.Price == target.Price && ks.resting.Size == target.Size {
			reconcileActionsTotal.WithLabelValues("price_noop").Inc()
			return
		}
		if ks.resting != nil {
			r.cancel(ctx, key, ks)
		}
		if r.breaker != nil && !r.breaker.IsEnabled() {
			reconcileActionsTotal.WithLabelValues("price_breaker_gated").Inc()
			return
		}
		r.place(ctx, key, ks, target)
	}
}

func (r *Reconciler) place(ctx context.Context, key types.OrderKey, ks *keyState, target Target) {
	req := types.PlaceOrderRequest{
		Ticker:        key.Ticker,
		Action:        "buy",
		Side:          string(key.Side),
		Type:          "limit",
		Count:         target.Size,
		ExpirationTS:  target.ExpiresAt.Unix(),
		ClientOrderID: uuid.NewString(),
	}
	if key.Side == types.SideYes {
		req.YesPrice = target.Price
	} else {
		req.NoPrice = target.Price
	}

	resp, err := r.gateway.PlaceOrder(ctx, req)
	if r.breaker != nil {
		r.breaker.RecordResult(err)
	}
	if err != nil {
		r.logger.Warn("reconciler-place-failed",
			zap.String("match-id", key.MatchID),
			zap.String("ticker", key.Ticker),
			zap.String("side", string(key.Side)),
			zap.Error(err))
		reconcileErrorsTotal.WithLabelValues("place").Inc()
		return
	}

	ks.resting = &types.RestingOrder{
		OrderID:  resp.Order.OrderID,
		MatchID:  key.MatchID,
		Ticker:   key.Ticker,
		Side:     key.Side,
		Price:    target.Price,
		Size:     target.Size,
		PlacedAt: time.Now(),
	}
	reconcileActionsTotal.WithLabelValues("placed").Inc()
}

func (r *Reconciler) cancel(ctx context.Context, key types.OrderKey, ks *keyState) {
	if ks.resting == nil {
		return
	}
	orderID := ks.resting.OrderID
	err := r.gateway.CancelOrder(ctx, orderID)
	if r.breaker != nil {
		r.breaker.RecordResult(err)
	}
	if err != nil {
		r.logger.Warn("reconciler-cancel-failed",
			zap.String("match-id", key.MatchID),
			zap.String("ticker", key.Ticker),
			zap.String("order-id", orderID),
			zap.Error(err))
		reconcileErrorsTotal.WithLabelValues("cancel").Inc()
		return
	}
	ks.resting = nil
}

// CurrentPrice returns the resting price for a key, or nil if there is no
// resting order on it. QuotingCore feeds this in as AdaptivePricer's
// `current_price` input (spec §4.2).
func (r *Reconciler) CurrentPrice(key types.OrderKey) *int {
	ks := r.stateFor(key)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.resting == nil {
		return nil
	}
	price := ks.resting.Price
	return &price
}

// RestingOrders returns a snapshot of every order the reconciler believes
// is currently resting.
func (r *Reconciler) RestingOrders() []types.RestingOrder {
	r.mu.Lock()
	keys := make([]*keyState, 0, len(r.keys))
	for _, ks := range r.keys {
		keys = append(keys, ks)
	}
	r.mu.Unlock()

	out := make([]types.RestingOrder, 0, len(keys))
	for _, ks := range keys {
		ks.mu.Lock()
		if ks.resting != nil {
			out = append(out, *ks.resting)
		}
		ks.mu.Unlock()
	}
	return out
}

// EmergencyCancel lists every resting order known locally union the
// exchange's own resting-orders query, and cancels each with bounded
// parallelism (spec §5's shutdown emergency-cancel pass).
func (r *Reconciler) EmergencyCancel(ctx context.Context) error {
	ids := make(map[string]struct{})
	for _, o := range r.RestingOrders() {
		ids[o.OrderID] = struct{}{}
	}

	remote, err := r.gateway.ListRestingOrders(ctx)
	if err != nil {
		r.logger.Warn("emergency-cancel-list-failed", zap.Error(err))
	} else {
		for _, o := range remote {
			ids[o.OrderID] = struct{}{}
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()

			r.sem <- struct{}{}
			defer func() { <-r.sem }()

			if err := r.gateway.CancelOrder(ctx, id); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("cancel %s: %w", id, err)
				}
				mu.Unlock()
				return
			}
			emergencyCancelTotal.Inc()
		}()
	}
	wg.Wait()

	r.logger.Info("emergency-cancel-complete", zap.Int("order-count", len(ids)))
	return firstErr
}

// Close waits for all in-flight reconciliation workers to finish.
func (r *Reconciler) Close() error {
	r.wg.Wait()
	r.logger.Info("reconciler-closed")
	return nil
}
