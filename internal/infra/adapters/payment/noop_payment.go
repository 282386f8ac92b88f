package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for local runs and tests. Pushes
// stay pending until Settle records a result for them.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	results map[string]*adapter.StatusResult // checkout id -> result, nil while pending
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		results: make(map[string]*adapter.StatusResult),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("ws_CO_noop_%d", g.seq)
}

func (g *NoopPaymentGateway) Push(ctx context.Context, req adapter.PushRequest) (adapter.PushResult, error) {
	if req.Amount.IntPart() < 1 {
		return adapter.PushResult{}, fmt.Errorf("%w: amount must be at least 1", domain.ErrGatewayError)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.results[id] = nil
	return adapter.PushResult{
		CheckoutRequestID: id,
		MerchantRequestID: "noop-merchant-" + id,
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (g *NoopPaymentGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (adapter.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res, ok := g.results[checkoutRequestID]
	if !ok {
		return adapter.StatusResult{}, fmt.Errorf("%w: noop: unknown checkout id", domain.ErrGatewayError)
	}
	if res == nil {
		return adapter.StatusResult{Pending: true, ResultDesc: "The transaction is being processed"}, nil
	}
	return *res, nil
}

// Settle fixes the outcome QueryStatus reports for a pushed checkout id.
func (g *NoopPaymentGateway) Settle(checkoutRequestID string, resultCode int, desc string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[checkoutRequestID] = &adapter.StatusResult{ResultCode: resultCode, ResultDesc: desc}
}
