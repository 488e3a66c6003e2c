package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seluna-ai/passage/internal/domain/budget"
)

// Operation groups the model calls of one logical request under a shared
// operation id, so multi-call flows (embed + complete) roll up in the
// ledger as one traceable unit.
type Operation struct {
	mu sync.Mutex

	id        string
	calls     int
	tokensIn  int
	tokensOut int
	costUSD   float64
}

// NewOperation starts a tracked operation with a fresh id.
func NewOperation() *Operation {
	return &Operation{id: uuid.NewString()}
}

// ID returns the operation id carried on every record.
func (o *Operation) ID() string { return o.id }

// Observe builds the CallRecord for one finished model call and adds its
// cost to the operation's running totals.
func (o *Operation) Observe(model string, tokensIn, tokensOut int, costUSD float64, now time.Time) budget.CallRecord {
	o.mu.Lock()
	o.calls++
	o.tokensIn += tokensIn
	o.tokensOut += tokensOut
	o.costUSD += costUSD
	o.mu.Unlock()

	return budget.CallRecord{
		OperationID: o.id,
		Model:       model,
		TokensIn:    tokensIn,
		TokensOut:   tokensOut,
		CostUSD:     costUSD,
		Timestamp:   now,
	}
}

// Totals reports the accumulated calls, tokens, and cost of the operation.
func (o *Operation) Totals() (calls, tokensIn, tokensOut int, costUSD float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls, o.tokensIn, o.tokensOut, o.costUSD
}
