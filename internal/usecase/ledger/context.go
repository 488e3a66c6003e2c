package ledger

import "context"

type operationKey struct{}

// WithOperation attaches a tracked operation to the context so every model
// call made while serving the request rolls up under one operation id.
func WithOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom extracts the tracked operation, if any.
func OperationFrom(ctx context.Context) (*Operation, bool) {
	op, ok := ctx.Value(operationKey{}).(*Operation)
	return op, ok
}
