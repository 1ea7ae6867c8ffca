package pdf

import "context"

// Renderer turns a commission invoice into a PDF document.
type Renderer interface {
	RenderCommissionInvoice(ctx context.Context, data CommissionInvoice) ([]byte, error)
}

type NoOpRenderer struct{}

func (NoOpRenderer) RenderCommissionInvoice(ctx context.Context, data CommissionInvoice) ([]byte, error) {
	return nil, nil
}
