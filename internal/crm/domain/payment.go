package domain

import (
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "Payé"
	PaymentStatusPending PaymentStatus = "En attente"
	PaymentStatusUnpaid  PaymentStatus = "Impayé"
)

// PaymentService is the service_paiement document attached to a company.
type PaymentService struct {
	Status PaymentStatus    `json:"statut"`
	Amount *decimal.Decimal `json:"montant,omitempty"`
}

func (p PaymentService) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}

// AmountOrZero treats a missing amount as zero.
func (p PaymentService) AmountOrZero() decimal.Decimal {
	if p.Amount == nil {
		return decimal.Zero
	}
	return *p.Amount
}

// Commission returns amount*rate/100 for paid services and zero otherwise.
// The result is not rounded.
func (p PaymentService) Commission(rate decimal.Decimal) decimal.Decimal {
	if !p.IsPaid() {
		return decimal.Zero
	}
	return p.AmountOrZero().Mul(rate).Div(decimal.NewFromInt(100))
}
