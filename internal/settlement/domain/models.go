package domain

import (
	"time"

	"github.com/shopspring/decimal"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
)

type SettleRequest struct {
	PartnerID int64
	// Period is YYYY-MM; empty means the previous UTC month.
	Period string
	DryRun bool
	// Rate overrides the stored commission percentage for this call only.
	Rate *decimal.Decimal
}

// Aggregate is the revenue computed from a partner's paid cases.
type Aggregate struct {
	Revenue    decimal.Decimal
	CaseCount  int
	Commission decimal.Decimal
}

type Result struct {
	OK         bool
	Period     string
	PartnerID  int64
	Revenue    decimal.Decimal
	CaseCount  int
	Commission decimal.Decimal
	Rate       decimal.Decimal
	DryRun     bool
	InvoiceID  string
	Status     crmdomain.InvoiceStatus
	Date       time.Time
}

type CloseMonthResult struct {
	Period  string
	Settled []Result
	Failed  map[int64]error
}
