package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/partnerdesk/internal/audit/domain"
	"github.com/smallbiznis/partnerdesk/internal/auditcontext"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"github.com/smallbiznis/partnerdesk/internal/invoice/format"
	"github.com/smallbiznis/partnerdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	"github.com/smallbiznis/partnerdesk/internal/observability/tracing"
	"github.com/smallbiznis/partnerdesk/internal/settlement/domain"
	"github.com/smallbiznis/partnerdesk/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	invoiceSavepoint     = "settlement_invoice"
	maxInvoiceIDAttempts = 3

	modePreview = "preview"
	modePersist = "persist"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
	tracer   trace.Tracer

	idTemplate string
	suffix     func() int
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("settlement.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
		tracer:     otel.Tracer("partnerdesk/settlement"),
		idTemplate: format.DefaultInvoiceIDTemplate,
		suffix:     format.RandomSuffix,
	}
}

func (s *Service) SettlePeriod(ctx context.Context, req domain.SettleRequest) (*domain.Result, error) {
	if req.PartnerID <= 0 {
		return nil, domain.ErrInvalidPartnerID
	}
	period, err := s.resolvePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	if req.Rate != nil && (req.Rate.IsNegative() || req.Rate.GreaterThan(hundred)) {
		return nil, domain.ErrInvalidRate
	}

	mode := modePersist
	if req.DryRun {
		mode = modePreview
	}

	ctx = auditcontext.WithSettlement(ctx, strconv.FormatInt(req.PartnerID, 10), period.String())
	ctx, span := s.tracer.Start(ctx, "settlement.SettlePeriod", trace.WithAttributes(tracing.SafeAttributes(
		attribute.Int64("partner.id", req.PartnerID),
		attribute.String("settlement.period", period.String()),
		attribute.Bool("settlement.dry_run", req.DryRun),
	)...))
	defer span.End()

	log := logger.WithSettlement(logger.WithContext(ctx, s.log), req.PartnerID, period.String())

	result, err := s.settle(ctx, log, req, period)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "settlement failed")
		s.metrics.RecordSettlement(ctx, mode, outcomeOf(err))
		return nil, err
	}

	span.SetAttributes(tracing.SafeAttributes(attribute.Int("settlement.case_count", result.CaseCount))...)
	s.metrics.RecordSettlement(ctx, mode, "success")
	if !result.DryRun {
		s.metrics.RecordCommission(ctx, result.Commission.InexactFloat64())
	}
	return result, nil
}

// settle reads the rate and the paid cases inside the same transaction that
// writes the summary and the invoice. A dry run commits an empty transaction.
func (s *Service) settle(ctx context.Context, log *zap.Logger, req domain.SettleRequest, period domain.Period) (*domain.Result, error) {
	var result *domain.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rate, err := s.repo.FindPartnerRate(ctx, tx, req.PartnerID)
		if err != nil {
			log.Error("failed to load partner rate", zap.Error(err))
			return err
		}
		if rate == nil {
			return domain.ErrPartnerNotFound
		}
		if req.Rate != nil {
			rate = req.Rate
		}

		cases, err := s.repo.ListPaidCases(ctx, tx, req.PartnerID, period.Start(), period.End())
		if err != nil {
			log.Error("failed to load paid cases", zap.Error(err))
			return err
		}

		agg := aggregate(cases, *rate)
		result = &domain.Result{
			OK:         true,
			Period:     period.String(),
			PartnerID:  req.PartnerID,
			Revenue:    agg.Revenue,
			CaseCount:  agg.CaseCount,
			Commission: agg.Commission,
			Rate:       *rate,
			DryRun:     req.DryRun,
		}
		if req.DryRun {
			return nil
		}

		now := s.clock.Now().UTC()
		summary := crmdomain.PeriodSummary{
			PartnerID:   req.PartnerID,
			Period:      period.String(),
			Revenue:     agg.Revenue,
			CaseCount:   agg.CaseCount,
			Commissions: agg.Commission,
			UpdatedAt:   now,
		}
		if err := s.repo.UpsertPeriodSummary(ctx, tx, &summary); err != nil {
			return err
		}

		date := period.LastDay()
		invoiceID, err := s.upsertInvoice(ctx, tx, period, req.PartnerID, agg.Commission, date)
		if err != nil {
			return err
		}
		result.InvoiceID = invoiceID
		result.Status = crmdomain.InvoiceStatusPaid
		result.Date = date

		return s.auditSvc.WithTx(tx).AuditLog(ctx, "", nil, "partner.period.settled", "partner_invoice", &invoiceID, map[string]any{
			"period":     period.String(),
			"ca":         agg.Revenue.StringFixed(2),
			"dossiers":   agg.CaseCount,
			"commission": agg.Commission.StringFixed(2),
			"invoice_id": invoiceID,
		})
	})
	if errors.Is(err, domain.ErrPartnerNotFound) {
		return nil, err
	}
	if err != nil {
		log.Error("settlement transaction rolled back", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	if result.DryRun {
		log.Debug("settlement previewed",
			zap.String("revenue", result.Revenue.StringFixed(2)),
			zap.Int("case_count", result.CaseCount),
		)
		return result, nil
	}
	log.Info("partner period settled",
		zap.String("invoice_id", result.InvoiceID),
		zap.String("revenue", result.Revenue.StringFixed(2)),
		zap.String("commission", result.Commission.StringFixed(2)),
		zap.Int("case_count", result.CaseCount),
	)
	return result, nil
}

// upsertInvoice retries on a candidate id that collides with another
// partner's invoice. The savepoint keeps the outer transaction usable.
func (s *Service) upsertInvoice(ctx context.Context, tx *gorm.DB, period domain.Period, partnerID int64, amount decimal.Decimal, date time.Time) (string, error) {
	for attempt := 1; ; attempt++ {
		candidate, err := format.FormatInvoiceID(s.idTemplate, period.Start(), partnerID, s.suffix())
		if err != nil {
			return "", err
		}
		if err := tx.SavePoint(invoiceSavepoint).Error; err != nil {
			return "", err
		}

		id, err := s.repo.UpsertInvoice(ctx, tx, domain.InvoiceUpsert{
			CandidateID: candidate,
			PartnerID:   partnerID,
			Period:      period.String(),
			Amount:      amount,
			Date:        date,
			Status:      crmdomain.InvoiceStatusPaid,
		})
		if err == nil {
			return id, nil
		}
		if !isInvoiceIDCollision(err) || attempt >= maxInvoiceIDAttempts {
			return "", err
		}
		if rbErr := tx.RollbackTo(invoiceSavepoint).Error; rbErr != nil {
			return "", rbErr
		}
		s.log.Warn("invoice id collision, retrying",
			zap.String("candidate", candidate),
			zap.Int("attempt", attempt),
		)
	}
}

// isInvoiceIDCollision covers both a rejected insert and, on dialects whose
// upsert also fires on the primary key, a write that landed on another
// partner's row and left (partner, period) without an invoice.
func isInvoiceIDCollision(err error) bool {
	return db.IsDuplicateKeyErr(err) || errors.Is(err, domain.ErrInvoiceIDCollision)
}

func (s *Service) CloseMonth(ctx context.Context, period string) (*domain.CloseMonthResult, error) {
	p, err := s.resolvePeriod(period)
	if err != nil {
		return nil, err
	}

	ids, err := s.repo.ListPartnerIDs(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	out := &domain.CloseMonthResult{
		Period:  p.String(),
		Settled: make([]domain.Result, 0, len(ids)),
		Failed:  map[int64]error{},
	}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.SettlePeriod(ctx, domain.SettleRequest{PartnerID: id, Period: p.String()})
		if err != nil {
			out.Failed[id] = err
			errs = append(errs, fmt.Errorf("partner %d: %w", id, err))
			continue
		}
		out.Settled = append(out.Settled, *res)
	}

	s.log.Info("month closed",
		zap.String("period", p.String()),
		zap.Int("settled", len(out.Settled)),
		zap.Int("failed", len(out.Failed)),
	)
	return out, errors.Join(errs...)
}

func (s *Service) resolvePeriod(value string) (domain.Period, error) {
	if value == "" {
		return domain.PreviousPeriod(s.clock.Now()), nil
	}
	return domain.ParsePeriod(value)
}

func aggregate(cases []domain.PaidCase, rate decimal.Decimal) domain.Aggregate {
	revenue := decimal.Zero
	for _, c := range cases {
		revenue = revenue.Add(c.PaymentService.AmountOrZero())
	}
	return domain.Aggregate{
		Revenue:    revenue,
		CaseCount:  len(cases),
		Commission: revenue.Mul(rate).Div(hundred).Round(2),
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrPartnerNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_failure"
	default:
		return "error"
	}
}
