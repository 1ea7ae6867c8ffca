package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/partnerdesk/internal/audit/domain"
	auditrepository "github.com/smallbiznis/partnerdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/partnerdesk/internal/audit/service"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"github.com/smallbiznis/partnerdesk/internal/settlement/domain"
	"github.com/smallbiznis/partnerdesk/internal/settlement/repository"
	"github.com/smallbiznis/partnerdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSettlementService(t *testing.T, now time.Time, suffixes ...int) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(now)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fake,
		Repo:     repository.Provide(),
		AuditSvc: auditSvc,
	}).(*Service)

	if len(suffixes) > 0 {
		next := 0
		svc.suffix = func() int {
			v := suffixes[next%len(suffixes)]
			next++
			return v
		}
	}
	return svc, db
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func ptr[T any](v T) *T { return &v }

// seedJune gives the partner 1500 of paid revenue effective in 2025-06 plus
// rows that must be ignored.
func seedJune(t *testing.T, db *gorm.DB, partnerID int64) {
	t.Helper()

	paid := []testutil.CaseFixture{
		{LastName: "Start", CreatedOn: at("2025-06-01T00:00:00Z"), Payment: crmdomain.PaymentStatusPaid, Amount: "300"},
		{LastName: "Mid", CreatedOn: at("2025-06-10T08:00:00Z"), Payment: crmdomain.PaymentStatusPaid, Amount: "1000"},
		{LastName: "Effective", CreatedOn: at("2025-05-20T08:00:00Z"), EffectiveOn: ptr(at("2025-06-30T23:59:59Z")), Payment: crmdomain.PaymentStatusPaid, Amount: "200"},
	}
	ignored := []testutil.CaseFixture{
		{LastName: "Pending", CreatedOn: at("2025-06-12T08:00:00Z"), Payment: crmdomain.PaymentStatusPending, Amount: "700"},
		{LastName: "End", CreatedOn: at("2025-07-01T00:00:00Z"), Payment: crmdomain.PaymentStatusPaid, Amount: "900"},
		{LastName: "Moved", CreatedOn: at("2025-06-15T08:00:00Z"), EffectiveOn: ptr(at("2025-05-31T12:00:00Z")), Payment: crmdomain.PaymentStatusPaid, Amount: "400"},
	}
	for _, f := range append(paid, ignored...) {
		testutil.CreateCase(t, db, partnerID, f)
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSettlePeriodPersistsSummaryAndInvoice(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"), 123456)
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)

	res, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06"})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "2025-06", res.Period)
	assert.Equal(t, "1500.00", res.Revenue.StringFixed(2))
	assert.Equal(t, 3, res.CaseCount)
	assert.Equal(t, "225.00", res.Commission.StringFixed(2))
	assert.Equal(t, fmt.Sprintf("F202506-%d-123456", partner.ID), res.InvoiceID)
	assert.Equal(t, crmdomain.InvoiceStatusPaid, res.Status)
	assert.Equal(t, "2025-06-30", res.Date.Format("2006-01-02"))

	var summary crmdomain.PeriodSummary
	require.NoError(t, db.Where("partenaire_id = ? AND periode = ?", partner.ID, "2025-06").First(&summary).Error)
	assert.Equal(t, "1500.00", summary.Revenue.StringFixed(2))
	assert.Equal(t, 3, summary.CaseCount)
	assert.Equal(t, "225.00", summary.Commissions.StringFixed(2))

	var invoice crmdomain.PartnerInvoice
	require.NoError(t, db.Where("id = ?", res.InvoiceID).First(&invoice).Error)
	assert.Equal(t, "225.00", invoice.Amount.StringFixed(2))
	assert.Equal(t, "2025-06-30", invoice.Date.UTC().Format("2006-01-02"))
	assert.Equal(t, invoice.Date, invoice.DueDate)
	assert.Nil(t, invoice.PDF)

	var audit auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", "partner.period.settled").First(&audit).Error)
	assert.Equal(t, res.InvoiceID, *audit.TargetID)
	assert.Equal(t, "225.00", audit.Metadata["commission"])
}

func TestSettlePeriodIsIdempotentAndKeepsInvoiceID(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"), 123456, 654321)
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)
	ctx := context.Background()
	req := domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06"}

	first, err := svc.SettlePeriod(ctx, req)
	require.NoError(t, err)
	require.NoError(t, db.Model(&crmdomain.PartnerInvoice{}).Where("id = ?", first.InvoiceID).Update("pdf", "generated_abc").Error)

	second, err := svc.SettlePeriod(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceID, second.InvoiceID)
	assert.True(t, first.Commission.Equal(second.Commission))
	assert.True(t, first.Revenue.Equal(second.Revenue))

	testutil.CreateCase(t, db, partner.ID, testutil.CaseFixture{
		LastName:  "Late",
		CreatedOn: at("2025-06-20T10:00:00Z"),
		Payment:   crmdomain.PaymentStatusPaid,
		Amount:    "200",
	})
	third, err := svc.SettlePeriod(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceID, third.InvoiceID)
	assert.Equal(t, "1700.00", third.Revenue.StringFixed(2))
	assert.Equal(t, "255.00", third.Commission.StringFixed(2))

	assert.EqualValues(t, 1, countRows(t, db, &crmdomain.PeriodSummary{}))
	assert.EqualValues(t, 1, countRows(t, db, &crmdomain.PartnerInvoice{}))

	var invoice crmdomain.PartnerInvoice
	require.NoError(t, db.Where("id = ?", first.InvoiceID).First(&invoice).Error)
	assert.Equal(t, "255.00", invoice.Amount.StringFixed(2))
	require.NotNil(t, invoice.PDF)
	assert.Equal(t, "generated_abc", *invoice.PDF)
}

func TestSettlePeriodDryRunWritesNothing(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"))
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)

	res, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06", DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, "225.00", res.Commission.StringFixed(2))
	assert.Empty(t, res.InvoiceID)
	assert.EqualValues(t, 0, countRows(t, db, &crmdomain.PeriodSummary{}))
	assert.EqualValues(t, 0, countRows(t, db, &crmdomain.PartnerInvoice{}))
	assert.EqualValues(t, 0, countRows(t, db, &auditdomain.AuditLog{}))
}

func TestSettlePeriodDefaultsToPreviousMonth(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-01T00:30:00Z"))
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")

	res, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "2025-06", res.Period)
	assert.True(t, res.Revenue.IsZero())
	assert.Zero(t, res.CaseCount)
}

func TestSettlePeriodValidation(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"))
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.SettleRequest
		want error
	}{
		{"month 13", domain.SettleRequest{PartnerID: partner.ID, Period: "2025-13"}, domain.ErrInvalidPeriod},
		{"single digit month", domain.SettleRequest{PartnerID: partner.ID, Period: "2025-6"}, domain.ErrInvalidPeriod},
		{"zero partner", domain.SettleRequest{PartnerID: 0, Period: "2025-06"}, domain.ErrInvalidPartnerID},
		{"unknown partner", domain.SettleRequest{PartnerID: partner.ID + 100, Period: "2025-06"}, domain.ErrPartnerNotFound},
		{"rate above 100", domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06", Rate: ptr(decimal.NewFromInt(150))}, domain.ErrInvalidRate},
		{"negative rate", domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06", Rate: ptr(decimal.NewFromInt(-1))}, domain.ErrInvalidRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SettlePeriod(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.EqualValues(t, 0, countRows(t, db, &crmdomain.PeriodSummary{}))
	assert.EqualValues(t, 0, countRows(t, db, &crmdomain.PartnerInvoice{}))
}

func TestSettlePeriodRateOverrideIsNotStored(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"), 111111)
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)

	res, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{
		PartnerID: partner.ID,
		Period:    "2025-06",
		Rate:      ptr(decimal.RequireFromString("10")),
	})
	require.NoError(t, err)
	assert.Equal(t, "150.00", res.Commission.StringFixed(2))
	assert.Equal(t, "10", res.Rate.String())

	var stored crmdomain.Partner
	require.NoError(t, db.First(&stored, partner.ID).Error)
	assert.Equal(t, "15", stored.CommissionRate.String())
}

func TestSettlePeriodRollsBackOnInvoiceFailure(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"))
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)
	require.NoError(t, db.Migrator().DropTable(&crmdomain.PartnerInvoice{}))

	_, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	assert.EqualValues(t, 0, countRows(t, db, &crmdomain.PeriodSummary{}))
	assert.EqualValues(t, 0, countRows(t, db, &auditdomain.AuditLog{}))
}

func TestSettlePeriodRetriesOnInvoiceIDCollision(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"), 111111, 222222)
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)

	taken := fmt.Sprintf("F202506-%d-111111", partner.ID)
	require.NoError(t, db.Create(&crmdomain.PartnerInvoice{
		ID:        taken,
		PartnerID: partner.ID,
		Period:    "2024-06",
		Status:    crmdomain.InvoiceStatusDraft,
	}).Error)

	res, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("F202506-%d-222222", partner.ID), res.InvoiceID)
	assert.EqualValues(t, 1, countRows(t, db, &crmdomain.PeriodSummary{}))
	assert.EqualValues(t, 2, countRows(t, db, &crmdomain.PartnerInvoice{}))
}

// collidingRepo reports a taken invoice id the way MySQL's upsert does: the
// write lands on the row that owns the id and (partner, period) stays empty.
type collidingRepo struct {
	domain.Repository
	collisions int
	takenID    string
	readsInTx  []bool
}

func inTransaction(db *gorm.DB) bool {
	_, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok
}

func (r *collidingRepo) FindPartnerRate(ctx context.Context, db *gorm.DB, partnerID int64) (*decimal.Decimal, error) {
	r.readsInTx = append(r.readsInTx, inTransaction(db))
	return r.Repository.FindPartnerRate(ctx, db, partnerID)
}

func (r *collidingRepo) ListPaidCases(ctx context.Context, db *gorm.DB, partnerID int64, start, end time.Time) ([]domain.PaidCase, error) {
	r.readsInTx = append(r.readsInTx, inTransaction(db))
	return r.Repository.ListPaidCases(ctx, db, partnerID, start, end)
}

func (r *collidingRepo) UpsertInvoice(ctx context.Context, db *gorm.DB, in domain.InvoiceUpsert) (string, error) {
	if r.collisions > 0 {
		r.collisions--
		if err := db.WithContext(ctx).Model(&crmdomain.PartnerInvoice{}).
			Where("id = ?", r.takenID).
			Update("montant", in.Amount).Error; err != nil {
			return "", err
		}
		return "", domain.ErrInvoiceIDCollision
	}
	return r.Repository.UpsertInvoice(ctx, db, in)
}

func TestSettlePeriodReadsInsideTransaction(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"))
	repo := &collidingRepo{Repository: svc.repo}
	svc.repo = repo
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)

	_, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06"})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, repo.readsInTx)

	repo.readsInTx = nil
	_, err = svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID + 100, Period: "2025-06"})
	assert.ErrorIs(t, err, domain.ErrPartnerNotFound)
	assert.NotErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, []bool{true}, repo.readsInTx)
}

func TestSettlePeriodRetriesWhenUpsertLandsOnAnotherInvoice(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"), 111111, 222222)
	partner := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	seedJune(t, db, partner.ID)

	taken := fmt.Sprintf("F202506-%d-111111", partner.ID)
	require.NoError(t, db.Create(&crmdomain.PartnerInvoice{
		ID:        taken,
		PartnerID: partner.ID,
		Period:    "2024-06",
		Amount:    decimal.NewFromInt(10),
		Status:    crmdomain.InvoiceStatusDraft,
	}).Error)
	svc.repo = &collidingRepo{Repository: svc.repo, collisions: 1, takenID: taken}

	res, err := svc.SettlePeriod(context.Background(), domain.SettleRequest{PartnerID: partner.ID, Period: "2025-06"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("F202506-%d-222222", partner.ID), res.InvoiceID)

	var other crmdomain.PartnerInvoice
	require.NoError(t, db.Where("id = ?", taken).First(&other).Error)
	assert.Equal(t, "10.00", other.Amount.StringFixed(2))
	assert.Equal(t, "2024-06", other.Period)
}

func TestCloseMonthSettlesEveryPartner(t *testing.T) {
	svc, db := setupSettlementService(t, at("2025-07-03T09:00:00Z"))
	dupont := testutil.CreatePartner(t, db, "Cabinet Dupont", "15")
	testutil.CreatePartner(t, db, "Expert Lyon", "20")
	seedJune(t, db, dupont.ID)

	res, err := svc.CloseMonth(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2025-06", res.Period)
	require.Len(t, res.Settled, 2)
	assert.Empty(t, res.Failed)
	assert.Equal(t, "225.00", res.Settled[0].Commission.StringFixed(2))
	assert.True(t, res.Settled[1].Commission.IsZero())
	assert.EqualValues(t, 2, countRows(t, db, &crmdomain.PartnerInvoice{}))

	_, err = svc.CloseMonth(context.Background(), "2025-00")
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}
