package testutil

import (
	"testing"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CaseFixture describes one client, company and case row.
type CaseFixture struct {
	FirstName   string
	LastName    string
	Email       string
	CompanyName string
	Status      crmdomain.CaseStatus
	CreatedOn   time.Time
	EffectiveOn *time.Time
	Payment     crmdomain.PaymentStatus
	Amount      string
	Blockers    []string
}

func CreatePartner(t *testing.T, db *gorm.DB, name string, rate string) crmdomain.Partner {
	t.Helper()

	partner := crmdomain.Partner{
		Name:           name,
		CommissionRate: decimal.RequireFromString(rate),
		Referent: datatypes.NewJSONType(crmdomain.Referent{
			Name:  "Claire Martin",
			Email: "claire@" + slugDomain(name),
		}),
		BillingCoordinates: datatypes.NewJSONType(crmdomain.BillingContact{
			Company: name,
			Address: "12 rue des Lilas, 75011 Paris",
			Email:   "factures@" + slugDomain(name),
			SIRET:   "41234567800017",
		}),
	}
	require.NoError(t, db.Create(&partner).Error)
	return partner
}

// CreateCase inserts the client, its company and a case for partnerID.
func CreateCase(t *testing.T, db *gorm.DB, partnerID int64, f CaseFixture) crmdomain.Case {
	t.Helper()

	client := crmdomain.Client{FirstName: f.FirstName, LastName: f.LastName, Email: f.Email}
	require.NoError(t, db.Create(&client).Error)

	payment := crmdomain.PaymentService{Status: f.Payment}
	if f.Amount != "" {
		amount := decimal.RequireFromString(f.Amount)
		payment.Amount = &amount
	}
	company := crmdomain.Company{
		ClientID:       client.ID,
		Name:           f.CompanyName,
		PaymentService: datatypes.NewJSONType(payment),
	}
	require.NoError(t, db.Create(&company).Error)

	status := f.Status
	if status == "" {
		status = crmdomain.CaseStatusInProgress
	}
	blockers := f.Blockers
	if blockers == nil {
		blockers = []string{}
	}
	c := crmdomain.Case{
		ClientID:    client.ID,
		CompanyID:   company.ID,
		PartnerID:   partnerID,
		Status:      status,
		CreatedOn:   f.CreatedOn.UTC(),
		EffectiveOn: f.EffectiveOn,
		Blockers:    datatypes.JSONSlice[string](blockers),
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func slugDomain(name string) string {
	return slug.Make(name) + ".test"
}
