package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CaseStatus string

const (
	CaseStatusNew        CaseStatus = "nouveau"
	CaseStatusInProgress CaseStatus = "en_cours"
	CaseStatusWaiting    CaseStatus = "en_attente"
	CaseStatusToFix      CaseStatus = "a_corriger"
	CaseStatusValidated  CaseStatus = "valide"
	CaseStatusRejected   CaseStatus = "rejete"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusPaid  InvoiceStatus = "payee"
)

type Referent struct {
	Name  string `json:"nom,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"telephone,omitempty"`
}

// BillingContact is what a partner prints as the seller on its invoices.
type BillingContact struct {
	Company string `json:"societe,omitempty"`
	Address string `json:"adresse,omitempty"`
	Email   string `json:"email_facturation,omitempty"`
	Phone   string `json:"telephone,omitempty"`
	SIRET   string `json:"siret,omitempty"`
}

type Partner struct {
	ID                 int64                              `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string                             `gorm:"column:nom;not null" json:"nom"`
	Address            string                             `gorm:"column:adresse" json:"adresse"`
	Segment            string                             `gorm:"column:segment" json:"segment"`
	Integration        string                             `gorm:"column:integration" json:"integration"`
	BillingType        string                             `gorm:"column:type_facturation" json:"type_facturation"`
	CommissionRate     decimal.Decimal                    `gorm:"column:taux_commission;type:numeric(5,2);not null;default:0" json:"taux_commission"`
	Referent           datatypes.JSONType[Referent]       `gorm:"column:referent" json:"referent"`
	Contract           datatypes.JSONMap                  `gorm:"column:contrat" json:"contrat"`
	Payment            datatypes.JSONMap                  `gorm:"column:paiement" json:"paiement"`
	BillingCoordinates datatypes.JSONType[BillingContact] `gorm:"column:coordonnees_facturation" json:"coordonnees_facturation"`
	Docs               datatypes.JSONMap                  `gorm:"column:docs" json:"docs"`
	CreatedAt          time.Time                          `json:"created_at"`
	UpdatedAt          time.Time                          `json:"updated_at"`
}

func (Partner) TableName() string { return "partenaires" }

type Client struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	LastName  string `gorm:"column:nom" json:"nom"`
	FirstName string `gorm:"column:prenom" json:"prenom"`
	Email     string `gorm:"column:email" json:"email"`
	Phone     string `gorm:"column:telephone" json:"telephone"`
}

func (Client) TableName() string { return "clients" }

type Company struct {
	ID             int64                              `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID       int64                              `gorm:"column:client_id;index" json:"client_id"`
	Name           string                             `gorm:"column:denomination" json:"denomination"`
	LegalForm      string                             `gorm:"column:forme" json:"forme"`
	PaymentService datatypes.JSONType[PaymentService] `gorm:"column:service_paiement" json:"service_paiement"`
}

func (Company) TableName() string { return "entreprises" }

type Case struct {
	ID                int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID          int64                       `gorm:"column:client_id;index" json:"client_id"`
	CompanyID         int64                       `gorm:"column:entreprise_id;index" json:"entreprise_id"`
	PartnerID         int64                       `gorm:"column:partenaire_id;index" json:"partenaire_id"`
	Status            CaseStatus                  `gorm:"column:statut" json:"statut"`
	CreatedOn         time.Time                   `gorm:"column:date_creation;not null" json:"date_creation"`
	EffectiveOn       *time.Time                  `gorm:"column:date_creation_effective" json:"date_creation_effective"`
	LastModified      *time.Time                  `gorm:"column:derniere_modification" json:"derniere_modification"`
	Blockers          datatypes.JSONSlice[string] `gorm:"column:blocages" json:"blocages"`
	PartnerCommission *decimal.Decimal            `gorm:"column:commission_partenaire_eur;type:numeric(14,2)" json:"commission_partenaire_eur"`
}

func (Case) TableName() string { return "dossiers" }

// PeriodSummary is one partner_period_ca row.
type PeriodSummary struct {
	PartnerID   int64           `gorm:"column:partenaire_id;primaryKey;autoIncrement:false;uniqueIndex:ux_partner_period_ca,priority:1" json:"partenaire_id"`
	Period      string          `gorm:"column:periode;primaryKey;size:7;uniqueIndex:ux_partner_period_ca,priority:2" json:"periode"`
	Revenue     decimal.Decimal `gorm:"column:ca;type:numeric(14,2);not null;default:0" json:"ca"`
	CaseCount   int             `gorm:"column:dossiers;not null;default:0" json:"dossiers"`
	Commissions decimal.Decimal `gorm:"column:commissions;type:numeric(14,2);not null;default:0" json:"commissions"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (PeriodSummary) TableName() string { return "partner_period_ca" }

type PartnerInvoice struct {
	ID        string          `gorm:"primaryKey;size:64" json:"id"`
	PartnerID int64           `gorm:"column:partenaire_id;not null;uniqueIndex:ux_partner_invoices_period,priority:1" json:"partenaire_id"`
	Period    string          `gorm:"column:periode;size:7;not null;uniqueIndex:ux_partner_invoices_period,priority:2" json:"periode"`
	Amount    decimal.Decimal `gorm:"column:montant;type:numeric(14,2);not null;default:0" json:"montant"`
	Date      time.Time       `gorm:"column:date;type:date" json:"date"`
	DueDate   time.Time       `gorm:"column:echeance;type:date" json:"echeance"`
	Status    InvoiceStatus   `gorm:"column:statut;size:16;not null" json:"statut"`
	PDF       *string         `gorm:"column:pdf" json:"pdf"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (PartnerInvoice) TableName() string { return "partner_invoices" }

type PartnerUser struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	PartnerID    int64      `gorm:"column:partner_id;index" json:"partner_id"`
	Email        string     `gorm:"column:email" json:"email"`
	Name         string     `gorm:"column:nom" json:"nom"`
	Role         string     `gorm:"column:role" json:"role"`
	TwoFAEnabled bool       `gorm:"column:two_fa_enabled" json:"two_fa_enabled"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at"`
}

func (PartnerUser) TableName() string { return "partner_users" }

type PartnerExport struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	PartnerID   int64             `gorm:"column:partner_id;index" json:"partner_id"`
	Format      string            `gorm:"column:format" json:"format"`
	Filters     datatypes.JSONMap `gorm:"column:filtres" json:"filtres"`
	GeneratedAt time.Time         `gorm:"column:generated_at" json:"generated_at"`
	File        string            `gorm:"column:file" json:"file"`
}

func (PartnerExport) TableName() string { return "partner_exports_history" }

// CompanySetting overrides one key of the invoicing issuer block.
type CompanySetting struct {
	Key   string `gorm:"column:key;primaryKey;size:64" json:"key"`
	Value string `gorm:"column:value" json:"value"`
}

func (CompanySetting) TableName() string { return "company_settings" }
