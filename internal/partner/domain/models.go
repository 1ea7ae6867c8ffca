package domain

import (
	"time"

	"github.com/shopspring/decimal"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
)

type InteractionType string

const (
	InteractionCall     InteractionType = "appel"
	InteractionEmail    InteractionType = "email"
	InteractionMeeting  InteractionType = "reunion"
	InteractionFollowUp InteractionType = "relance"
	InteractionNote     InteractionType = "note"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionCall, InteractionEmail, InteractionMeeting, InteractionFollowUp, InteractionNote:
		return true
	}
	return false
}

type Direction string

const (
	DirectionInbound  Direction = "entrant"
	DirectionOutbound Direction = "sortant"
	DirectionBoth     Direction = "bidirectionnel"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionBoth:
		return true
	}
	return false
}

type InteractionStatus string

const (
	InteractionTodo InteractionStatus = "a_faire"
	InteractionDone InteractionStatus = "termine"
)

type Interaction struct {
	ID              int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	PartnerID       int64             `gorm:"column:partner_id;not null;index:idx_partner_interactions_partner_date,priority:1" json:"partner_id"`
	Date            time.Time         `gorm:"column:date_interaction;not null;index:idx_partner_interactions_partner_date,priority:2" json:"date_interaction"`
	Type            InteractionType   `gorm:"column:type_interaction;not null" json:"type_interaction"`
	Direction       Direction         `gorm:"column:direction;not null" json:"direction"`
	Subject         string            `gorm:"column:sujet;not null" json:"sujet"`
	Notes           string            `gorm:"column:notes" json:"notes"`
	Participant     string            `gorm:"column:participant" json:"participant"`
	DurationMinutes *int              `gorm:"column:duree_minutes" json:"duree_minutes"`
	Status          InteractionStatus `gorm:"column:statut;not null" json:"statut"`
	NextAction      *string           `gorm:"column:prochaine_action" json:"prochaine_action"`
	ReminderDate    *time.Time        `gorm:"column:rappel_date" json:"rappel_date"`
	CreatedBy       string            `gorm:"column:created_by" json:"created_by"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (Interaction) TableName() string { return "partner_interactions" }

type PartnerSummary struct {
	crmdomain.Partner
	RevenueTotal     decimal.Decimal `json:"ca_total"`
	CommissionsTotal decimal.Decimal `json:"commissions_total"`
}

type DerivedTotals struct {
	RevenueTotal     decimal.Decimal `json:"ca_total"`
	CommissionsTotal decimal.Decimal `json:"commissions_total"`
	PaidCases        int             `json:"dossiers_payes"`
}

type Overview struct {
	Partner        PartnerSummary             `json:"partenaire"`
	Periods        []crmdomain.PeriodSummary  `json:"ca_par_periode"`
	Invoices       []crmdomain.PartnerInvoice `json:"factures"`
	Users          []crmdomain.PartnerUser    `json:"partner_users"`
	Cases          []crmdomain.Case           `json:"dossiers"`
	ExportsHistory []crmdomain.PartnerExport  `json:"partner_exports_history"`
	DerivedTotals  DerivedTotals              `json:"derived_totals"`
}

// ClientFilter mirrors the partner portal client table filters.
type ClientFilter struct {
	PartnerID     int64
	Search        string
	Status        string
	From          *time.Time
	To            *time.Time
	OnlyBlocked   bool
	MinCommission *decimal.Decimal
	Limit         int
}

// ClientRecord is one case joined with its client, company and partner.
type ClientRecord struct {
	CaseID            int64
	ClientID          int64
	CompanyID         int64
	Status            crmdomain.CaseStatus
	CreatedOn         time.Time
	EffectiveOn       *time.Time
	LastModified      *time.Time
	Blockers          []string
	PartnerCommission *decimal.Decimal
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	CompanyName       string
	CompanyForm       string
	PaymentService    crmdomain.PaymentService
	CommissionRate    decimal.Decimal
}

type ClientRow struct {
	ID             int64                `json:"id"`
	CaseID         int64                `json:"dossier_id"`
	CompanyID      int64                `json:"entreprise_id"`
	LastName       string               `json:"nom"`
	FirstName      string               `json:"prenom"`
	Email          string               `json:"email"`
	Phone          string               `json:"telephone"`
	Status         crmdomain.CaseStatus `json:"statut"`
	CreatedOn      time.Time            `json:"date_creation"`
	EffectiveOn    *time.Time           `json:"date_creation_effective"`
	LastModified   *time.Time           `json:"derniere_modification"`
	Blockers       []string             `json:"blocages"`
	Commission     decimal.Decimal      `json:"commission"`
	CommissionRate decimal.Decimal      `json:"taux_commission"`
	CompanyName    string               `json:"entreprise_nom"`
	CompanyForm    string               `json:"entreprise_forme"`
	FullName       string               `json:"fullName"`
	HasBlocked     bool                 `json:"hasBlocked"`
	IsCompleted    bool                 `json:"isCompleted"`
	IsRejected     bool                 `json:"isRejected"`
}

type InteractionFilter struct {
	PartnerID int64
	// Type is empty or "all" for every type.
	Type  string
	Limit int
}

type InteractionStats struct {
	Total           int64      `json:"total_interactions"`
	Last30Days      int64      `json:"interactions_30j"`
	Calls           int64      `json:"nb_appels"`
	Meetings        int64      `json:"nb_reunions"`
	PendingActions  int64      `json:"actions_en_attente"`
	LastInteraction *time.Time `json:"derniere_interaction"`
}

type PendingAction struct {
	ID           int64           `json:"id"`
	Subject      string          `json:"sujet"`
	NextAction   string          `json:"prochaine_action"`
	ReminderDate *time.Time      `json:"rappel_date"`
	Type         InteractionType `json:"type_interaction"`
}

type SuggestedContact struct {
	Name    string `json:"nom"`
	Email   string `json:"email"`
	Type    string `json:"type"`
	Display string `json:"display"`
}

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type References struct {
	Types      []Option `json:"types"`
	Directions []Option `json:"directions"`
}

type PartnerRef struct {
	ID       int64              `json:"id"`
	Name     string             `json:"nom"`
	Referent crmdomain.Referent `json:"referent"`
}

type InteractionsView struct {
	Partner           PartnerRef         `json:"partenaire"`
	Interactions      []Interaction      `json:"interactions"`
	NextActions       []PendingAction    `json:"prochaines_actions"`
	Stats             InteractionStats   `json:"stats"`
	SuggestedContacts []SuggestedContact `json:"suggested_contacts"`
	References        References         `json:"references"`
}

type CreateInteractionRequest struct {
	Type            string
	Direction       string
	Subject         string
	Notes           string
	Participant     string
	DurationMinutes *int
	NextAction      string
	ReminderDate    *time.Time
	CreatedBy       string
}
