package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"github.com/smallbiznis/partnerdesk/internal/partner/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindPartner(ctx context.Context, db *gorm.DB, partnerID int64) (*crmdomain.Partner, error) {
	var partners []crmdomain.Partner
	err := db.WithContext(ctx).
		Where("id = ?", partnerID).
		Limit(1).
		Find(&partners).Error
	if err != nil {
		return nil, err
	}
	if len(partners) == 0 {
		return nil, nil
	}
	return &partners[0], nil
}

func (r *repo) ListPeriodSummaries(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.PeriodSummary, error) {
	var rows []crmdomain.PeriodSummary
	err := db.WithContext(ctx).
		Where("partenaire_id = ?", partnerID).
		Order("periode asc").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.PartnerInvoice, error) {
	var rows []crmdomain.PartnerInvoice
	err := db.WithContext(ctx).
		Where("partenaire_id = ?", partnerID).
		Order("periode desc, date desc").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListUsers(ctx context.Context, db *gorm.DB, partnerID int64, orderBy string) ([]crmdomain.PartnerUser, error) {
	order := "email"
	if orderBy == "nom" {
		order = "nom"
	}
	var rows []crmdomain.PartnerUser
	err := db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order(order).
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListCases(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.Case, error) {
	var rows []crmdomain.Case
	err := db.WithContext(ctx).
		Where("partenaire_id = ?", partnerID).
		Order("date_creation desc").
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListExports(ctx context.Context, db *gorm.DB, partnerID int64) ([]crmdomain.PartnerExport, error) {
	var rows []crmdomain.PartnerExport
	err := db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("generated_at desc").
		Find(&rows).Error
	return rows, err
}

type clientRow struct {
	CaseID            int64
	ClientID          int64
	CompanyID         int64
	Status            string
	CreatedOn         time.Time
	EffectiveOn       *time.Time
	LastModified      *time.Time
	Blockers          datatypes.JSONSlice[string]
	PartnerCommission *decimal.Decimal
	FirstName         *string
	LastName          *string
	Email             *string
	Phone             *string
	CompanyName       *string
	CompanyForm       *string
	PaymentService    datatypes.JSONType[crmdomain.PaymentService]
	CommissionRate    decimal.Decimal
}

func (r *repo) ListClients(ctx context.Context, db *gorm.DB, filter domain.ClientFilter) ([]domain.ClientRecord, error) {
	stmt := db.WithContext(ctx).
		Table("dossiers AS d").
		Select(`d.id AS case_id,
			d.client_id AS client_id,
			d.entreprise_id AS company_id,
			d.statut AS status,
			d.date_creation AS created_on,
			d.date_creation_effective AS effective_on,
			d.derniere_modification AS last_modified,
			d.blocages AS blockers,
			d.commission_partenaire_eur AS partner_commission,
			c.prenom AS first_name,
			c.nom AS last_name,
			c.email AS email,
			c.telephone AS phone,
			e.denomination AS company_name,
			e.forme AS company_form,
			e.service_paiement AS payment_service,
			p.taux_commission AS commission_rate`).
		Joins("JOIN clients c ON c.id = d.client_id").
		Joins("JOIN entreprises e ON e.id = d.entreprise_id").
		Joins("JOIN partenaires p ON p.id = d.partenaire_id").
		Where("d.partenaire_id = ?", filter.PartnerID)

	if status := strings.TrimSpace(filter.Status); status != "" && status != "tous" {
		stmt = stmt.Where("d.statut = ?", status)
	}
	if filter.From != nil {
		stmt = stmt.Where("d.date_creation >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("d.date_creation < ?", filter.To.UTC().AddDate(0, 0, 1))
	}
	if filter.OnlyBlocked {
		stmt = stmt.Where(jsonArrayLength(db, "d.blocages") + " > 0")
	}
	if filter.MinCommission != nil {
		stmt = stmt.Where("COALESCE(d.commission_partenaire_eur, 0) >= ?", *filter.MinCommission)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		fullName := concatExpr(db, "COALESCE(c.prenom, '')", "' '", "COALESCE(c.nom, '')")
		stmt = stmt.Where(
			"(LOWER("+fullName+") LIKE ? OR LOWER(COALESCE(c.email, '')) LIKE ? OR LOWER(COALESCE(e.denomination, '')) LIKE ? OR "+textCast(db, "d.id")+" LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultClientLimit
	}

	var rows []clientRow
	err := stmt.
		Order("d.date_creation desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ClientRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ClientRecord{
			CaseID:            row.CaseID,
			ClientID:          row.ClientID,
			CompanyID:         row.CompanyID,
			Status:            crmdomain.CaseStatus(row.Status),
			CreatedOn:         row.CreatedOn,
			EffectiveOn:       row.EffectiveOn,
			LastModified:      row.LastModified,
			Blockers:          []string(row.Blockers),
			PartnerCommission: row.PartnerCommission,
			FirstName:         deref(row.FirstName),
			LastName:          deref(row.LastName),
			Email:             deref(row.Email),
			Phone:             deref(row.Phone),
			CompanyName:       deref(row.CompanyName),
			CompanyForm:       deref(row.CompanyForm),
			PaymentService:    row.PaymentService.Data(),
			CommissionRate:    row.CommissionRate,
		})
	}
	return out, nil
}

func (r *repo) ListInteractions(ctx context.Context, db *gorm.DB, filter domain.InteractionFilter) ([]domain.Interaction, error) {
	stmt := db.WithContext(ctx).Where("partner_id = ?", filter.PartnerID)
	if t := strings.TrimSpace(filter.Type); t != "" && t != "all" {
		stmt = stmt.Where("type_interaction = ?", t)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultInteractionLimit
	}

	var rows []domain.Interaction
	err := stmt.
		Order("date_interaction desc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repo) ListPendingActions(ctx context.Context, db *gorm.DB, partnerID int64, today time.Time, limit int) ([]domain.PendingAction, error) {
	var rows []domain.Interaction
	err := db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Where("prochaine_action IS NOT NULL AND prochaine_action <> ''").
		Where("statut <> ?", domain.InteractionDone).
		Where("(rappel_date IS NULL OR rappel_date >= ?)", today).
		Order("COALESCE(rappel_date, date_interaction) asc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.PendingAction, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.PendingAction{
			ID:           row.ID,
			Subject:      row.Subject,
			NextAction:   deref(row.NextAction),
			ReminderDate: row.ReminderDate,
			Type:         row.Type,
		})
	}
	return out, nil
}

func (r *repo) InteractionStats(ctx context.Context, db *gorm.DB, partnerID int64, since time.Time) (domain.InteractionStats, error) {
	var counts struct {
		Total          int64
		Recent         int64
		Calls          int64
		Meetings       int64
		PendingActions int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Interaction{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN date_interaction >= ? THEN 1 ELSE 0 END), 0) AS recent,
			COALESCE(SUM(CASE WHEN type_interaction = ? THEN 1 ELSE 0 END), 0) AS calls,
			COALESCE(SUM(CASE WHEN type_interaction = ? THEN 1 ELSE 0 END), 0) AS meetings,
			COALESCE(SUM(CASE WHEN prochaine_action IS NOT NULL AND prochaine_action <> '' AND statut <> ? THEN 1 ELSE 0 END), 0) AS pending_actions`,
			since, domain.InteractionCall, domain.InteractionMeeting, domain.InteractionDone).
		Where("partner_id = ?", partnerID).
		Scan(&counts).Error
	if err != nil {
		return domain.InteractionStats{}, err
	}

	stats := domain.InteractionStats{
		Total:          counts.Total,
		Last30Days:     counts.Recent,
		Calls:          counts.Calls,
		Meetings:       counts.Meetings,
		PendingActions: counts.PendingActions,
	}

	var last []domain.Interaction
	err = db.WithContext(ctx).
		Select("id", "date_interaction").
		Where("partner_id = ?", partnerID).
		Order("date_interaction desc").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return domain.InteractionStats{}, err
	}
	if len(last) == 1 {
		at := last[0].Date
		stats.LastInteraction = &at
	}
	return stats, nil
}

func (r *repo) ListParticipants(ctx context.Context, db *gorm.DB, partnerID int64) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Model(&domain.Interaction{}).
		Distinct("participant").
		Where("partner_id = ? AND participant IS NOT NULL AND participant <> ''", partnerID).
		Order("participant").
		Pluck("participant", &names).Error
	return names, err
}

func (r *repo) InsertInteraction(ctx context.Context, db *gorm.DB, interaction *domain.Interaction) error {
	return db.WithContext(ctx).Create(interaction).Error
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
