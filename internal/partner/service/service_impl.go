package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/partnerdesk/internal/audit/domain"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	crmdomain "github.com/smallbiznis/partnerdesk/internal/crm/domain"
	"github.com/smallbiznis/partnerdesk/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("partner.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Overview(ctx context.Context, partnerID int64) (*domain.Overview, error) {
	partner, err := s.loadPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	periods, err := s.repo.ListPeriodSummaries(ctx, s.db, partnerID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repo.ListInvoices(ctx, s.db, partnerID)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, s.db, partnerID, "email")
	if err != nil {
		return nil, err
	}
	cases, err := s.repo.ListCases(ctx, s.db, partnerID)
	if err != nil {
		return nil, err
	}
	exports, err := s.repo.ListExports(ctx, s.db, partnerID)
	if err != nil {
		return nil, err
	}

	totals := domain.DerivedTotals{
		RevenueTotal:     decimal.Zero,
		CommissionsTotal: decimal.Zero,
	}
	for _, p := range periods {
		totals.RevenueTotal = totals.RevenueTotal.Add(p.Revenue)
		totals.CommissionsTotal = totals.CommissionsTotal.Add(p.Commissions)
		totals.PaidCases += p.CaseCount
	}

	return &domain.Overview{
		Partner: domain.PartnerSummary{
			Partner:          *partner,
			RevenueTotal:     totals.RevenueTotal,
			CommissionsTotal: totals.CommissionsTotal,
		},
		Periods:        nonNil(periods),
		Invoices:       nonNil(invoices),
		Users:          nonNil(users),
		Cases:          nonNil(cases),
		ExportsHistory: nonNil(exports),
		DerivedTotals:  totals,
	}, nil
}

func (s *Service) ListClients(ctx context.Context, filter domain.ClientFilter) ([]domain.ClientRow, error) {
	if filter.PartnerID <= 0 {
		return nil, domain.ErrInvalidPartnerID
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.ErrInvalidDateRange
	}
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultClientLimit
	}
	if filter.Limit > domain.MaxClientLimit {
		filter.Limit = domain.MaxClientLimit
	}

	records, err := s.repo.ListClients(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ClientRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toClientRow(rec))
	}
	return rows, nil
}

func toClientRow(rec domain.ClientRecord) domain.ClientRow {
	commission := rec.PaymentService.Commission(rec.CommissionRate).Round(2)
	if commission.IsZero() && rec.PartnerCommission != nil {
		commission = *rec.PartnerCommission
	}
	blockers := rec.Blockers
	if blockers == nil {
		blockers = []string{}
	}

	return domain.ClientRow{
		ID:             rec.ClientID,
		CaseID:         rec.CaseID,
		CompanyID:      rec.CompanyID,
		LastName:       rec.LastName,
		FirstName:      rec.FirstName,
		Email:          rec.Email,
		Phone:          rec.Phone,
		Status:         rec.Status,
		CreatedOn:      rec.CreatedOn,
		EffectiveOn:    rec.EffectiveOn,
		LastModified:   rec.LastModified,
		Blockers:       blockers,
		Commission:     commission,
		CommissionRate: rec.CommissionRate,
		CompanyName:    rec.CompanyName,
		CompanyForm:    rec.CompanyForm,
		FullName:       strings.TrimSpace(rec.FirstName + " " + rec.LastName),
		HasBlocked:     len(rec.Blockers) > 0,
		IsCompleted:    rec.Status == crmdomain.CaseStatusValidated,
		IsRejected:     rec.Status == crmdomain.CaseStatusRejected,
	}
}

func (s *Service) ListInteractions(ctx context.Context, filter domain.InteractionFilter) (*domain.InteractionsView, error) {
	partner, err := s.loadPartner(ctx, filter.PartnerID)
	if err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultInteractionLimit
	}

	now := s.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	interactions, err := s.repo.ListInteractions(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.ListPendingActions(ctx, s.db, partner.ID, today, domain.MaxPendingActions)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.InteractionStats(ctx, s.db, partner.ID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, s.db, partner.ID, "nom")
	if err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, s.db, partner.ID)
	if err != nil {
		return nil, err
	}

	referent := partner.Referent.Data()
	return &domain.InteractionsView{
		Partner: domain.PartnerRef{
			ID:       partner.ID,
			Name:     partner.Name,
			Referent: referent,
		},
		Interactions:      nonNil(interactions),
		NextActions:       nonNil(pending),
		Stats:             stats,
		SuggestedContacts: suggestContacts(referent, users, participants),
		References:        domain.InteractionReferences,
	}, nil
}

// suggestContacts lists the referent, then partner users, then people met
// before, skipping names already present (case-insensitive).
func suggestContacts(referent crmdomain.Referent, users []crmdomain.PartnerUser, participants []string) []domain.SuggestedContact {
	contacts := []domain.SuggestedContact{}
	seen := map[string]bool{}

	add := func(c domain.SuggestedContact) {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		contacts = append(contacts, c)
	}

	if referent.Name != "" {
		add(domain.SuggestedContact{
			Name:    referent.Name,
			Email:   referent.Email,
			Type:    "Référent principal",
			Display: withEmail(referent.Name, referent.Email) + " - Référent",
		})
	}
	for _, u := range users {
		add(domain.SuggestedContact{
			Name:    u.Name,
			Email:   u.Email,
			Type:    "Utilisateur " + u.Role,
			Display: withEmail(u.Name, u.Email) + " - " + u.Role,
		})
	}
	for _, p := range participants {
		add(domain.SuggestedContact{
			Name:    p,
			Type:    "Contact historique",
			Display: p + " - Contact historique",
		})
	}
	return contacts
}

func withEmail(name, email string) string {
	if email == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, email)
}

func (s *Service) CreateInteraction(ctx context.Context, partnerID int64, req domain.CreateInteractionRequest) (*domain.Interaction, error) {
	if partnerID <= 0 {
		return nil, domain.ErrInvalidPartnerID
	}

	kind := domain.InteractionType(strings.TrimSpace(req.Type))
	if !kind.Valid() {
		return nil, domain.ErrInvalidInteractionType
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, domain.ErrSubjectRequired
	}
	direction := domain.Direction(strings.TrimSpace(req.Direction))
	if direction == "" {
		direction = domain.DirectionOutbound
	}
	if !direction.Valid() {
		return nil, domain.ErrInvalidDirection
	}
	if req.DurationMinutes != nil && *req.DurationMinutes < 0 {
		return nil, domain.ErrInvalidDuration
	}

	createdBy := strings.TrimSpace(req.CreatedBy)
	if createdBy == "" {
		createdBy = domain.DefaultCreatedBy
	}

	now := s.clock.Now().UTC()
	interaction := domain.Interaction{
		PartnerID:       partnerID,
		Date:            now,
		Type:            kind,
		Direction:       direction,
		Subject:         subject,
		Notes:           strings.TrimSpace(req.Notes),
		Participant:     strings.TrimSpace(req.Participant),
		DurationMinutes: req.DurationMinutes,
		Status:          domain.InteractionTodo,
		ReminderDate:    req.ReminderDate,
		CreatedBy:       createdBy,
		CreatedAt:       now,
	}
	if next := strings.TrimSpace(req.NextAction); next != "" {
		interaction.NextAction = &next
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		partner, err := s.repo.FindPartner(ctx, tx, partnerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return domain.ErrPartnerNotFound
		}
		if err := s.repo.InsertInteraction(ctx, tx, &interaction); err != nil {
			return err
		}
		if s.auditSvc == nil {
			return nil
		}
		targetID := strconv.FormatInt(interaction.ID, 10)
		return s.auditSvc.WithTx(tx).AuditLog(ctx, "", nil, "partner.interaction.created", "partner_interaction", &targetID, map[string]any{
			"partner_id":       partnerID,
			"type_interaction": string(kind),
			"direction":        string(direction),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("partner interaction created",
		zap.Int64("partner_id", partnerID),
		zap.Int64("interaction_id", interaction.ID),
		zap.String("type", string(kind)),
	)
	return &interaction, nil
}

func (s *Service) loadPartner(ctx context.Context, partnerID int64) (*crmdomain.Partner, error) {
	if partnerID <= 0 {
		return nil, domain.ErrInvalidPartnerID
	}
	partner, err := s.repo.FindPartner(ctx, s.db, partnerID)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, domain.ErrPartnerNotFound
	}
	return partner, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
