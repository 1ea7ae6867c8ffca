package domain

import (
	"context"
	"errors"
)

const (
	DefaultClientLimit      = 1000
	MaxClientLimit          = 5000
	DefaultInteractionLimit = 50
	MaxPendingActions       = 10
	DefaultCreatedBy        = "Opérateur"
)

type Service interface {
	Overview(ctx context.Context, partnerID int64) (*Overview, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]ClientRow, error)
	ListInteractions(ctx context.Context, filter InteractionFilter) (*InteractionsView, error)
	CreateInteraction(ctx context.Context, partnerID int64, req CreateInteractionRequest) (*Interaction, error)
}

var (
	ErrInvalidPartnerID       = errors.New("invalid_partner_id")
	ErrPartnerNotFound        = errors.New("partner_not_found")
	ErrInvalidInteractionType = errors.New("invalid_interaction_type")
	ErrInvalidDirection       = errors.New("invalid_direction")
	ErrSubjectRequired        = errors.New("subject_required")
	ErrInvalidDuration        = errors.New("invalid_duration")
	ErrInvalidDateRange       = errors.New("invalid_date_range")
)
