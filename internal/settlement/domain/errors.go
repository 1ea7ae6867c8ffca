package domain

import "errors"

var (
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrInvalidPartnerID = errors.New("invalid_partner_id")
	ErrInvalidRate      = errors.New("invalid_rate")
	ErrPartnerNotFound  = errors.New("partner_not_found")
	ErrPersistence      = errors.New("persistence_failure")

	// ErrInvoiceIDCollision means the candidate id was already taken by an
	// invoice of another (partner, period).
	ErrInvoiceIDCollision = errors.New("invoice_id_collision")
)
