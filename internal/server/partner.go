package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	partnerdomain "github.com/smallbiznis/partnerdesk/internal/partner/domain"
)

type listClientsQuery struct {
	Search      string `form:"search"`
	Status      string `form:"statut"`
	DateDebut   string `form:"dateDebut"`
	DateFin     string `form:"dateFin"`
	ShowBlocked string `form:"showBlocked"`
	Commission  string `form:"commission"`
	Limit       string `form:"limit"`
}

type listInteractionsQuery struct {
	Type  string `form:"type"`
	Limit string `form:"limit"`
}

type createInteractionRequest struct {
	Type            string  `json:"type_interaction"`
	Direction       string  `json:"direction"`
	Subject         string  `json:"sujet"`
	Notes           string  `json:"notes"`
	Participant     string  `json:"participant"`
	DurationMinutes *int    `json:"duree_minutes"`
	NextAction      string  `json:"prochaine_action"`
	ReminderDate    *string `json:"rappel_date"`
	CreatedBy       string  `json:"created_by"`
}

func (s *Server) GetPartnerOverview(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	overview, err := s.partnerSvc.Overview(c.Request.Context(), partnerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

func (s *Server) ListPartnerClients(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var query listClientsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(query.DateDebut, false)
	if err != nil {
		AbortWithError(c, newValidationError("dateDebut", "invalid_date", "invalid dateDebut"))
		return
	}
	to, err := parseOptionalTime(query.DateFin, false)
	if err != nil {
		AbortWithError(c, newValidationError("dateFin", "invalid_date", "invalid dateFin"))
		return
	}
	minCommission, err := parseOptionalDecimal(query.Commission)
	if err != nil {
		AbortWithError(c, newValidationError("commission", "invalid_commission", "invalid commission"))
		return
	}
	limit, err := parseOptionalInt(query.Limit)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	// only the literal "true" turns the blocked filter on
	onlyBlocked := strings.TrimSpace(query.ShowBlocked) == "true"

	filter := partnerdomain.ClientFilter{
		PartnerID:     partnerID,
		Search:        strings.TrimSpace(query.Search),
		Status:        strings.TrimSpace(query.Status),
		From:          from,
		To:            to,
		OnlyBlocked:   onlyBlocked,
		MinCommission: minCommission,
	}
	if limit != nil {
		filter.Limit = *limit
	}

	clients, err := s.partnerSvc.ListClients(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func (s *Server) ListPartnerInteractions(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var query listInteractionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	limit, err := parseOptionalInt(query.Limit)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	filter := partnerdomain.InteractionFilter{
		PartnerID: partnerID,
		Type:      strings.TrimSpace(query.Type),
	}
	if limit != nil {
		filter.Limit = *limit
	}

	view, err := s.partnerSvc.ListInteractions(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) CreatePartnerInteraction(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req createInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var reminder *time.Time
	if req.ReminderDate != nil {
		reminder, err = parseOptionalTime(*req.ReminderDate, false)
		if err != nil {
			AbortWithError(c, newValidationError("rappel_date", "invalid_rappel_date", "invalid rappel_date"))
			return
		}
	}

	interaction, err := s.partnerSvc.CreateInteraction(c.Request.Context(), partnerID, partnerdomain.CreateInteractionRequest{
		Type:            req.Type,
		Direction:       req.Direction,
		Subject:         req.Subject,
		Notes:           req.Notes,
		Participant:     req.Participant,
		DurationMinutes: req.DurationMinutes,
		NextAction:      req.NextAction,
		ReminderDate:    reminder,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"interaction": interaction,
		"message":     "Interaction créée avec succès",
	})
}
