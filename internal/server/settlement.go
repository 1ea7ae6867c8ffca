package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	settlementdomain "github.com/smallbiznis/partnerdesk/internal/settlement/domain"
)

const (
	settleActionPreview = "preview"
	settleActionCreate  = "create"
)

type settleInvoiceRequest struct {
	Period  string           `json:"period"`
	Periode string           `json:"periode"`
	Rate    *decimal.Decimal `json:"rate"`
	Action  string           `json:"action"`
	DryRun  *bool            `json:"dryRun"`
}

func (r settleInvoiceRequest) period() string {
	if p := strings.TrimSpace(r.Period); p != "" {
		return p
	}
	return strings.TrimSpace(r.Periode)
}

// dryRun honours an explicit flag first, then the action.
func (r settleInvoiceRequest) dryRun() bool {
	if r.DryRun != nil {
		return *r.DryRun
	}
	return strings.EqualFold(strings.TrimSpace(r.Action), settleActionPreview)
}

type closeMonthRequest struct {
	PartnerID *int64 `json:"partnerId"`
	Period    string `json:"period"`
}

type settlementResponse struct {
	OK         bool    `json:"ok"`
	Period     string  `json:"period"`
	PartnerID  int64   `json:"partnerId"`
	Revenue    float64 `json:"ca"`
	CaseCount  int     `json:"dossiers"`
	Commission float64 `json:"commission"`
	InvoiceID  string  `json:"invoiceId"`
	Status     string  `json:"statut"`
	Date       string  `json:"date"`
}

type settlementPreviewResponse struct {
	Period     string  `json:"period"`
	PartnerID  int64   `json:"partnerId"`
	Revenue    float64 `json:"revenue"`
	CaseCount  int     `json:"caseCount"`
	Commission float64 `json:"commission"`
	Rate       float64 `json:"rate"`
	DryRun     bool    `json:"dryRun"`
}

func (s *Server) SettlePartnerInvoice(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req settleInvoiceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dryRun := req.dryRun()
	if !dryRun && !s.allowSettlement(c, partnerID) {
		return
	}

	result, err := s.settlementSvc.SettlePeriod(c.Request.Context(), settlementdomain.SettleRequest{
		PartnerID: partnerID,
		Period:    req.period(),
		DryRun:    dryRun,
		Rate:      req.Rate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if !dryRun || strings.EqualFold(strings.TrimSpace(req.Action), settleActionCreate) {
		status = http.StatusCreated
	}
	c.JSON(status, settlementBody(result))
}

func (s *Server) PreviewPartnerInvoice(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req settleInvoiceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.settlementSvc.SettlePeriod(c.Request.Context(), settlementdomain.SettleRequest{
		PartnerID: partnerID,
		Period:    req.period(),
		DryRun:    true,
		Rate:      req.Rate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settlementBody(result))
}

func (s *Server) CloseMonth(c *gin.Context) {
	var req closeMonthRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.PartnerID == nil || *req.PartnerID <= 0 {
		AbortWithError(c, newValidationError("partnerId", "required", "partnerId is required"))
		return
	}
	if !s.allowSettlement(c, *req.PartnerID) {
		return
	}

	result, err := s.settlementSvc.SettlePeriod(c.Request.Context(), settlementdomain.SettleRequest{
		PartnerID: *req.PartnerID,
		Period:    strings.TrimSpace(req.Period),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settlementBody(result))
}

func settlementBody(result *settlementdomain.Result) any {
	if result.DryRun {
		return settlementPreviewResponse{
			Period:     result.Period,
			PartnerID:  result.PartnerID,
			Revenue:    money(result.Revenue),
			CaseCount:  result.CaseCount,
			Commission: money(result.Commission),
			Rate:       money(result.Rate),
			DryRun:     true,
		}
	}
	return settlementResponse{
		OK:         result.OK,
		Period:     result.Period,
		PartnerID:  result.PartnerID,
		Revenue:    money(result.Revenue),
		CaseCount:  result.CaseCount,
		Commission: money(result.Commission),
		InvoiceID:  result.InvoiceID,
		Status:     string(result.Status),
		Date:       result.Date.Format(dateOnlyLayout),
	}
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// bindOptionalJSON treats an empty body as an empty object.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
