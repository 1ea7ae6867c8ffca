package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/partnerdesk/internal/invoice/domain"
)

type listInvoicesQuery struct {
	SortBy  string `form:"sort_by"`
	OrderBy string `form:"order_by"`
}

func (s *Server) ListPartnerInvoices(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var query listInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PartnerID: partnerID,
		SortBy:    strings.TrimSpace(query.SortBy),
		OrderBy:   strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) DownloadPartnerInvoicePDF(c *gin.Context) {
	partnerID, err := pathPartnerID(c)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}
	invoiceID := strings.TrimSpace(c.Param("invoiceId"))
	if invoiceID == "" {
		AbortWithError(c, newValidationError("invoiceId", "invalid_invoice_id", "invalid invoice id"))
		return
	}

	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), partnerID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Filename))
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}
