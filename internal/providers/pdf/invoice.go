package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Party is one side of the invoice.
type Party struct {
	Name    string
	Address string
	Email   string
	Phone   string
	SIRET   string
}

type PaymentDetails struct {
	Terms       string
	IBAN        string
	BIC         string
	Holder      string
	LatePenalty string
}

// CommissionInvoice is the document a partner issues for its commission
// on one period. Amounts are preformatted.
type CommissionInvoice struct {
	Number    string
	IssueDate string
	DueDate   string
	Period    string
	Status    string

	Seller Party
	BillTo Party

	CaseCount int
	Revenue   string
	Rate      string
	Amount    string

	TotalExclTax string
	VAT          string
	TotalInclTax string

	Payment PaymentDetails
	Legal   []string
}

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

var (
	normal = props.Text{Size: 9}
	bold   = props.Text{Size: 9, Style: fontstyle.Bold}
	right  = props.Text{Size: 9, Align: align.Right}
)

func (r *MarotoRenderer) RenderCommissionInvoice(ctx context.Context, inv CommissionInvoice) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(inv.Number) == "" {
		return nil, fmt.Errorf("invoice number is required")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
		}).
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()

	m := maroto.New(cfg)

	m.AddRow(30,
		col.New(7).Add(partyLines(inv.Seller, true, 0)...),
		col.New(5).Add(
			text.New("FACTURE", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right}),
			text.New("N° "+inv.Number, props.Text{Size: 9, Top: 9, Align: align.Right}),
			text.New("Date : "+inv.IssueDate, props.Text{Size: 9, Top: 14, Align: align.Right}),
			text.New("Échéance : "+inv.DueDate, props.Text{Size: 9, Top: 19, Align: align.Right}),
		),
	)

	m.AddRow(6)
	m.AddRow(28,
		col.New(6).Add(append(
			[]core.Component{text.New("Facturé à", bold)},
			partyLines(inv.BillTo, false, 5)...,
		)...),
		col.New(6).Add(
			text.New("Détails", props.Text{Size: 9, Style: fontstyle.Bold}),
			text.New("Période : "+inv.Period, props.Text{Size: 9, Top: 5}),
			text.New("Statut : "+inv.Status, props.Text{Size: 9, Top: 10}),
			text.New(fmt.Sprintf("Dossiers payés : %d", inv.CaseCount), props.Text{Size: 9, Top: 15}),
			text.New("Chiffre d'affaires : "+inv.Revenue, props.Text{Size: 9, Top: 20}),
		),
	)

	m.AddRow(8,
		text.NewCol(4, "Description", bold),
		text.NewCol(2, "Période", bold),
		text.NewCol(2, "Base CA", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Taux", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Montant", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		text.NewCol(4, "Commission apporteur d'affaires", normal),
		text.NewCol(2, inv.Period, normal),
		text.NewCol(2, inv.Revenue, right),
		text.NewCol(2, inv.Rate+" %", right),
		text.NewCol(2, inv.Amount, right),
	)
	m.AddRow(2, line.NewCol(12))

	m.AddRow(6, col.New(8), text.NewCol(2, "Total HT", normal), text.NewCol(2, inv.TotalExclTax, right))
	m.AddRow(6, col.New(8), text.NewCol(2, "TVA", normal), text.NewCol(2, inv.VAT, right))
	m.AddRow(7, col.New(8), text.NewCol(2, "Total TTC", bold), text.NewCol(2, inv.TotalInclTax, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}))

	m.AddRow(8)
	m.AddRow(6, text.NewCol(12, "Informations de paiement", bold))
	m.AddRow(24, col.New(12).Add(paymentLines(inv.Payment)...))

	if len(inv.Legal) > 0 {
		m.AddRow(10, text.NewCol(12, strings.Join(inv.Legal, " - "), props.Text{Size: 7, Align: align.Center, Top: 4}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func partyLines(p Party, heading bool, top float64) []core.Component {
	style := props.Text{Size: 8, Top: top}
	if heading {
		style = props.Text{Size: 11, Style: fontstyle.Bold, Top: top}
	}
	lines := []core.Component{text.New(p.Name, style)}

	top += 6
	for _, v := range []string{p.Address, p.Email, p.Phone} {
		if strings.TrimSpace(v) == "" {
			continue
		}
		lines = append(lines, text.New(v, props.Text{Size: 8, Top: top}))
		top += 4
	}
	if p.SIRET != "" {
		lines = append(lines, text.New("SIRET : "+p.SIRET, props.Text{Size: 8, Top: top}))
	}
	return lines
}

func paymentLines(p PaymentDetails) []core.Component {
	var lines []core.Component
	top := 0.0
	add := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if label != "" {
			value = label + " : " + value
		}
		lines = append(lines, text.New(value, props.Text{Size: 8, Top: top}))
		top += 4
	}
	add("", p.Terms)
	add("IBAN", p.IBAN)
	add("BIC", p.BIC)
	add("Titulaire", p.Holder)
	add("", p.LatePenalty)
	return lines
}
