package purchases

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/angelmondragon/ttml-backend/pkg/db/models"
)

// ReceiptData is everything printed on a purchase receipt.
type ReceiptData struct {
	CompanyName   string
	CustomerName  string
	CustomerEmail string
	PlanName      string
	BasePrice     string
	Purchase      models.Purchase
}

// RenderReceipt lays out a single-page receipt for one purchase.
func RenderReceipt(data ReceiptData) ([]byte, error) {
	p := data.Purchase
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Receipt", props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, data.CompanyName, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right, Top: 4}),
	)
	m.AddRow(24,
		col.New(6).Add(
			text.New("Receipt number: "+p.ID.String(), props.Text{Size: 9}),
			text.New("Date paid: "+p.CreatedAt.UTC().Format("January 2, 2006"), props.Text{Size: 9, Top: 5}),
			text.New("Payment reference: "+p.PaymentID, props.Text{Size: 9, Top: 10}),
		),
		col.New(6).Add(
			text.New("Billed to", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
			text.New(data.CustomerName, props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New(data.CustomerEmail, props.Text{Size: 9, Top: 10, Align: align.Right}),
		),
	)
	m.AddRow(4, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, data.PlanName, props.Text{Size: 9}),
		text.NewCol(3, data.BasePrice, props.Text{Size: 9, Align: align.Right}),
		text.NewCol(3, data.BasePrice, props.Text{Size: 9, Align: align.Right}),
	)
	if p.DiscountPercent > 0 {
		label := fmt.Sprintf("Discount (%d%%)", p.DiscountPercent)
		if p.CouponCode != nil && strings.TrimSpace(*p.CouponCode) != "" {
			label = fmt.Sprintf("Coupon %s (%d%%)", *p.CouponCode, p.DiscountPercent)
		}
		m.AddRow(10,
			text.NewCol(9, label, props.Text{Size: 9}),
			text.NewCol(3, "applied", props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(4, line.NewCol(12))
	m.AddRow(12,
		col.New(6),
		text.NewCol(3, "Total paid", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(3, "$"+p.Amount.StringFixed(2), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(12, "Payment status: "+p.PaymentStatus+" via "+p.PaymentProvider, props.Text{Size: 8, Top: 3}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return doc.GetBytes(), nil
}
