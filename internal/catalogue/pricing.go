package catalogue

import (
	"fmt"

	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
)

const (
	// MinQtyPerLine and MaxQtyPerLine bound each cart line.
	MinQtyPerLine = 1
	MaxQtyPerLine = 10
)

// CartItem is a client-supplied cart line. Only the id and quantity are
// trusted; prices always come from the catalogue.
type CartItem struct {
	ProductID string `json:"id" validate:"required"`
	Qty       int    `json:"qty" validate:"required"`
}

// ValidatedLine pairs a catalogue product with its validated quantity and
// computed per-line totals.
type ValidatedLine struct {
	Product       Product `json:"product"`
	Qty           int     `json:"qty"`
	ItemTotal     int     `json:"item_total_cents"`
	ShippingTotal int     `json:"shipping_total_cents"`
}

// Breakdown is the server-side pricing result used for order creation and
// Stripe line items.
type Breakdown struct {
	ItemsTotalCents    int             `json:"items_total_cents"`
	ShippingTotalCents int             `json:"shipping_total_cents"`
	GrandTotalCents    int             `json:"grand_total_cents"`
	Lines              []ValidatedLine `json:"lines"`
}

// ComputeCartTotals re-prices the cart from the catalogue. Validation is
// fail-fast per line: unknown/inactive product, then quantity bounds, then
// stock. Shipping is charged per unit in delivery mode only.
func ComputeCartTotals(items []CartItem, mode enums.FulfillmentMode) (*Breakdown, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid fulfillment mode %q", mode))
	}

	breakdown := &Breakdown{Lines: make([]ValidatedLine, 0, len(items))}

	for _, item := range items {
		product, ok := Lookup(item.ProductID)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product not found: %s", item.ProductID))
		}

		if item.Qty < MinQtyPerLine || item.Qty > MaxQtyPerLine {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity for %s: %d", product.Name, item.Qty))
		}

		if product.StockQuantity != nil && *product.StockQuantity < item.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("insufficient stock for %s", product.Name))
		}

		itemTotal := product.PriceCents * item.Qty
		itemShipping := 0
		if mode == enums.FulfillmentModeDelivery {
			itemShipping = product.ShippingCents * item.Qty
		}

		breakdown.ItemsTotalCents += itemTotal
		breakdown.ShippingTotalCents += itemShipping
		breakdown.Lines = append(breakdown.Lines, ValidatedLine{
			Product:       product,
			Qty:           item.Qty,
			ItemTotal:     itemTotal,
			ShippingTotal: itemShipping,
		})
	}

	breakdown.GrandTotalCents = breakdown.ItemsTotalCents + breakdown.ShippingTotalCents
	return breakdown, nil
}
