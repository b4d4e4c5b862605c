package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/internal/catalogue"
	"github.com/lafabrik/boutique-backend/internal/orders"
	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
)

const (
	currencyEUR          = "eur"
	shippingLineName     = "Frais de livraison"
	shippingLineDesc     = "Livraison par La Poste"
	defaultPolicyVersion = "1.0"
)

// SessionCreator is the slice of the Stripe API the checkout flow needs.
type SessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BeginInput is a client checkout request. Prices are never taken from the
// client; the cart is re-priced from the catalogue.
type BeginInput struct {
	Items            []catalogue.CartItem  `json:"items" validate:"required,min=1,dive"`
	FulfillmentMode  enums.FulfillmentMode `json:"fulfillmentMode" validate:"required"`
	PickupLocationID *string               `json:"pickupLocationId,omitempty"`
	CustomerPhone    *string               `json:"customerPhone,omitempty"`
	GDPRConsent      bool                  `json:"gdprConsent"`

	// Request metadata recorded with the consent, not client-supplied fields.
	ClientIP  string `json:"-"`
	UserAgent string `json:"-"`
}

// BeginResult carries the Stripe redirect for the storefront.
type BeginResult struct {
	OrderID    uuid.UUID `json:"orderId"`
	SessionID  string    `json:"sessionId"`
	SessionURL string    `json:"url"`
}

// Service drives checkout initiation.
type Service interface {
	Begin(ctx context.Context, input BeginInput) (*BeginResult, error)
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Orders   orders.Repository
	Tx       txRunner
	Sessions SessionCreator

	BaseURL          string
	SuccessPath      string
	CancelPath       string
	PickupLocationID string
	PolicyVersion    string
}

type service struct {
	orders   orders.Repository
	tx       txRunner
	sessions SessionCreator

	baseURL          string
	successPath      string
	cancelPath       string
	pickupLocationID string
	policyVersion    string
}

// NewService validates dependencies and builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("stripe session creator required")
	}
	if params.BaseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	if params.SuccessPath == "" {
		params.SuccessPath = "/commande/success"
	}
	if params.CancelPath == "" {
		params.CancelPath = "/panier"
	}
	if params.PickupLocationID == "" {
		params.PickupLocationID = "la-fabrik"
	}
	if params.PolicyVersion == "" {
		params.PolicyVersion = defaultPolicyVersion
	}
	return &service{
		orders:           params.Orders,
		tx:               params.Tx,
		sessions:         params.Sessions,
		baseURL:          params.BaseURL,
		successPath:      params.SuccessPath,
		cancelPath:       params.CancelPath,
		pickupLocationID: params.PickupLocationID,
		policyVersion:    params.PolicyVersion,
	}, nil
}

// Begin re-prices the cart, persists a pending order with its consent record,
// opens a Stripe Checkout Session and writes the session id back.
func (s *service) Begin(ctx context.Context, input BeginInput) (*BeginResult, error) {
	if !input.GDPRConsent {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consent is required")
	}

	breakdown, err := catalogue.ComputeCartTotals(input.Items, input.FulfillmentMode)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		Status:             enums.OrderStatusPending,
		FulfillmentMode:    input.FulfillmentMode,
		CustomerPhone:      input.CustomerPhone,
		ItemsTotalCents:    breakdown.ItemsTotalCents,
		ShippingTotalCents: breakdown.ShippingTotalCents,
		GrandTotalCents:    breakdown.GrandTotalCents,
	}
	if input.FulfillmentMode == enums.FulfillmentModePickup {
		location := s.pickupLocationID
		if input.PickupLocationID != nil && *input.PickupLocationID != "" {
			location = *input.PickupLocationID
		}
		order.PickupLocationID = &location
	}

	lines := make([]models.OrderLine, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		image := line.Product.Image
		lines = append(lines, models.OrderLine{
			ProductID:            line.Product.ID,
			Qty:                  line.Qty,
			UnitPriceCents:       line.Product.PriceCents,
			ShippingCentsPerUnit: line.Product.ShippingCents,
			NameSnapshot:         line.Product.Name,
			ImageSnapshot:        &image,
		})
	}

	consent := &models.ConsentRecord{
		PrivacyPolicyVersion: s.policyVersion,
	}
	if input.ClientIP != "" {
		ip := input.ClientIP
		consent.IPAddress = &ip
	}
	if input.UserAgent != "" {
		agent := input.UserAgent
		consent.UserAgent = &agent
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, txErr := s.orders.WithTx(tx).CreateWithLines(ctx, order, lines, consent)
		return txErr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}

	session, err := s.sessions.Create(ctx, s.sessionParams(order, breakdown))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stripe checkout session")
	}

	if err := s.orders.SetStripeSession(ctx, order.ID, session.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "linking stripe session to order")
	}

	return &BeginResult{
		OrderID:    order.ID,
		SessionID:  session.ID,
		SessionURL: session.URL,
	}, nil
}

func (s *service) sessionParams(order *models.Order, breakdown *catalogue.Breakdown) *stripe.CheckoutSessionCreateParams {
	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(breakdown.Lines)+1)
	for _, line := range breakdown.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(currencyEUR),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name:        stripe.String(line.Product.Name),
					Description: stripe.String(line.Product.Description),
					Images:      []*string{stripe.String(line.Product.Image)},
				},
				UnitAmount: stripe.Int64(int64(line.Product.PriceCents)),
			},
			Quantity: stripe.Int64(int64(line.Qty)),
		})
	}

	isDelivery := order.FulfillmentMode == enums.FulfillmentModeDelivery
	if isDelivery && breakdown.ShippingTotalCents > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(currencyEUR),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name:        stripe.String(shippingLineName),
					Description: stripe.String(shippingLineDesc),
				},
				UnitAmount: stripe.Int64(int64(breakdown.ShippingTotalCents)),
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(fmt.Sprintf("%s%s?session_id={CHECKOUT_SESSION_ID}", s.baseURL, s.successPath)),
		CancelURL:  stripe.String(s.baseURL + s.cancelPath),
		Metadata: map[string]string{
			"orderId":         order.ID.String(),
			"fulfillmentMode": string(order.FulfillmentMode),
		},
		PhoneNumberCollection: &stripe.CheckoutSessionCreatePhoneNumberCollectionParams{
			Enabled: stripe.Bool(order.FulfillmentMode == enums.FulfillmentModePickup),
		},
	}
	if isDelivery {
		params.ShippingAddressCollection = &stripe.CheckoutSessionCreateShippingAddressCollectionParams{
			AllowedCountries: []*string{stripe.String("FR")},
		}
	}
	return params
}
