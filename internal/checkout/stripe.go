package checkout

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	stripeclient "github.com/lafabrik/boutique-backend/pkg/stripe"
)

type stripeSessions struct {
	api *stripe.Client
}

// NewSessionCreator adapts the shared Stripe client to the checkout flow.
func NewSessionCreator(client *stripeclient.Client) (SessionCreator, error) {
	if client == nil || client.API() == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &stripeSessions{api: client.API()}, nil
}

func (s *stripeSessions) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return s.api.V1CheckoutSessions.Create(ctx, params)
}
