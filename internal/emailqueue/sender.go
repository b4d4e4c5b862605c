package emailqueue

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/internal/orders"
	"github.com/lafabrik/boutique-backend/pkg/db/models"
	"github.com/lafabrik/boutique-backend/pkg/enums"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	redispkg "github.com/lafabrik/boutique-backend/pkg/redis"
)

const qrCodeSize = 256

// Transport is the narrow slice of the Resend client the sender needs.
type Transport interface {
	SendWithContext(ctx context.Context, req *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// SenderParams wires the Resend-backed sender.
type SenderParams struct {
	Orders         orders.Repository
	Secrets        redispkg.SecretCache
	Transport      Transport
	From           string
	BaseURL        string
	PickupLocation string
}

// ResendSender renders templates per email type and delivers through Resend.
type ResendSender struct {
	orders         orders.Repository
	secrets        redispkg.SecretCache
	transport      Transport
	from           string
	baseURL        string
	pickupLocation string
}

// NewSender validates dependencies and builds the sender.
func NewSender(params SenderParams) (*ResendSender, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Secrets == nil {
		return nil, fmt.Errorf("pickup secret cache required")
	}
	if params.Transport == nil {
		return nil, fmt.Errorf("email transport required")
	}
	if params.From == "" {
		return nil, fmt.Errorf("sender address required")
	}
	if params.BaseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	if params.PickupLocation == "" {
		params.PickupLocation = "La Fabrik"
	}
	return &ResendSender{
		orders:         params.Orders,
		secrets:        params.Secrets,
		transport:      params.Transport,
		from:           params.From,
		baseURL:        params.BaseURL,
		pickupLocation: params.PickupLocation,
	}, nil
}

// Send renders and delivers one queued email.
func (s *ResendSender) Send(ctx context.Context, job *models.EmailJob) error {
	order, err := s.orders.FindByID(ctx, job.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order not found: %s", job.OrderID))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order for email")
	}

	var subject, html string
	switch job.EmailType {
	case enums.EmailTypeDeliveryConfirmation:
		subject = "Votre commande est confirmée"
		html, err = render("delivery_confirmation", buildConfirmationData(order, s.baseURL))

	case enums.EmailTypePickupConfirmation:
		subject = "Votre commande est prête à retirer"
		html, err = s.renderPickupConfirmation(ctx, order)

	case enums.EmailTypeShippedNotification:
		subject = "Votre colis a été expédié"
		html, err = s.renderShippedNotification(order)

	case enums.EmailTypePickupReminder:
		subject = "Votre commande vous attend"
		html, err = s.renderPickupReminder(order)

	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown email type: %s", job.EmailType))
	}
	if err != nil {
		return err
	}

	_, err = s.transport.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{job.RecipientEmail},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending email")
	}

	if job.EmailType == enums.EmailTypePickupConfirmation {
		// best effort: the cache entry expires on its own anyway
		_ = s.secrets.DeletePickupSecret(ctx, order.ID.String())
	}
	return nil
}

func (s *ResendSender) renderPickupConfirmation(ctx context.Context, order *models.Order) (string, error) {
	if order.PickupToken == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("pickup token not found for order: %s", order.ID))
	}

	secret, err := s.secrets.GetPickupSecret(ctx, order.ID.String())
	if err != nil {
		if errors.Is(err, redispkg.ErrNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeGone, fmt.Sprintf("clear pickup secret no longer cached for order: %s", order.ID))
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cached pickup secret")
	}

	pickupURL := fmt.Sprintf("%s/retrait/%s", s.baseURL, secret)
	png, err := qrcode.Encode(pickupURL, qrcode.High, qrCodeSize)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating pickup qr code")
	}
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	return render("pickup_confirmation", pickupData{
		confirmationData: buildConfirmationData(order, s.baseURL),
		QRCodeDataURI:    templateURL(dataURI),
		PickupURL:        pickupURL,
		PickupLocation:   s.pickupLocation,
		ExpiresAt:        formatExpiry(order.PickupToken.ExpiresAt),
	})
}

func (s *ResendSender) renderShippedNotification(order *models.Order) (string, error) {
	if order.TrackingNumber == nil || *order.TrackingNumber == "" {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("no tracking number for order: %s", order.ID))
	}
	trackingURL := ""
	if order.TrackingURL != nil {
		trackingURL = *order.TrackingURL
	}
	if trackingURL == "" {
		trackingURL = fmt.Sprintf("https://www.laposte.fr/outils/suivre-vos-envois?code=%s", *order.TrackingNumber)
	}
	return render("shipped_notification", shippedData{
		confirmationData: buildConfirmationData(order, s.baseURL),
		TrackingNumber:   *order.TrackingNumber,
		TrackingURL:      trackingURL,
	})
}

func (s *ResendSender) renderPickupReminder(order *models.Order) (string, error) {
	if order.PickupToken == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("pickup token not found for order: %s", order.ID))
	}
	return render("pickup_reminder", reminderData{
		confirmationData: buildConfirmationData(order, s.baseURL),
		PickupLocation:   s.pickupLocation,
		ExpiresAt:        formatExpiry(order.PickupToken.ExpiresAt),
	})
}
