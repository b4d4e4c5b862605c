package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/lafabrik/boutique-backend/internal/webhooks"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
)

type stubWebhookService struct {
	result *webhooks.Result
	err    error
	called bool
	event  stripe.Event
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event stripe.Event) (*webhooks.Result, error) {
	s.called = true
	s.event = event
	return s.result, s.err
}

func buildSignedEvent(t *testing.T, id string, eventType stripe.EventType, secret string) ([]byte, string) {
	t.Helper()
	event := &stripe.Event{
		ID:         id,
		Type:       eventType,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, buildStripeSignatureHeader(payload, secret, time.Now().Unix())
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := StripeWebhook(svc, "whsec_test", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if svc.called {
		t.Fatal("service must not run on unverified payloads")
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	handler := StripeWebhook(svc, "whsec_test", nil)

	payload, _ := buildSignedEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, "whsec_other")
	header := buildStripeSignatureHeader(payload, "whsec_other", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if svc.called {
		t.Fatal("service must not run on unverified payloads")
	}
}

func TestStripeWebhookHandsVerifiedEventToService(t *testing.T) {
	svc := &stubWebhookService{result: &webhooks.Result{EventType: "checkout.session.completed"}}
	handler := StripeWebhook(svc, "whsec_test", nil)

	payload, header := buildSignedEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, "whsec_test")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.called {
		t.Fatal("service not called")
	}
	if svc.event.ID != "evt_1" {
		t.Fatalf("event id %q", svc.event.ID)
	}
}

func TestStripeWebhookSurfacesProcessingErrors(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	handler := StripeWebhook(svc, "whsec_test", nil)

	payload, header := buildSignedEvent(t, "evt_2", stripe.EventTypeCheckoutSessionExpired, "whsec_test")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
