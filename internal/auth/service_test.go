package auth

import (
	"context"
	"testing"

	pkgauth "github.com/lafabrik/boutique-backend/pkg/auth"
	"github.com/lafabrik/boutique-backend/pkg/config"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/security"
)

func newAuthService(t *testing.T) Service {
	t.Helper()

	hash, err := security.HashPassword("correct horse battery", config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	svc, err := NewService(
		config.StaffConfig{Email: "Staff@LaFabrik.example", PasswordHash: hash},
		config.JWTConfig{Secret: "test-secret", Issuer: "boutique-test", ExpirationMinutes: 60},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginMintsParsableToken(t *testing.T) {
	svc := newAuthService(t)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "staff@lafabrik.example",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Email != "staff@lafabrik.example" {
		t.Fatalf("email = %q", result.Email)
	}

	claims, err := pkgauth.ParseAccessToken(config.JWTConfig{Secret: "test-secret", Issuer: "boutique-test"}, result.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Email != "staff@lafabrik.example" {
		t.Fatalf("claims email = %q", claims.Email)
	}
}

func TestLoginNormalizesEmailCase(t *testing.T) {
	svc := newAuthService(t)

	if _, err := svc.Login(context.Background(), LoginInput{
		Email:    "STAFF@lafabrik.EXAMPLE",
		Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("login with cased email: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	cases := map[string]LoginInput{
		"wrong password": {Email: "staff@lafabrik.example", Password: "nope"},
		"unknown email":  {Email: "intruder@example.com", Password: "correct horse battery"},
	}
	for name, input := range cases {
		_, err := svc.Login(ctx, input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Login(context.Background(), LoginInput{Email: "staff@lafabrik.example"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
