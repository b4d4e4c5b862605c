package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lafabrik/boutique-backend/pkg/auth"
	"github.com/lafabrik/boutique-backend/pkg/config"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/security"
)

// LoginInput carries staff credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult carries the minted access token.
type LoginResult struct {
	Email       string    `json:"email"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service authenticates the configured staff account. There is no user table;
// the single staff identity comes from configuration.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}

type service struct {
	staffEmail   string
	passwordHash string
	jwt          config.JWTConfig
}

// NewService validates the staff configuration and builds the auth service.
func NewService(staff config.StaffConfig, jwt config.JWTConfig) (Service, error) {
	email := strings.ToLower(strings.TrimSpace(staff.Email))
	if email == "" {
		return nil, fmt.Errorf("staff email required")
	}
	if strings.TrimSpace(staff.PasswordHash) == "" {
		return nil, fmt.Errorf("staff password hash required")
	}
	if jwt.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{
		staffEmail:   email,
		passwordHash: staff.PasswordHash,
		jwt:          jwt,
	}, nil
}

// Login checks the credentials against the configured staff account. Unknown
// emails and wrong passwords return the same error; nothing leaks which half
// was wrong.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	if email != s.staffEmail {
		// still burn a verification so timing does not reveal valid emails
		_, _ = security.VerifyPassword(input.Password, s.passwordHash)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(input.Password, s.passwordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	now := time.Now().UTC()
	token, err := auth.MintAccessToken(s.jwt, now, auth.AccessTokenPayload{Email: email})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	return &LoginResult{
		Email:       email,
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwt.ExpirationMinutes) * time.Minute),
	}, nil
}
