package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExternalMethodGoogle is the registration/login method recorded for Google sign-in.
const ExternalMethodGoogle = "google"

// ExternalIdentity is the verified subject of an external assertion.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
}

// Provisioner maps an external identity to a local user, creating a client
// account on first sight. created reports whether a user was provisioned.
type Provisioner interface {
	ProvisionExternal(ctx context.Context, id ExternalIdentity) (p Principal, created bool, err error)
}

type externalClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// ExternalVerifier accepts HS256 assertions minted by the login broker that
// fronts the Google flow, and provisions the local user.
type ExternalVerifier struct {
	secret []byte
	issuer string
	users  Provisioner
	clock  func() time.Time
}

var _ AssertionVerifier = (*ExternalVerifier)(nil)

func NewExternalVerifier(secret, issuer string, users Provisioner) (*ExternalVerifier, error) {
	if secret == "" {
		return nil, errors.New("external assertion secret is required")
	}
	if users == nil {
		return nil, errors.New("provisioner is required")
	}
	return &ExternalVerifier{secret: []byte(secret), issuer: issuer, users: users, clock: time.Now}, nil
}

func (v *ExternalVerifier) VerifyAssertion(ctx context.Context, token string) (Assertion, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims externalClaims
	if _, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Assertion{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if claims.Subject == "" || claims.Email == "" || !claims.EmailVerified {
		return Assertion{}, fmt.Errorf("%w: assertion lacks a verified email", ErrInvalidCredentials)
	}

	p, created, err := v.users.ProvisionExternal(ctx, ExternalIdentity{
		Subject: claims.Subject,
		Email:   strings.ToLower(claims.Email),
		Name:    claims.Name,
	})
	if err != nil {
		return Assertion{}, err
	}
	if !p.Active {
		return Assertion{}, ErrInactive
	}
	return Assertion{Principal: p, Created: created, Method: ExternalMethodGoogle}, nil
}
