package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"logistics-platform/internal/rbac"

	"github.com/golang-jwt/jwt/v5"
)

type recordingProvisioner struct {
	seen    []ExternalIdentity
	active  bool
	created bool
}

func (r *recordingProvisioner) ProvisionExternal(_ context.Context, id ExternalIdentity) (Principal, bool, error) {
	r.seen = append(r.seen, id)
	return Principal{ID: "u-" + id.Subject, Username: id.Email, Role: rbac.RoleClient, Active: r.active}, r.created, nil
}

func signAssertion(t *testing.T, secret string, claims externalClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func assertionClaims(now time.Time) externalClaims {
	return externalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "g-42",
			Issuer:    "broker",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Email:         "Dana@Example.com",
		EmailVerified: true,
		Name:          "Dana",
	}
}

func TestExternalVerifier_ProvisionsUser(t *testing.T) {
	users := &recordingProvisioner{active: true, created: true}
	v, err := NewExternalVerifier("broker-secret", "broker", users)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	a, err := v.VerifyAssertion(context.Background(), signAssertion(t, "broker-secret", assertionClaims(time.Now())))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !a.Created || a.Method != ExternalMethodGoogle || a.Principal.ID != "u-g-42" {
		t.Fatalf("unexpected assertion: %+v", a)
	}
	if len(users.seen) != 1 || users.seen[0].Email != "dana@example.com" {
		t.Fatalf("unexpected provisioning calls: %+v", users.seen)
	}
}

func TestExternalVerifier_Rejects(t *testing.T) {
	now := time.Now()
	users := &recordingProvisioner{active: true}
	v, err := NewExternalVerifier("broker-secret", "broker", users)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	unverified := assertionClaims(now)
	unverified.EmailVerified = false
	wrongIssuer := assertionClaims(now)
	wrongIssuer.Issuer = "elsewhere"
	expired := assertionClaims(now)
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))

	cases := map[string]string{
		"bad signature": signAssertion(t, "other", assertionClaims(now)),
		"unverified":    signAssertion(t, "broker-secret", unverified),
		"wrong issuer":  signAssertion(t, "broker-secret", wrongIssuer),
		"expired":       signAssertion(t, "broker-secret", expired),
		"not a jwt":     "garbage",
	}
	for name, tok := range cases {
		if _, err := v.VerifyAssertion(context.Background(), tok); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
	}
	if len(users.seen) != 0 {
		t.Fatalf("rejected assertions must not provision users")
	}
}

func TestExternalVerifier_InactiveUser(t *testing.T) {
	v, err := NewExternalVerifier("s", "", &recordingProvisioner{active: false})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	claims := assertionClaims(time.Now())
	if _, err := v.VerifyAssertion(context.Background(), signAssertion(t, "s", claims)); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyPassword(hash, "hunter2"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "hunter3"); err == nil {
		t.Fatalf("expected mismatch")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
