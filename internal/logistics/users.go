package logistics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"logistics-platform/internal/auth"
	"logistics-platform/internal/rbac"
)

// Users is the account directory. It backs password login, token subject
// resolution and external identity provisioning.
type Users struct {
	store *MemoryStore[User]
	clock func() time.Time
}

var (
	_ auth.CredentialVerifier = (*Users)(nil)
	_ auth.PrincipalResolver  = (*Users)(nil)
	_ auth.Provisioner        = (*Users)(nil)
)

func NewUsers() *Users {
	username := UniqueKey[User]{Name: "username", Key: func(u User) string { return u.Username }}
	email := UniqueKey[User]{Name: "email", Key: func(u User) string { return u.Email }}
	return &Users{store: NewMemoryStore(username, email), clock: time.Now}
}

// Create stores u with a bcrypt hash of password. An empty password leaves
// the account without password login (external accounts).
func (d *Users) Create(ctx context.Context, u User, password string) (User, error) {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return User{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		u.PasswordHash = hash
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.clock().UTC()
	}
	return d.store.Create(ctx, u)
}

func (d *Users) Get(ctx context.Context, id string) (User, error) { return d.store.Get(ctx, id) }

func (d *Users) List(ctx context.Context) []User { return d.store.List(ctx) }

// CheckProfile reports whether Update would accept u, without writing.
func (d *Users) CheckProfile(ctx context.Context, u User) error {
	if _, err := d.store.Get(ctx, u.ID); err != nil {
		return err
	}
	u.Email = normalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return err
	}
	return d.store.CheckUnique(u)
}

// Update replaces profile fields. The stored password hash and external
// link are kept; they are not part of the update surface.
func (d *Users) Update(ctx context.Context, u User) (User, error) {
	prior, err := d.store.Get(ctx, u.ID)
	if err != nil {
		return User{}, err
	}
	u.Email = normalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	u.PasswordHash = prior.PasswordHash
	u.ExternalSubject = prior.ExternalSubject
	u.CreatedAt = prior.CreatedAt
	return d.store.Update(ctx, u)
}

// ChangePassword replaces the password of id after checking the current one.
// Accounts without a password (external logins) cannot set one here.
func (d *Users) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := d.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.PasswordHash == "" || auth.VerifyPassword(u.PasswordHash, current) != nil {
		return auth.ErrInvalidCredentials
	}
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	_, err = d.store.Update(ctx, u)
	return err
}

func (d *Users) Delete(ctx context.Context, id string) error { return d.store.Delete(ctx, id) }

// VerifyCredentials accepts either the username or the email as login.
func (d *Users) VerifyCredentials(ctx context.Context, login, password string) (auth.Principal, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || password == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}
	u, ok := d.store.Find(ctx, func(u User) bool {
		return strings.ToLower(u.Username) == login || (u.Email != "" && u.Email == login)
	})
	if !ok || u.PasswordHash == "" {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return auth.Principal{}, auth.ErrInvalidCredentials
	}
	if !u.Active {
		return auth.Principal{}, auth.ErrInactive
	}
	return u.Principal(), nil
}

func (d *Users) ResolvePrincipal(ctx context.Context, id string) (auth.Principal, error) {
	u, err := d.store.Get(ctx, id)
	if err != nil {
		return auth.Principal{}, err
	}
	return u.Principal(), nil
}

// ProvisionExternal finds the account linked to the external subject, or by
// email, and otherwise creates an active client account.
func (d *Users) ProvisionExternal(ctx context.Context, id auth.ExternalIdentity) (auth.Principal, bool, error) {
	if u, ok := d.store.Find(ctx, func(u User) bool {
		return u.ExternalSubject == id.Subject || (id.Email != "" && u.Email == id.Email)
	}); ok {
		if u.ExternalSubject == "" {
			u.ExternalSubject = id.Subject
			if _, err := d.store.Update(ctx, u); err != nil {
				return auth.Principal{}, false, err
			}
		}
		return u.Principal(), false, nil
	}

	username := id.Email
	if at := strings.IndexByte(username, '@'); at > 0 {
		username = username[:at]
	}
	u := User{
		Username:        username,
		Name:            id.Name,
		Email:           id.Email,
		Role:            rbac.RoleClient,
		Active:          true,
		ExternalSubject: id.Subject,
	}
	created, err := d.Create(ctx, u, "")
	if errors.Is(err, ErrConflict) {
		// username taken by someone else: fall back to the full email
		u.Username = id.Email
		created, err = d.Create(ctx, u, "")
	}
	if err != nil {
		return auth.Principal{}, false, err
	}
	return created.Principal(), true, nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
