package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/logistics"
	"logistics-platform/internal/policy"
	"logistics-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

const (
	detailBadCredentials = "No active account found with the given credentials"
	detailBadToken       = "Token is invalid or expired"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

type tokenResponse struct {
	auth.TokenPair
	User    *logistics.User `json:"user,omitempty"`
	Created bool            `json:"created,omitempty"`
}

// Login exchanges a username (or email) and password for a token pair.
// Every attempt is audited: login_success or login_failed.
func (h *Handlers) Login(c *gin.Context) {
	ctx := c.Request.Context()
	var req loginRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}

	p, err := h.Stores.Users.VerifyCredentials(ctx, login, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrInactive) {
			fail(c, err)
			return
		}
		h.Audit.Log(ctx, audit.Entry{
			Action:       audit.ActionLoginFailed,
			ResourceType: policy.ResourceUsers,
			Severity:     audit.SeverityMedium,
			Success:      false,
			ErrorMessage: err.Error(),
			Details:      map[string]any{"attempted_username": login, "method": "password"},
		})
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailBadCredentials})
		return
	}
	h.signIn(c, p, "password", false)
}

// ExternalLogin exchanges a verified identity provider assertion for a token
// pair, creating a client account on first use.
func (h *Handlers) ExternalLogin(c *gin.Context) {
	ctx := c.Request.Context()
	if h.External == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"detail": "External login is not configured."})
		return
	}
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	a, err := h.External.VerifyAssertion(ctx, req.Token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrInactive) {
			fail(c, err)
			return
		}
		h.Audit.Log(ctx, audit.Entry{
			Action:       audit.ActionLoginFailed,
			ResourceType: policy.ResourceUsers,
			Severity:     audit.SeverityMedium,
			Success:      false,
			ErrorMessage: err.Error(),
			Details:      map[string]any{"method": auth.ExternalMethodGoogle},
		})
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailBadToken})
		return
	}

	if a.Created {
		h.Audit.Log(auth.WithPrincipal(ctx, a.Principal), audit.Entry{
			Action:       audit.ActionResourceCreated,
			ResourceType: policy.ResourceUsers,
			ResourceID:   a.Principal.ID,
			Severity:     audit.SeverityLow,
			Success:      true,
			Details:      map[string]any{"registration_method": a.Method},
		})
	}
	h.signIn(c, a.Principal, a.Method, a.Created)
}

// Register opens a client account. The role is never taken from the body.
func (h *Handlers) Register(c *gin.Context) {
	ctx := c.Request.Context()
	var req userRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	if req.Password == "" {
		fail(c, fmt.Errorf("%w: password is required", logistics.ErrValidation))
		return
	}
	u := req.User
	u.Role = rbac.RoleClient
	u.Active = true
	u.Balance = 0

	saved, err := h.Stores.Users.Create(ctx, u, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.Log(auth.WithPrincipal(ctx, saved.Principal()), audit.Entry{
		Action:       audit.ActionResourceCreated,
		ResourceType: policy.ResourceUsers,
		ResourceID:   saved.ID,
		Severity:     audit.SeverityLow,
		Success:      true,
		Details:      map[string]any{"registration_method": "email"},
	})
	c.JSON(http.StatusCreated, saved)
}

// Refresh issues a new pair for a valid refresh token whose subject is still active.
func (h *Handlers) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	claims, err := h.Tokens.Verify(req.Refresh, auth.TokenTypeRefresh, h.now())
	if err == nil && h.Revoked != nil {
		var revoked bool
		revoked, err = h.Revoked.IsRevoked(ctx, claims.ID)
		if err == nil && revoked {
			err = auth.ErrInvalidCredentials
		}
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailBadToken})
		return
	}

	p, err := h.Stores.Users.ResolvePrincipal(ctx, claims.UserID)
	if err != nil || !p.Active {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailBadToken})
		return
	}
	pair, err := h.Tokens.IssuePair(h.now(), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{TokenPair: pair})
}

// Logout revokes the presented access token until it would have expired.
func (h *Handlers) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	p := auth.PrincipalFrom(ctx)
	if jti, ok := auth.TokenID(ctx); ok && h.Revoked != nil {
		if err := h.Revoked.Revoke(ctx, jti, h.Tokens.AccessTTL()); err != nil {
			fail(c, err)
			return
		}
	}
	h.Audit.Log(ctx, audit.Entry{
		Action:       audit.ActionLogout,
		ResourceType: policy.ResourceUsers,
		ResourceID:   p.ID,
		Severity:     audit.SeverityLow,
		Success:      true,
	})
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out."})
}

// signIn issues tokens for p and records login_success attributed to p.
func (h *Handlers) signIn(c *gin.Context, p auth.Principal, method string, created bool) {
	ctx := auth.WithPrincipal(c.Request.Context(), p)
	pair, err := h.Tokens.IssuePair(h.now(), p)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.Log(ctx, audit.Entry{
		Action:       audit.ActionLoginSuccess,
		ResourceType: policy.ResourceUsers,
		ResourceID:   p.ID,
		Severity:     audit.SeverityLow,
		Success:      true,
		Details:      map[string]any{"method": method},
	})

	resp := tokenResponse{TokenPair: pair, Created: created}
	if u, err := h.Stores.Users.Get(ctx, p.ID); err == nil {
		resp.User = &u
	}
	c.JSON(http.StatusOK, resp)
}
