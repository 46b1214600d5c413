package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/logistics"
	"logistics-platform/internal/policy"
	"logistics-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// userRequest is a user representation plus the write-only password fields.
type userRequest struct {
	logistics.User
	Password        string `json:"password,omitempty"`
	CurrentPassword string `json:"current_password,omitempty"`
}

func (h *Handlers) Me(c *gin.Context) {
	p := auth.PrincipalFrom(c.Request.Context())
	u, ok := h.loadUser(c, p.ID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateMe edits the caller's own profile. Role and activation are not
// self-service; a password change needs the current password. The profile is
// checked before the password is touched.
func (h *Handlers) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	p := auth.PrincipalFrom(ctx)
	prior, ok := h.loadUser(c, p.ID)
	if !ok {
		return
	}

	cp, err := clone(prior)
	if err != nil {
		fail(c, err)
		return
	}
	req := userRequest{User: cp}
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	next := req.User.WithID(prior.ID)
	if next.Role != prior.Role {
		fail(c, fmt.Errorf("%w: role change through own profile", auth.ErrForbidden))
		return
	}
	next.Active = prior.Active
	next.Balance = prior.Balance

	if err := h.Stores.Users.CheckProfile(ctx, next); err != nil {
		fail(c, err)
		return
	}
	if req.Password != "" {
		if err := h.Stores.Users.ChangePassword(ctx, p.ID, req.CurrentPassword, req.Password); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				err = fmt.Errorf("%w: current password is incorrect", logistics.ErrValidation)
			}
			fail(c, err)
			return
		}
	}

	saved, err := h.updateUser(ctx, prior, next)
	if req.Password != "" {
		// the new password is in force even if the profile write lost a race
		h.Audit.Log(ctx, audit.Entry{
			Action:       audit.ActionPasswordChanged,
			ResourceType: policy.ResourceUsers,
			ResourceID:   p.ID,
			Severity:     audit.SeverityMedium,
			Success:      true,
		})
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handlers) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	p := auth.PrincipalFrom(ctx)
	out := make([]logistics.User, 0)
	for _, u := range h.Stores.Users.List(ctx) {
		if h.Table.AllowObject(policy.ResourceUsers, p, c.Request.Method, policy.ActionList, u) {
			out = append(out, u)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) GetUser(c *gin.Context) {
	u, ok := h.loadUser(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, u)
}

// CreateUser lets staff open accounts. Only admins create staff accounts,
// which additionally records manager_created.
func (h *Handlers) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()
	p := auth.PrincipalFrom(ctx)

	var req userRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	u := req.User
	if u.Role == "" {
		u.Role = rbac.RoleClient
	}
	if !u.Role.Valid() {
		fail(c, fmt.Errorf("%w: %v", logistics.ErrValidation, rbac.ErrInvalidRole))
		return
	}
	if !policy.CanCreateWithRole(p, u.Role) {
		fail(c, fmt.Errorf("%w: create user with role %s", auth.ErrForbidden, u.Role))
		return
	}
	if req.Password == "" {
		fail(c, fmt.Errorf("%w: password is required", logistics.ErrValidation))
		return
	}
	u.Active = true
	u.Balance = 0

	create := audit.WrapCreate(h.Hooks, policy.ResourceUsers, func(ctx context.Context, u logistics.User) (logistics.User, error) {
		return h.Stores.Users.Create(ctx, u, req.Password)
	})
	saved, err := create(ctx, u)
	if err != nil {
		fail(c, err)
		return
	}
	if rbac.IsStaff(saved.Role) {
		h.Audit.Log(ctx, audit.Entry{
			Action:       audit.ActionManagerCreated,
			ResourceType: policy.ResourceUsers,
			ResourceID:   saved.ID,
			Severity:     audit.SeverityHigh,
			Success:      true,
			Details: map[string]any{
				"new_user_id":  saved.ID,
				"new_username": saved.Username,
				"role":         saved.Role.String(),
			},
		})
	}
	c.JSON(http.StatusCreated, saved)
}

// UpdateUser serves PUT (partial=false) and PATCH on /users/:id. A role
// change needs CanChangeRole; managers cannot edit other staff accounts.
func (h *Handlers) UpdateUser(partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p := auth.PrincipalFrom(ctx)
		prior, ok := h.loadUser(c, c.Param("id"))
		if !ok {
			return
		}
		if rbac.IsStaff(prior.Role) && p.Role != rbac.RoleAdmin && prior.ID != p.ID {
			fail(c, fmt.Errorf("%w: %s account %s is admin-managed", auth.ErrForbidden, prior.Role, prior.ID))
			return
		}

		var req userRequest
		if partial {
			cp, err := clone(prior)
			if err != nil {
				fail(c, err)
				return
			}
			req.User = cp
		}
		if err := bind(c, &req); err != nil {
			fail(c, err)
			return
		}
		next := req.User.WithID(prior.ID)
		if !next.Role.Valid() {
			fail(c, fmt.Errorf("%w: %v", logistics.ErrValidation, rbac.ErrInvalidRole))
			return
		}
		if next.Role != prior.Role && !policy.CanChangeRole(p, prior.Role, next.Role) {
			fail(c, fmt.Errorf("%w: change role %s to %s", auth.ErrForbidden, prior.Role, next.Role))
			return
		}

		saved, err := h.updateUser(ctx, prior, next)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

func (h *Handlers) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	u, ok := h.loadUser(c, c.Param("id"))
	if !ok {
		return
	}
	del := audit.WrapDelete(h.Hooks, policy.ResourceUsers, func(ctx context.Context, u logistics.User) error {
		return h.Stores.Users.Delete(ctx, u.ID)
	})
	if err := del(ctx, u); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// updateUser persists next through the audit mixin, which adds role_changed
// when the role moved.
func (h *Handlers) updateUser(ctx context.Context, prior, next logistics.User) (logistics.User, error) {
	update := audit.WrapUpdate(h.Hooks, policy.ResourceUsers, func(ctx context.Context, _, next logistics.User) (logistics.User, error) {
		return h.Stores.Users.Update(ctx, next)
	})
	return update(ctx, prior, next)
}

func (h *Handlers) loadUser(c *gin.Context, id string) (logistics.User, bool) {
	u, err := h.Stores.Users.Get(c.Request.Context(), id)
	if err != nil {
		missing(c, err)
		return u, false
	}
	if !h.allowObject(c, u) {
		return u, false
	}
	return u, true
}
