package httpapi

import (
	"time"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/logistics"
	"logistics-platform/internal/policy"

	"github.com/gin-gonic/gin"
)

// Counters receives security events for metrics. *obs.Metrics satisfies it.
type Counters interface {
	PermissionDenied(resource string)
	LoginThrottled()
}

type nopCounters struct{}

func (nopCounters) PermissionDenied(string) {}
func (nopCounters) LoginThrottled()         {}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: authorize, parse/validate input, call internal services, return JSON.
type Handlers struct {
	Table    *policy.Table
	Tokens   *auth.Manager
	Revoked  auth.Revocations
	External auth.AssertionVerifier // nil disables /auth/google
	Audit    *audit.Service
	Hooks    *audit.Hooks
	Stores   *logistics.Stores
	Dispatch *logistics.Dispatch
	Counters Counters

	// LoginLimiter throttles the credential endpoints; nil disables throttling.
	LoginLimiter *IPLimiter
	Clock        func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

func (h *Handlers) counters() Counters {
	if h.Counters == nil {
		return nopCounters{}
	}
	return h.Counters
}

// Routes registers the /v1 API on r.
//
// Every route goes through the same chain: request info, optional
// authentication, the denial translator, then the request-level permission
// check of its (resource, action) pair. Object-level checks run in handlers
// once the instance is loaded.
func (h *Handlers) Routes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.Use(RequestInfo())
	v1.Use(auth.Authenticate(h.Tokens, h.Revoked, h.Stores.Users))
	v1.Use(Translate(h.Audit, h.counters()))

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if h.LoginLimiter != nil {
		throttle = h.LoginLimiter.Middleware(h.counters())
	}

	// AUTH routes
	a := v1.Group("/auth")
	{
		a.POST("/login", throttle, h.authorize(policy.ResourceAuth, policy.ActionLogin), h.Login)
		a.POST("/google", throttle, h.authorize(policy.ResourceAuth, policy.ActionExternalLogin), h.ExternalLogin)
		a.POST("/register", throttle, h.authorize(policy.ResourceAuth, policy.ActionRegister), h.Register)
		a.POST("/refresh", h.authorize(policy.ResourceAuth, policy.ActionRefresh), h.Refresh)
		a.POST("/logout", h.authorize(policy.ResourceAuth, policy.ActionLogout), h.Logout)
	}

	// USERS routes
	u := v1.Group("/users")
	{
		u.GET("/me", h.authorize(policy.ResourceUsers, policy.ActionMe), h.Me)
		u.PATCH("/me", h.authorize(policy.ResourceUsers, policy.ActionMe), h.UpdateMe)
		u.GET("", h.authorize(policy.ResourceUsers, policy.ActionList), h.ListUsers)
		u.POST("", h.authorize(policy.ResourceUsers, policy.ActionCreate), h.CreateUser)
		u.GET("/:id", h.authorize(policy.ResourceUsers, policy.ActionRetrieve), h.GetUser)
		u.PUT("/:id", h.authorize(policy.ResourceUsers, policy.ActionUpdate), h.UpdateUser(false))
		u.PATCH("/:id", h.authorize(policy.ResourceUsers, policy.ActionPartialUpdate), h.UpdateUser(true))
		u.DELETE("/:id", h.authorize(policy.ResourceUsers, policy.ActionDestroy), h.DeleteUser)
	}

	// RESOURCE routes
	mount(h, v1, h.shipments())
	routes := mount(h, v1, h.routes())
	routes.PATCH("/:id/complete", h.authorize(policy.ResourceRoutes, policy.ActionCompleteDelivery), h.CompleteDelivery)
	mount(h, v1, h.vehicles())
	mount(h, v1, h.drivers())
	mount(h, v1, h.invoices())
	mount(h, v1, h.complaints())
	mount(h, v1, h.destinations())

	// AUDIT routes
	al := v1.Group("/audit-logs")
	{
		al.GET("", h.authorize(policy.ResourceAuditLogs, policy.ActionList), h.ListAuditLogs)
		al.GET("/:id", h.authorize(policy.ResourceAuditLogs, policy.ActionRetrieve), h.GetAuditLog)
		al.POST("", h.authorize(policy.ResourceAuditLogs, policy.ActionCreate), h.IngestAuditLog)
	}
}
