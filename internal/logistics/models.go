package logistics

import (
	"fmt"
	"strings"
	"time"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/ownership"
	"logistics-platform/internal/rbac"
)

// Entity is a stored, audited record that can take a server-assigned id.
type Entity[T any] interface {
	audit.Resource
	WithID(id string) T
}

// User is a platform account. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         rbac.Role `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Balance      Money     `json:"balance"`
	Bio          string    `json:"bio,omitempty"`
	Active       bool      `json:"is_active"`

	// ExternalSubject links the account to an external identity provider.
	ExternalSubject string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

func (u User) WithID(id string) User { u.ID = id; return u }
func (u User) AuditID() string { return u.ID }
func (u User) OwningUser() *ownership.Ref { return ownership.RefTo(u.ID) }
func (u User) Principal() auth.Principal {
	return auth.Principal{ID: u.ID, Username: u.Username, Role: u.Role, Active: u.Active}
}

func (u User) AuditFields() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role.String(),
		"phone":     u.Phone,
		"address":   u.Address,
		"balance":   u.Balance,
		"bio":       u.Bio,
		"is_active": u.Active,
	}
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: %v", ErrValidation, rbac.ErrInvalidRole)
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: email %q is invalid", ErrValidation, u.Email)
	}
	return nil
}

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "Pending"
	ShipmentInTransit ShipmentStatus = "In Transit"
	ShipmentDelivered ShipmentStatus = "Delivered"
	ShipmentCancelled ShipmentStatus = "Cancelled"
	ShipmentDelayed   ShipmentStatus = "Delayed"
)

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentPending, ShipmentInTransit, ShipmentDelivered, ShipmentCancelled, ShipmentDelayed:
		return true
	default:
		return false
	}
}

// Shipment belongs to a client. DriverIDs holds the drivers of every route
// carrying the shipment, sorted, and is maintained by Dispatch.
type Shipment struct {
	ID                string         `json:"id"`
	ClientID          string         `json:"client_id"`
	DestinationID     string         `json:"destination_id,omitempty"`
	DriverIDs         []string       `json:"driver_ids,omitempty"`
	WeightKg          float64        `json:"weight_kg"`
	VolumeM3          float64        `json:"volume_m3"`
	Price             Money          `json:"price"`
	Status            ShipmentStatus `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty"`
}

func (s Shipment) WithID(id string) Shipment { s.ID = id; return s }
func (s Shipment) AuditID() string { return s.ID }
func (s Shipment) OwningClient() *ownership.Ref { return ownership.RefTo(s.ClientID) }
func (s Shipment) AssignedDrivers() []*ownership.Ref { return ownership.RefsTo(s.DriverIDs) }

func (s Shipment) AuditFields() map[string]any {
	return map[string]any{
		"id":                 s.ID,
		"client_id":          s.ClientID,
		"destination_id":     s.DestinationID,
		"driver_ids":         append([]string{}, s.DriverIDs...),
		"weight_kg":          s.WeightKg,
		"volume_m3":          s.VolumeM3,
		"price":              s.Price,
		"status":             string(s.Status),
		"created_at":         s.CreatedAt,
		"estimated_delivery": s.EstimatedDelivery,
	}
}

func (s Shipment) Validate() error {
	switch {
	case s.ClientID == "":
		return fmt.Errorf("%w: client_id is required", ErrValidation)
	case s.WeightKg <= 0:
		return fmt.Errorf("%w: weight_kg must be positive", ErrValidation)
	case s.VolumeM3 < 0:
		return fmt.Errorf("%w: volume_m3 must not be negative", ErrValidation)
	case s.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	case !s.Status.Valid():
		return fmt.Errorf("%w: unknown shipment status %q", ErrValidation, s.Status)
	}
	return nil
}

type RouteStatus string

const (
	RoutePlanned   RouteStatus = "Planned"
	RouteActive    RouteStatus = "Active"
	RouteCompleted RouteStatus = "Completed"
)

func (s RouteStatus) Valid() bool {
	return s == RoutePlanned || s == RouteActive || s == RouteCompleted
}

// Route is driven by one driver (DriverID is the driver's user id).
type Route struct {
	ID                  string      `json:"id"`
	DriverID            string      `json:"driver_id"`
	VehicleID           string      `json:"vehicle_id"`
	ShipmentIDs         []string    `json:"shipment_ids"`
	Date                string      `json:"date"`
	ActualDistanceKm    float64     `json:"actual_distance_km,omitempty"`
	ActualDurationHours float64     `json:"actual_duration_hours,omitempty"`
	FuelConsumedLiters  float64     `json:"fuel_consumed_liters,omitempty"`
	Status              RouteStatus `json:"status"`
}

func (r Route) WithID(id string) Route { r.ID = id; return r }
func (r Route) AuditID() string { return r.ID }
func (r Route) Owner() *ownership.Ref { return ownership.RefTo(r.DriverID) }

func (r Route) AuditFields() map[string]any {
	return map[string]any{
		"id":                    r.ID,
		"driver_id":             r.DriverID,
		"vehicle_id":            r.VehicleID,
		"shipment_ids":          append([]string{}, r.ShipmentIDs...),
		"date":                  r.Date,
		"actual_distance_km":    r.ActualDistanceKm,
		"actual_duration_hours": r.ActualDurationHours,
		"fuel_consumed_liters":  r.FuelConsumedLiters,
		"status":                string(r.Status),
	}
}

func (r Route) Validate() error {
	switch {
	case r.DriverID == "":
		return fmt.Errorf("%w: driver_id is required", ErrValidation)
	case r.VehicleID == "":
		return fmt.Errorf("%w: vehicle_id is required", ErrValidation)
	case r.Date == "":
		return fmt.Errorf("%w: date is required", ErrValidation)
	case !r.Status.Valid():
		return fmt.Errorf("%w: unknown route status %q", ErrValidation, r.Status)
	}
	if _, err := time.Parse(time.DateOnly, r.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return nil
}

type Vehicle struct {
	ID         string `json:"id"`
	Plate      string `json:"plate"`
	Model      string `json:"model"`
	CapacityKg int    `json:"capacity_kg"`
	Status     string `json:"status"`
}

func (v Vehicle) WithID(id string) Vehicle { v.ID = id; return v }
func (v Vehicle) AuditID() string { return v.ID }

func (v Vehicle) AuditFields() map[string]any {
	return map[string]any{
		"id":          v.ID,
		"plate":       v.Plate,
		"model":       v.Model,
		"capacity_kg": v.CapacityKg,
		"status":      v.Status,
	}
}

func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.Plate) == "" {
		return fmt.Errorf("%w: plate is required", ErrValidation)
	}
	if v.CapacityKg <= 0 {
		return fmt.Errorf("%w: capacity_kg must be positive", ErrValidation)
	}
	switch v.Status {
	case "Available", "On Route", "Maintenance":
		return nil
	default:
		return fmt.Errorf("%w: unknown vehicle status %q", ErrValidation, v.Status)
	}
}

// Driver is the operational profile of a user holding the driver role.
type Driver struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	LicenseNumber string `json:"license_number"`
	Status        string `json:"status"`
}

func (d Driver) WithID(id string) Driver { d.ID = id; return d }
func (d Driver) AuditID() string { return d.ID }

func (d Driver) AuditFields() map[string]any {
	return map[string]any{
		"id":             d.ID,
		"user_id":        d.UserID,
		"name":           d.Name,
		"license_number": d.LicenseNumber,
		"status":         d.Status,
	}
}

func (d Driver) Validate() error {
	if d.UserID == "" || d.LicenseNumber == "" {
		return fmt.Errorf("%w: user_id and license_number are required", ErrValidation)
	}
	return nil
}

type Invoice struct {
	ID          string   `json:"id"`
	ClientID    string   `json:"client_id"`
	ShipmentIDs []string `json:"shipment_ids"`
	AmountHT    Money    `json:"amount_ht"`
	TVA         Money    `json:"tva"`
	AmountTTC   Money    `json:"amount_ttc"`
	PaidAmount  Money    `json:"paid_amount"`
	Date        string   `json:"date"`
	Status      string   `json:"status"`
}

func (i Invoice) WithID(id string) Invoice { i.ID = id; return i }
func (i Invoice) AuditID() string { return i.ID }
func (i Invoice) OwningClient() *ownership.Ref { return ownership.RefTo(i.ClientID) }

func (i Invoice) AuditFields() map[string]any {
	return map[string]any{
		"id":           i.ID,
		"client_id":    i.ClientID,
		"shipment_ids": append([]string{}, i.ShipmentIDs...),
		"amount_ht":    i.AmountHT,
		"tva":          i.TVA,
		"amount_ttc":   i.AmountTTC,
		"paid_amount":  i.PaidAmount,
		"date":         i.Date,
		"status":       i.Status,
	}
}

func (i Invoice) Validate() error {
	if i.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", ErrValidation)
	}
	if i.AmountHT+i.TVA != i.AmountTTC {
		return fmt.Errorf("%w: amount_ttc must equal amount_ht + tva", ErrValidation)
	}
	if i.PaidAmount < 0 || i.PaidAmount > i.AmountTTC {
		return fmt.Errorf("%w: paid_amount out of range", ErrValidation)
	}
	switch i.Status {
	case "Paid", "Partial", "Unpaid":
		return nil
	default:
		return fmt.Errorf("%w: unknown invoice status %q", ErrValidation, i.Status)
	}
}

type Complaint struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c Complaint) WithID(id string) Complaint { c.ID = id; return c }
func (c Complaint) AuditID() string { return c.ID }
func (c Complaint) OwningClient() *ownership.Ref { return ownership.RefTo(c.ClientID) }

func (c Complaint) AuditFields() map[string]any {
	return map[string]any{
		"id":          c.ID,
		"client_id":   c.ClientID,
		"description": c.Description,
		"date":        c.Date,
		"status":      c.Status,
		"priority":    c.Priority,
		"created_at":  c.CreatedAt,
	}
}

func (c Complaint) Validate() error {
	if c.ClientID == "" || strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("%w: client_id and description are required", ErrValidation)
	}
	switch c.Status {
	case "Open", "In Progress", "Resolved", "Closed":
	default:
		return fmt.Errorf("%w: unknown complaint status %q", ErrValidation, c.Status)
	}
	switch c.Priority {
	case "Low", "Medium", "High":
		return nil
	default:
		return fmt.Errorf("%w: unknown complaint priority %q", ErrValidation, c.Priority)
	}
}

type Destination struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Country         string  `json:"country"`
	City            string  `json:"city"`
	DeliveryZone    string  `json:"delivery_zone"`
	DistanceKm      float64 `json:"distance_km"`
	Type            string  `json:"type"`
	DestinationType string  `json:"destination_type"`
	IsActive        bool    `json:"is_active"`
}

func (d Destination) WithID(id string) Destination { d.ID = id; return d }
func (d Destination) AuditID() string { return d.ID }

func (d Destination) AuditFields() map[string]any {
	return map[string]any{
		"id":               d.ID,
		"name":             d.Name,
		"country":          d.Country,
		"city":             d.City,
		"delivery_zone":    d.DeliveryZone,
		"distance_km":      d.DistanceKm,
		"type":             d.Type,
		"destination_type": d.DestinationType,
		"is_active":        d.IsActive,
	}
}

func (d Destination) Validate() error {
	if strings.TrimSpace(d.Name) == "" || d.City == "" || d.Country == "" {
		return fmt.Errorf("%w: name, city and country are required", ErrValidation)
	}
	if d.DistanceKm < 0 {
		return fmt.Errorf("%w: distance_km must not be negative", ErrValidation)
	}
	switch d.DestinationType {
	case "Domestic", "International":
		return nil
	default:
		return fmt.Errorf("%w: unknown destination_type %q", ErrValidation, d.DestinationType)
	}
}
