package database

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// User represents a login identity. Exactly one of the Owner, Manager or
// Tenant profiles attaches to it, chosen by Role at creation time.
type User struct {
	gorm.Model
	Name         string     `json:"name"`
	Email        string     `json:"email" gorm:"uniqueIndex"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Phone        string     `json:"phone"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLogin    *time.Time `json:"last_login"`
}

// Owner owns properties and the managers working them. Created only by a
// super admin.
type Owner struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"uniqueIndex"`
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	User        User   `gorm:"foreignKey:UserID" json:"user"`
}

// Manager belongs to exactly one Owner. PermissionsJSON is a
// capability->bool map consulted for restricted write operations.
type Manager struct {
	gorm.Model
	UserID          uint   `json:"user_id" gorm:"uniqueIndex"`
	OwnerID         uint   `json:"owner_id" gorm:"index"`
	PermissionsJSON string `json:"-" gorm:"column:permissions"`
	User            User   `gorm:"foreignKey:UserID" json:"user"`
	Owner           Owner  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner"`
}

// Permissions decodes the capability map. A missing or malformed map
// grants nothing.
func (m *Manager) Permissions() map[string]bool {
	perms := map[string]bool{}
	if m.PermissionsJSON != "" {
		_ = json.Unmarshal([]byte(m.PermissionsJSON), &perms)
	}
	return perms
}

// SetPermissions encodes the capability map back to the stored column.
func (m *Manager) SetPermissions(perms map[string]bool) error {
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	m.PermissionsJSON = string(raw)
	return nil
}

// Tenant belongs to exactly one Property, assigned at creation.
type Tenant struct {
	gorm.Model
	UserID           uint      `json:"user_id" gorm:"uniqueIndex"`
	PropertyID       uint      `json:"property_id" gorm:"index"`
	IsActive         bool      `json:"is_active" gorm:"default:true"`
	MoveInDate       time.Time `json:"move_in_date"`
	EmergencyContact string    `json:"emergency_contact"`
	User             User      `gorm:"foreignKey:UserID" json:"user"`
	Property         Property  `gorm:"foreignKey:PropertyID" json:"property"`
}

// Property belongs to exactly one Owner.
type Property struct {
	gorm.Model
	OwnerID       uint   `json:"owner_id" gorm:"index"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
	PropertyType  string `json:"property_type"`
	Bedrooms      int    `json:"bedrooms"`
	Bathrooms     int    `json:"bathrooms"`
	MonthlyRent   int64  `json:"monthly_rent"` // minor units
	Status        string `json:"status"`
	Description   string `json:"description"`
	Owner         Owner  `gorm:"foreignKey:OwnerID" json:"owner"`
}

// Lease binds one Tenant to one Property for [start_date, end_date).
// A tenant may hold at most one active lease, and active leases on the
// same property must not overlap.
type Lease struct {
	gorm.Model
	TenantID          uint       `json:"tenant_id" gorm:"index"`
	PropertyID        uint       `json:"property_id" gorm:"index"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	MonthlyRentCents  int64      `json:"monthly_rent_cents"`
	DepositCents      int64      `json:"deposit_cents"`
	Status            string     `json:"status"`
	TerminatedAt      *time.Time `json:"terminated_at"`
	TerminationReason string     `json:"termination_reason"`
	Notes             string     `json:"notes"`
	Tenant            Tenant     `gorm:"foreignKey:TenantID" json:"tenant"`
	Property          Property   `gorm:"foreignKey:PropertyID" json:"property"`
}

// Payment belongs to one Lease and, redundantly for query convenience,
// one Tenant. AmountCents is minor units so sums stay exact.
type Payment struct {
	gorm.Model
	LeaseID       uint       `json:"lease_id" gorm:"index"`
	TenantID      uint       `json:"tenant_id" gorm:"index"`
	AmountCents   int64      `json:"amount_cents"`
	Status        string     `json:"status"`
	DueDate       time.Time  `json:"due_date"`
	PaidDate      *time.Time `json:"paid_date"`
	Method        string     `json:"method"`
	TransactionID string     `json:"transaction_id"`
	InvoiceNumber string     `json:"invoice_number"`
	Notes         string     `json:"notes"`
	Lease         Lease      `gorm:"foreignKey:LeaseID" json:"lease"`
	Tenant        Tenant     `gorm:"foreignKey:TenantID" json:"tenant"`
}

// Receipt is the immutable artifact of one settlement. A re-settled
// payment gets a new Receipt row; existing rows are never mutated.
type Receipt struct {
	gorm.Model
	PaymentID     uint    `json:"payment_id" gorm:"index"`
	ReceiptNumber string  `json:"receipt_number" gorm:"uniqueIndex"`
	AmountCents   int64   `json:"amount_cents"`
	URL           string  `json:"url"`
	Payment       Payment `gorm:"foreignKey:PaymentID" json:"payment"`
}

// Complaint is a tenant report against a property.
type Complaint struct {
	gorm.Model
	PropertyID   uint       `json:"property_id" gorm:"index"`
	TenantID     *uint      `json:"tenant_id"`
	AssignedToID *uint      `json:"assigned_to_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Status       string     `json:"status"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	Property     Property   `gorm:"foreignKey:PropertyID" json:"property"`
	Tenant       *Tenant    `gorm:"foreignKey:TenantID" json:"tenant"`
	AssignedTo   *User      `gorm:"foreignKey:AssignedToID" json:"assigned_to"`
}

// MaintenanceRequest tracks scheduled or requested work on a property.
type MaintenanceRequest struct {
	gorm.Model
	PropertyID    uint       `json:"property_id" gorm:"index"`
	RequestedByID *uint      `json:"requested_by_id"`
	AssignedToID  *uint      `json:"assigned_to_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
	CompletedAt   *time.Time `json:"completed_at"`
	CostCents     int64      `json:"cost_cents"`
	Property      Property   `gorm:"foreignKey:PropertyID" json:"property"`
	RequestedBy   *User      `gorm:"foreignKey:RequestedByID" json:"requested_by"`
	AssignedTo    *User      `gorm:"foreignKey:AssignedToID" json:"assigned_to"`
}

// Notification is append-only; only IsRead is mutable, and only by the
// recipient.
type Notification struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"index"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	RelatedID   *uint  `json:"related_id"`
	RelatedType string `json:"related_type"`
	IsRead      bool   `json:"is_read"`
	User        User   `gorm:"foreignKey:UserID" json:"user"`
}

// AuditLog is an append-only record of financially significant mutations.
type AuditLog struct {
	gorm.Model
	UserID     *uint  `json:"user_id"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   uint   `json:"entity_id"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
	IPAddress  string `json:"ip_address"`
	User       *User  `gorm:"foreignKey:UserID" json:"user"`
}

// LoginAttempt records every login for the retention sweep and abuse
// review.
type LoginAttempt struct {
	gorm.Model
	Email     string `json:"email" gorm:"index"`
	Success   bool   `json:"success"`
	IPAddress string `json:"ip_address"`
}

// AnalyticsSnapshot is the immutable monthly per-owner report row.
type AnalyticsSnapshot struct {
	gorm.Model
	OwnerID            uint      `json:"owner_id" gorm:"index"`
	PeriodStart        time.Time `json:"period_start"`
	PeriodEnd          time.Time `json:"period_end"`
	RevenueCents       int64     `json:"revenue_cents"`
	TotalProperties    int64     `json:"total_properties"`
	OccupiedProperties int64     `json:"occupied_properties"`
}

// PasswordReset represents a password reset request
type PasswordReset struct {
	gorm.Model
	UserID    uint      `json:"user_id"`
	Token     string    `json:"token" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
}

// FeatureFlag is a read-mostly toggle served through the look-aside
// cache. Never authoritative for authorization decisions.
type FeatureFlag struct {
	gorm.Model
	Name    string `json:"name" gorm:"uniqueIndex"`
	Enabled bool   `json:"enabled"`
}

// Constants for status values
const (
	LeaseStatusPending    = "pending"
	LeaseStatusActive     = "active"
	LeaseStatusExpired    = "expired"
	LeaseStatusTerminated = "terminated"

	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusOverdue   = "overdue"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusRefunded  = "refunded"

	PaymentMethodOnline = "online"
	PaymentMethodCash   = "cash"
	PaymentMethodCheque = "cheque"
	PaymentMethodBank   = "bank_transfer"

	PropertyStatusAvailable   = "available"
	PropertyStatusOccupied    = "occupied"
	PropertyStatusMaintenance = "maintenance"
	PropertyStatusUnavailable = "unavailable"

	ComplaintStatusOpen       = "open"
	ComplaintStatusInProgress = "in_progress"
	ComplaintStatusResolved   = "resolved"
	ComplaintStatusClosed     = "closed"

	MaintenanceStatusOpen       = "open"
	MaintenanceStatusInProgress = "in_progress"
	MaintenanceStatusCompleted  = "completed"
	MaintenanceStatusCancelled  = "cancelled"

	// User roles
	RoleSuperAdmin = "super_admin"
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleTenant     = "tenant"

	// Manager capabilities
	PermApprovePayments   = "approve_payments"
	PermManageLeases      = "manage_leases"
	PermManageComplaints  = "manage_complaints"
	PermManageMaintenance = "manage_maintenance"
)
