package models

import "time"

// Role is the access level of a refrigerator member. RoleOwner is never
// stored on an invitation; it is reported for the refrigerator owner.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

type InvitationStatus string

const (
	StatusPending  InvitationStatus = "pending"
	StatusAccepted InvitationStatus = "accepted"
	StatusRejected InvitationStatus = "rejected"
)

const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Invitation is a shared_refrigerators row. Once accepted it doubles as the
// membership record.
type Invitation struct {
	ID             int              `json:"id" db:"id"`
	RefrigeratorID int              `json:"refrigerator_id" db:"refrigerator_id"`
	OwnerID        string           `json:"owner_id" db:"owner_id"`
	InvitedEmail   string           `json:"invited_email" db:"invited_email"`
	Status         InvitationStatus `json:"status" db:"status"`
	Role           Role             `json:"role" db:"role"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`

	// Joined fields
	RefrigeratorName string `json:"refrigerator_name,omitempty"`
	OwnerEmail       string `json:"owner_email,omitempty"`
}

// Member is one row of a refrigerator's access set. The owner is reported
// with ID 0 because it has no invitation row.
type Member struct {
	ID        int              `json:"id"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

type ShareRefrigeratorRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"omitempty,oneof=admin viewer"`
}

type RespondInvitationRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin viewer"`
}
