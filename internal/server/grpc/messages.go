package grpc

import (
	"time"

	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/dmitrijs2005/sic/internal/server/services"
)

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterUserRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    string  `json:"email"`
	Birthday *string `json:"birthday,omitempty"`
}

type RegisterUserResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type RegisterDeviceRequest struct {
	Name      string  `json:"name"`
	PublicKey *string `json:"public_key,omitempty"`
}

type Device struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	OwnerID    int64     `json:"owner_id"`
	Authorized bool      `json:"authorized"`
	PublicKey  *string   `json:"public_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type DeviceResponse struct {
	Device Device `json:"device"`
}

type ListDevicesResponse struct {
	Devices []Device `json:"devices"`
}

type ConfirmRequest struct {
	Confirmation string `json:"confirmation"`
}

type SiteStatusResponse struct {
	Locked            bool       `json:"locked"`
	ShutdownRequested bool       `json:"shutdown_requested"`
	ChangedBy         string     `json:"changed_by,omitempty"`
	ChangedAt         *time.Time `json:"changed_at,omitempty"`
}

type DeviceIDRequest struct {
	DeviceID int64 `json:"device_id"`
}

type BlockUserRequest struct {
	UserID int64 `json:"user_id"`
	Tier   int   `json:"tier"`
}

type UserIDRequest struct {
	UserID int64 `json:"user_id"`
}

type SanctionResponse struct {
	UserID              int64   `json:"user_id"`
	Blocked             bool    `json:"blocked"`
	BlockedCode         *string `json:"blocked_code"`
	PermanentlyBanned   bool    `json:"permanently_banned"`
	DevicesDeauthorized int64   `json:"devices_deauthorized"`
	SessionsRevoked     bool    `json:"sessions_revoked"`
}

type SubmitAppealRequest struct {
	Reason string `json:"reason"`
}

type Appeal struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Reason     string     `json:"reason"`
	Resolved   bool       `json:"resolved"`
	Approved   bool       `json:"approved"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *string    `json:"resolved_by,omitempty"`
}

type AppealResponse struct {
	Appeal Appeal `json:"appeal"`
}

type PendingAppeal struct {
	AppealID    int64     `json:"appeal_id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Reason      string    `json:"reason"`
	BlockedCode *string   `json:"blocked_code"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListPendingAppealsResponse struct {
	Appeals []PendingAppeal `json:"appeals"`
}

type ResolveAppealRequest struct {
	AppealID int64 `json:"appeal_id"`
	Approve  bool  `json:"approve"`
}

func deviceFromModel(d *models.Device) Device {
	return Device{
		ID:         d.ID,
		Name:       d.Name,
		OwnerID:    d.OwnerID,
		Authorized: d.Authorized,
		PublicKey:  d.PublicKey,
		CreatedAt:  d.CreatedAt,
	}
}

func appealFromModel(a *models.Appeal) Appeal {
	return Appeal{
		ID:         a.ID,
		UserID:     a.UserID,
		Reason:     a.Reason,
		Resolved:   a.Resolved,
		Approved:   a.Approved,
		CreatedAt:  a.CreatedAt,
		ResolvedAt: a.ResolvedAt,
		ResolvedBy: a.ResolvedBy,
	}
}

func sanctionFromResult(r *services.SanctionResult) *SanctionResponse {
	return &SanctionResponse{
		UserID:              r.User.ID,
		Blocked:             r.User.Blocked,
		BlockedCode:         r.User.BlockedCode,
		PermanentlyBanned:   r.User.PermanentlyBanned,
		DevicesDeauthorized: r.DevicesDeauthorized,
		SessionsRevoked:     r.SessionsRevoked,
	}
}
