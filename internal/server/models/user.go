// Package models holds the persistent records of the account and moderation
// domain along with the state transitions that keep them consistent.
package models

import "time"

// Sanction codes stored in users.blocked_code.
const (
	SanctionBlocked  = "BLOCKED"
	SanctionPermaBan = "PERMA_BAN"
)

// User is an account row.
//
// Invariants kept by the transition methods below:
//   - PermanentlyBanned implies Blocked with code PERMA_BAN.
//   - When Blocked is false, BlockedCode is nil.
//   - PermanentlyBanned never goes back to false.
type User struct {
	ID                int64
	UserName          string
	Email             string
	PasswordHash      string
	SecretKey         string
	Birthday          *string
	IsAdmin           bool
	Blocked           bool
	BlockedCode       *string
	PermanentlyBanned bool
	CreatedAt         time.Time
}

// ApplyBlock marks the account blocked. A banned account keeps PERMA_BAN.
func (u *User) ApplyBlock() {
	u.Blocked = true
	if u.PermanentlyBanned {
		u.setCode(SanctionPermaBan)
		return
	}
	u.setCode(SanctionBlocked)
}

// ApplyBan marks the account permanently banned.
func (u *User) ApplyBan() {
	u.PermanentlyBanned = true
	u.Blocked = true
	u.setCode(SanctionPermaBan)
}

// ClearBlock lifts a non-permanent block. It reports false and leaves the
// account untouched when the account is permanently banned.
func (u *User) ClearBlock() bool {
	if u.PermanentlyBanned {
		return false
	}
	u.Blocked = false
	u.BlockedCode = nil
	return true
}

// Code returns the sanction code or "" when there is none.
func (u *User) Code() string {
	if u.BlockedCode == nil {
		return ""
	}
	return *u.BlockedCode
}

func (u *User) setCode(code string) {
	c := code
	u.BlockedCode = &c
}
