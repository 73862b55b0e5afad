package models

import "time"

// Appeal is a blocked user's request to lift the block. Once Resolved it is
// never reopened.
type Appeal struct {
	ID         int64
	UserID     int64
	Reason     string
	Resolved   bool
	Approved   bool
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ResolvedBy *string
}

// PendingAppeal is an unresolved appeal joined with its owner.
type PendingAppeal struct {
	AppealID    int64
	UserID      int64
	UserName    string
	Email       string
	Reason      string
	BlockedCode *string
	CreatedAt   time.Time
}
