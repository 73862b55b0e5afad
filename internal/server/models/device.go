package models

import "time"

// Device is a client registered by a user. OwnerID always refers to the
// account that registered it.
type Device struct {
	ID         int64
	Name       string
	OwnerID    int64
	Authorized bool
	PublicKey  *string
	CreatedAt  time.Time
}
