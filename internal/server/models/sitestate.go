package models

import "time"

// SiteState is the recorded site-wide decision made by administrators.
// Enforcement happens outside this service.
type SiteState struct {
	Locked            bool
	ShutdownRequested bool
	ChangedBy         string
	ChangedAt         time.Time
}
