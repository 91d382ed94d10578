package domain

import "time"

// ActorContext carries request provenance for the audit trail. The gate
// treats it as opaque.
type ActorContext struct {
	IP     string
	Device string
}

// AuditEntry is one immutable record of a switch attempt. Seq is a per-user
// monotonic sequence assigned at append time, so a single user's timeline
// is reconstructable even when entries across users interleave in storage.
type AuditEntry struct {
	ID        string
	UserID    string
	Seq       int64
	Method    Method
	Outcome   Outcome
	Actor     ActorContext
	CreatedAt time.Time
}

// AuditStats is the operations-console projection over the audit trail.
type AuditStats struct {
	TotalViolations int64 // completed failures plus rate-limit rejections, all time
	Violations24h   int64 // same, limited to the trailing 24 hours
	LockedUsers     int64 // (user, method) pairs with an active lockout
}
