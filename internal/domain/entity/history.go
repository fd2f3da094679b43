package entity

import "time"

// QuoteStatusChange is one row of a quote's status audit trail
type QuoteStatusChange struct {
	ID         int64       `json:"id"`
	TenantID   int64       `json:"tenantId"`
	QuoteID    int64       `json:"quoteId"`
	FromStatus QuoteStatus `json:"fromStatus"`
	ToStatus   QuoteStatus `json:"toStatus"`
	Trigger    string      `json:"trigger"`
	ActorID    int64       `json:"actorId"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Scope identifies the tenant and actor a request runs as
type Scope struct {
	TenantID int64
	ActorID  int64
}
