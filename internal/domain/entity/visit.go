package entity

import "time"

// Survey is a scheduled site visit by a single inspector
type Survey struct {
	ID            int64       `json:"id"`
	TenantID      int64       `json:"tenantId"`
	ProjectID     int64       `json:"projectId"`
	QuoteID       *int64      `json:"quoteId"`
	ScheduledDate string      `json:"scheduledDate"`
	TimeWindow    *string     `json:"timeWindow"`
	Status        VisitStatus `json:"status"`
	AssignedTo    *int64      `json:"assignedTo"`
	CompletedBy   *int64      `json:"completedBy"`
	CompletedAt   *time.Time  `json:"completedAt"`
	Notes         string      `json:"notes"`
	CreatedBy     int64       `json:"createdBy"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Installation is a scheduled on-site work order carried out by a crew
type Installation struct {
	ID            int64       `json:"id"`
	TenantID      int64       `json:"tenantId"`
	ProjectID     int64       `json:"projectId"`
	QuoteID       *int64      `json:"quoteId"`
	ScheduledDate string      `json:"scheduledDate"`
	StartTime     *string     `json:"startTime"`
	EndTime       *string     `json:"endTime"`
	Status        VisitStatus `json:"status"`
	AssignedTo    []int64     `json:"assignedTo"`
	CompletedBy   *int64      `json:"completedBy"`
	CompletedAt   *time.Time  `json:"completedAt"`
	Notes         string      `json:"notes"`
	CreatedBy     int64       `json:"createdBy"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// VisitCompletion records who closed a visit and when
type VisitCompletion struct {
	Status      VisitStatus
	CompletedBy *int64
	CompletedAt *time.Time
}
