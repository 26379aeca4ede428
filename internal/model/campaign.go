// internal/model/campaign.go
package model

import "time"

// CampaignStatus represents valid campaign statuses. Transitions are
// monotonic: draft -> scheduled -> sending -> completed|failed, and the
// last two are terminal.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

type Campaign struct {
	ID           int            `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Description  string         `db:"description" json:"description"`
	SegmentID    int            `db:"segment_id" json:"segment_id"`
	Channel      Channel        `db:"channel" json:"channel"`
	Status       CampaignStatus `db:"status" json:"status"`
	BaseTemplate string         `db:"base_template" json:"base_template"`
	ScheduledFor *time.Time     `db:"scheduled_for" json:"scheduled_for,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
