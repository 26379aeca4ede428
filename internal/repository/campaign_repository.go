package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/campaignify/xenocrm-backend/internal/errors"
	"github.com/campaignify/xenocrm-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error)
	ListDue(now time.Time) ([]*model.Campaign, error)

	// Schedule moves a draft campaign to scheduled with its trigger time.
	Schedule(campaignID int, at time.Time) (bool, error)

	// UpdateStatusIf is an atomic compare-and-set on the status column:
	// the update applies only when the current status equals from. It is
	// the sole concurrency control around campaign execution.
	UpdateStatusIf(campaignID int, from, to model.CampaignStatus) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = "id, name, description, segment_id, channel, status, base_template, scheduled_for, created_at, updated_at"

func scanCampaign(row interface{ Scan(...interface{}) error }, c *model.Campaign) error {
	return row.Scan(&c.ID, &c.Name, &c.Description, &c.SegmentID, &c.Channel,
		&c.Status, &c.BaseTemplate, &c.ScheduledFor, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	if c.Channel == "" {
		c.Channel = model.ChannelEmail
	}
	query := `
        INSERT INTO campaigns (name, description, segment_id, channel, status, base_template, scheduled_for, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.Name, c.Description, c.SegmentID, c.Channel,
		c.Status, c.BaseTemplate, c.ScheduledFor, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	var c model.Campaign
	if err := scanCampaign(r.DB.QueryRow(query, id), &c); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if channel != "" {
		query += fmt.Sprintf(" AND channel=$%d", argPos)
		args = append(args, channel)
		argPos++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		if err := scanCampaign(rows, c); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	// Count total
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	argPosCount := 1
	if channel != "" {
		countQuery += fmt.Sprintf(" AND channel=$%d", argPosCount)
		argsCount = append(argsCount, channel)
		argPosCount++
	}
	if status != "" {
		countQuery += fmt.Sprintf(" AND status=$%d", argPosCount)
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ListDue returns scheduled campaigns whose trigger time has passed.
// Campaigns that were due while the process was down are picked up here
// on the next tick, so no in-process timer state is ever required.
func (r *CampaignRepository) ListDue(now time.Time) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
        WHERE status = $1 AND scheduled_for IS NOT NULL AND scheduled_for <= $2
        ORDER BY scheduled_for`
	rows, err := r.DB.Query(query, model.CampaignStatusScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c := &model.Campaign{}
		if err := scanCampaign(rows, c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Schedule(campaignID int, at time.Time) (bool, error) {
	query := `UPDATE campaigns SET status=$1, scheduled_for=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	res, err := r.DB.Exec(query, model.CampaignStatusScheduled, at, campaignID, model.CampaignStatusDraft)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *CampaignRepository) UpdateStatusIf(campaignID int, from, to model.CampaignStatus) (bool, error) {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	res, err := r.DB.Exec(query, to, campaignID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
