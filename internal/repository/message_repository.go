package repository

import (
	"database/sql"
	"time"

	"github.com/campaignify/xenocrm-backend/internal/model"
)

type MessageRepositoryInterface interface {
	Create(m *model.Message) error
	GetByID(id int) (*model.Message, error)
	UpdateStatus(id int, status model.MessageStatus, lastError string) error
	ListByCampaign(campaignID int) ([]model.Message, error)
	StatsByCampaign(campaignID int) (map[model.MessageStatus]int, error)
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = "id, campaign_id, customer_id, channel, content, status, last_error, created_at, updated_at"

func scanMessage(row interface{ Scan(...interface{}) error }, m *model.Message) error {
	return row.Scan(&m.ID, &m.CampaignID, &m.CustomerID, &m.Channel, &m.Content,
		&m.Status, &m.LastError, &m.CreatedAt, &m.UpdatedAt)
}

// Create inserts a new message and fills in its ID
func (r *MessageRepository) Create(m *model.Message) error {
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = model.MessageStatusPending
	}
	query := `
        INSERT INTO messages (campaign_id, customer_id, channel, content, status, last_error, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, m.CampaignID, m.CustomerID, m.Channel, m.Content,
		m.Status, m.LastError, m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
}

func (r *MessageRepository) GetByID(id int) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	var m model.Message
	if err := scanMessage(r.DB.QueryRow(query, id), &m); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) UpdateStatus(id int, status model.MessageStatus, lastError string) error {
	query := `UPDATE messages SET status=$1, last_error=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, status, lastError, id)
	return err
}

func (r *MessageRepository) ListByCampaign(campaignID int) ([]model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE campaign_id = $1 ORDER BY id`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// StatsByCampaign counts a campaign's messages grouped by status.
func (r *MessageRepository) StatsByCampaign(campaignID int) (map[model.MessageStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM messages WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[model.MessageStatus]int{
		model.MessageStatusPending:   0,
		model.MessageStatusSent:      0,
		model.MessageStatusDelivered: 0,
		model.MessageStatusFailed:    0,
	}
	for rows.Next() {
		var status model.MessageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
