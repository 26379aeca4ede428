package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/campaignify/xenocrm-backend/internal/errors"
	"github.com/campaignify/xenocrm-backend/internal/model"
)

type SegmentRepositoryInterface interface {
	Create(s *model.Segment) error
	GetByID(id int) (*model.Segment, error)
	ListAll() ([]model.Segment, error)
}

type SegmentRepository struct {
	DB *sql.DB
}

func (r *SegmentRepository) Create(s *model.Segment) error {
	s.CreatedAt = time.Now()
	if len(s.Rules) == 0 {
		s.Rules = json.RawMessage(`{}`)
	}
	query := `
        INSERT INTO segments (name, description, rules, created_at)
        VALUES ($1, $2, $3::jsonb, $4)
        RETURNING id
    `
	return r.DB.QueryRow(query, s.Name, s.Description, []byte(s.Rules), s.CreatedAt).Scan(&s.ID)
}

func (r *SegmentRepository) GetByID(id int) (*model.Segment, error) {
	query := `SELECT id, name, description, rules, created_at FROM segments WHERE id = $1`
	var s model.Segment
	var rules []byte
	err := r.DB.QueryRow(query, id).Scan(&s.ID, &s.Name, &s.Description, &rules, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewSegmentNotFound(id)
		}
		return nil, err
	}
	s.Rules = json.RawMessage(rules)
	return &s, nil
}

func (r *SegmentRepository) ListAll() ([]model.Segment, error) {
	query := `SELECT id, name, description, rules, created_at FROM segments ORDER BY id DESC`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	segments := []model.Segment{}
	for rows.Next() {
		var s model.Segment
		var rules []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &rules, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Rules = json.RawMessage(rules)
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

var _ SegmentRepositoryInterface = (*SegmentRepository)(nil)
