// internal/service/stats_service.go
package service

import (
	"github.com/campaignify/xenocrm-backend/internal/model"
	"github.com/campaignify/xenocrm-backend/internal/repository"
)

// StatsService aggregates campaign reporting data.
type StatsService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	SegmentRepo  repository.SegmentRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
	Segments     *SegmentService
}

// CampaignStats pairs the segment's current potential reach with the
// historical dispatch outcome. AudienceSize is evaluated live against the
// customer store at read time, so it can drift from Total, which counts
// what was actually dispatched when the campaign ran.
type CampaignStats struct {
	CampaignID   int                  `json:"campaign_id"`
	Status       model.CampaignStatus `json:"status"`
	AudienceSize int                  `json:"audience_size"`
	Pending      int                  `json:"pending"`
	Sent         int                  `json:"sent"`
	Delivered    int                  `json:"delivered"`
	Failed       int                  `json:"failed"`
	Total        int                  `json:"total"`
	Warnings     []string             `json:"warnings,omitempty"`
}

func (s *StatsService) CampaignStats(campaignID int) (*CampaignStats, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	segment, err := s.SegmentRepo.GetByID(campaign.SegmentID)
	if err != nil {
		return nil, err
	}

	size, warnings, err := s.Segments.CountAudience(segment)
	if err != nil {
		return nil, err
	}

	counts, err := s.MessageRepo.StatsByCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	stats := &CampaignStats{
		CampaignID:   campaignID,
		Status:       campaign.Status,
		AudienceSize: size,
		Pending:      counts[model.MessageStatusPending],
		Sent:         counts[model.MessageStatusSent],
		Delivered:    counts[model.MessageStatusDelivered],
		Failed:       counts[model.MessageStatusFailed],
		Warnings:     warnings,
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
