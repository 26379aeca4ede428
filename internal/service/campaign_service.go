// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	appErrors "github.com/campaignify/xenocrm-backend/internal/errors"
	"github.com/campaignify/xenocrm-backend/internal/model"
	"github.com/campaignify/xenocrm-backend/internal/repository"
)

// DefaultMaxInFlight bounds concurrent dispatches per campaign run so the
// transport is not overwhelmed.
const DefaultMaxInFlight = 8

// CampaignService owns the campaign lifecycle state machine and the
// dispatch fan-out of one execution.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	SegmentRepo  repository.SegmentRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
	Segments     *SegmentService
	Dispatcher   Dispatcher
	MaxInFlight  int
}

// ExecutionResult summarizes one campaign run. Individual dispatch
// failures are data here, not an error: a run with every dispatch failed
// still completes.
type ExecutionResult struct {
	CampaignID   int                  `json:"campaign_id"`
	Status       model.CampaignStatus `json:"status"`
	AudienceSize int                  `json:"audience_size"`
	Dispatched   int                  `json:"dispatched"`
	Failed       int                  `json:"failed"`
	Warnings     []string             `json:"warnings,omitempty"`
}

func (s *CampaignService) maxInFlight() int {
	if s.MaxInFlight > 0 {
		return s.MaxInFlight
	}
	return DefaultMaxInFlight
}

// ExecuteCampaign runs one campaign end to end: guard the scheduled ->
// sending transition, snapshot the audience, fan out one dispatch per
// member, record every outcome, finalize to completed. Only a systemic
// fault moves the campaign to failed.
func (s *CampaignService) ExecuteCampaign(ctx context.Context, campaignID int) (*ExecutionResult, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	// The compare-and-set below is the whole re-entrancy guard: a second
	// trigger for the same id loses the race and gets a conflict, with no
	// state mutated and no duplicate messages.
	ok, err := s.CampaignRepo.UpdateStatusIf(campaignID, model.CampaignStatusScheduled, model.CampaignStatusSending)
	if err != nil {
		return nil, appErrors.NewSystemFailure("update campaign status to sending", err)
	}
	if !ok {
		if cur, gerr := s.CampaignRepo.GetByID(campaignID); gerr == nil {
			campaign = cur
		}
		return nil, appErrors.NewStateConflict(campaignID, string(campaign.Status))
	}

	// From here the campaign is durably in sending; any systemic fault
	// must leave it failed, not silently re-runnable.
	segment, err := s.SegmentRepo.GetByID(campaign.SegmentID)
	if err != nil {
		s.markFailed(campaignID)
		return nil, appErrors.NewSystemFailure("load segment", err)
	}

	audience, warnings, err := s.Segments.ResolveAudience(segment)
	if err != nil {
		s.markFailed(campaignID)
		return nil, appErrors.NewSystemFailure("resolve audience", err)
	}

	result := &ExecutionResult{
		CampaignID:   campaignID,
		AudienceSize: len(audience),
		Warnings:     warnings,
	}

	// Audience is snapshotted at this instant; membership changes from
	// here on do not affect the in-flight run.
	messages := make([]*model.Message, 0, len(audience))
	recipients := make([]model.Customer, 0, len(audience))
	for _, customer := range audience {
		msg := &model.Message{
			CampaignID: campaignID,
			CustomerID: customer.ID,
			Channel:    campaign.Channel,
			Content:    RenderContent(campaign, &customer),
			Status:     model.MessageStatusPending,
		}
		if err := s.MessageRepo.Create(msg); err != nil {
			log.Println("⚠️ failed to create message for customer", customer.ID, ":", err)
			result.Failed++
			continue
		}
		messages = append(messages, msg)
		recipients = append(recipients, customer)
	}

	dispatched, failed := s.fanOut(ctx, messages, recipients)
	result.Dispatched = dispatched
	result.Failed += failed

	ok, err = s.CampaignRepo.UpdateStatusIf(campaignID, model.CampaignStatusSending, model.CampaignStatusCompleted)
	if err != nil || !ok {
		s.markFailed(campaignID)
		if err == nil {
			err = fmt.Errorf("campaign %d no longer in sending state", campaignID)
		}
		return nil, appErrors.NewSystemFailure("update campaign status to completed", err)
	}

	result.Status = model.CampaignStatusCompleted
	return result, nil
}

// fanOut dispatches the batch with bounded concurrency and waits for
// every outcome. Each outcome is persisted independently; one failure
// never aborts or rolls back its siblings.
func (s *CampaignService) fanOut(ctx context.Context, messages []*model.Message, recipients []model.Customer) (dispatched, failed int) {
	sem := make(chan struct{}, s.maxInFlight())
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := range messages {
		wg.Add(1)
		sem <- struct{}{}
		go func(msg *model.Message, customer model.Customer) {
			defer wg.Done()
			defer func() { <-sem }()

			status, err := s.Dispatcher.Dispatch(ctx, msg, &customer)
			if err != nil {
				derr := appErrors.NewDispatchError(customer.ID, err)
				if uerr := s.MessageRepo.UpdateStatus(msg.ID, model.MessageStatusFailed, derr.Error()); uerr != nil {
					log.Println("⚠️ failed to record dispatch failure for message", msg.ID, ":", uerr)
				}
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			if uerr := s.MessageRepo.UpdateStatus(msg.ID, status, ""); uerr != nil {
				log.Println("⚠️ failed to record dispatch outcome for message", msg.ID, ":", uerr)
			}
			mu.Lock()
			dispatched++
			mu.Unlock()
		}(messages[i], recipients[i])
	}

	wg.Wait()
	return dispatched, failed
}

// markFailed is best-effort: the engine cannot loop retrying state writes
// forever, so a failure here is logged and dropped.
func (s *CampaignService) markFailed(campaignID int) {
	ok, err := s.CampaignRepo.UpdateStatusIf(campaignID, model.CampaignStatusSending, model.CampaignStatusFailed)
	if err != nil {
		log.Println("⚠️ failed to mark campaign", campaignID, "as failed:", err)
		return
	}
	if !ok {
		log.Println("⚠️ campaign", campaignID, "left sending state before it could be marked failed")
	}
}

// ScheduleCampaign records the intent to run a draft campaign at the
// given time (or immediately when at is nil). The actual trigger is the
// external scheduling facility; nothing here owns a wall-clock delay.
func (s *CampaignService) ScheduleCampaign(campaignID int, at *time.Time) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	when := time.Now()
	if at != nil {
		when = *at
	}

	ok, err := s.CampaignRepo.Schedule(campaignID, when)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewStateConflict(campaignID, string(campaign.Status))
	}

	campaign.Status = model.CampaignStatusScheduled
	campaign.ScheduledFor = &when
	return campaign, nil
}

// CreateCampaign stores a new draft campaign targeting one segment.
func (s *CampaignService) CreateCampaign(name, description string, segmentID int, channel model.Channel, baseTemplate string, scheduledFor *string) (*model.Campaign, error) {
	if _, err := s.SegmentRepo.GetByID(segmentID); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Name:         name,
		Description:  description,
		SegmentID:    segmentID,
		Channel:      channel,
		BaseTemplate: baseTemplate,
		Status:       model.CampaignStatusDraft,
	}

	if scheduledFor != nil {
		t, err := time.Parse(time.RFC3339, *scheduledFor)
		if err != nil {
			return nil, appErrors.NewValidation("scheduled_for", "must be an RFC3339 timestamp")
		}
		c.ScheduledFor = &t
	}

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// RenderPreview renders the campaign's message for a single customer,
// optionally with a template override.
func (s *CampaignService) RenderPreview(campaignID, customerID int, overrideTemplate *string) (string, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return "", err
	}

	customer, err := s.CustomerRepo.GetByID(customerID)
	if err != nil {
		return "", err
	}
	if customer == nil {
		return "", appErrors.NewCustomerNotFound(customerID)
	}

	if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
		preview := *campaign
		preview.BaseTemplate = *overrideTemplate
		return RenderContent(&preview, customer), nil
	}
	return RenderContent(campaign, customer), nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, channel, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, channel, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}
