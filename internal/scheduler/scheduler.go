// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	appErrors "github.com/campaignify/xenocrm-backend/internal/errors"
	"github.com/campaignify/xenocrm-backend/internal/repository"
	"github.com/campaignify/xenocrm-backend/internal/service"
)

// Scheduler periodically scans for scheduled campaigns whose trigger time
// has passed and starts their execution. Due campaigns are read from the
// database on every tick, so a campaign that came due while the process
// was down is picked up on the next tick rather than lost with an
// in-process timer.
type Scheduler struct {
	Campaigns    *service.CampaignService
	CampaignRepo repository.CampaignRepositoryInterface
	Interval     time.Duration
}

func New(campaigns *service.CampaignService, repo repository.CampaignRepositoryInterface, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		Campaigns:    campaigns,
		CampaignRepo: repo,
		Interval:     interval,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Println("⏰ Campaign scheduler running, interval:", s.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick executes every due campaign once. The engine's own scheduled-state
// guard makes overlapping ticks and competing triggers safe.
func (s *Scheduler) Tick(ctx context.Context) {
	due, err := s.CampaignRepo.ListDue(time.Now())
	if err != nil {
		log.Println("⚠️ scheduler failed to list due campaigns:", err)
		return
	}

	for _, campaign := range due {
		result, err := s.Campaigns.ExecuteCampaign(ctx, campaign.ID)
		if err != nil {
			var conflict *appErrors.StateConflictError
			if errors.As(err, &conflict) {
				// Another trigger got there first.
				continue
			}
			log.Println("⚠️ scheduled execution of campaign", campaign.ID, "failed:", err)
			continue
		}
		log.Printf("✅ Campaign %d executed: %d dispatched, %d failed\n",
			campaign.ID, result.Dispatched, result.Failed)
	}
}
