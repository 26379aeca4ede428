package service_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/campaignify/xenocrm-backend/internal/errors"
	"github.com/campaignify/xenocrm-backend/internal/model"
	"github.com/campaignify/xenocrm-backend/internal/repository"
)

// --- Mock customer store ---

type memCustomerStore struct {
	customers []model.Customer
	findErr   error
}

func matchPredicate(p repository.Predicate, c model.Customer) bool {
	if p.NameContains != nil && !strings.Contains(c.Name, *p.NameContains) {
		return false
	}
	if p.Country != nil && c.Country != *p.Country {
		return false
	}
	if p.MaxVisits != nil && c.Visits > *p.MaxVisits {
		return false
	}
	if p.MinTotalSpent != nil && c.TotalSpent < *p.MinTotalSpent {
		return false
	}
	if p.ActiveBefore != nil {
		if c.LastActive == nil || c.LastActive.After(*p.ActiveBefore) {
			return false
		}
	}
	return true
}

func (m *memCustomerStore) FindByPredicate(p repository.Predicate) ([]model.Customer, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := []model.Customer{}
	for _, c := range m.customers {
		if matchPredicate(p, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCustomerStore) CountByPredicate(p repository.Predicate) (int, error) {
	found, err := m.FindByPredicate(p)
	if err != nil {
		return 0, err
	}
	return len(found), nil
}

func (m *memCustomerStore) GetByID(id int) (*model.Customer, error) {
	for i := range m.customers {
		if m.customers[i].ID == id {
			c := m.customers[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memCustomerStore) ListAll() ([]model.Customer, error) {
	return m.customers, nil
}

func (m *memCustomerStore) UpsertByEmail(c *model.Customer) (bool, error) {
	for i := range m.customers {
		if m.customers[i].Email == c.Email {
			c.ID = m.customers[i].ID
			m.customers[i] = *c
			return false, nil
		}
	}
	c.ID = len(m.customers) + 1
	m.customers = append(m.customers, *c)
	return true, nil
}

// --- Mock segment repository ---

type memSegmentRepo struct {
	segments map[int]*model.Segment
	getErr   error
}

func (m *memSegmentRepo) Create(s *model.Segment) error {
	if m.segments == nil {
		m.segments = map[int]*model.Segment{}
	}
	s.ID = len(m.segments) + 1
	m.segments[s.ID] = s
	return nil
}

func (m *memSegmentRepo) GetByID(id int) (*model.Segment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.segments[id]
	if !ok {
		return nil, appErrors.NewSegmentNotFound(id)
	}
	return s, nil
}

func (m *memSegmentRepo) ListAll() ([]model.Segment, error) {
	out := []model.Segment{}
	for _, s := range m.segments {
		out = append(out, *s)
	}
	return out, nil
}

// --- Mock campaign repository (CAS under a mutex) ---

type memCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
}

func (m *memCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.campaigns == nil {
		m.campaigns = map[int]*model.Campaign{}
	}
	c.ID = len(m.campaigns) + 1
	m.campaigns[c.ID] = c
	return nil
}

func (m *memCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaignRepo) ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	filtered := []*model.Campaign{}
	for _, c := range m.campaigns {
		if channel != "" && string(c.Channel) != channel {
			continue
		}
		if status != "" && string(c.Status) != status {
			continue
		}
		filtered = append(filtered, c)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID > filtered[j].ID })
	total := len(filtered)
	if offset > total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (m *memCampaignRepo) ListDue(now time.Time) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Status == model.CampaignStatusScheduled && c.ScheduledFor != nil && !c.ScheduledFor.After(now) {
			cp := *c
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (m *memCampaignRepo) Schedule(campaignID int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok || c.Status != model.CampaignStatusDraft {
		return false, nil
	}
	c.Status = model.CampaignStatusScheduled
	c.ScheduledFor = &at
	return true, nil
}

func (m *memCampaignRepo) UpdateStatusIf(campaignID int, from, to model.CampaignStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (m *memCampaignRepo) status(id int) model.CampaignStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.campaigns[id].Status
}

// --- Mock message repository ---

type memMessageRepo struct {
	mu     sync.Mutex
	nextID int
	msgs   map[int]*model.Message
}

func (m *memMessageRepo) Create(msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.msgs == nil {
		m.msgs = map[int]*model.Message{}
	}
	m.nextID++
	msg.ID = m.nextID
	cp := *msg
	m.msgs[msg.ID] = &cp
	return nil
}

func (m *memMessageRepo) GetByID(id int) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (m *memMessageRepo) UpdateStatus(id int, status model.MessageStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.msgs[id]
	if !ok {
		return fmt.Errorf("message %d not found", id)
	}
	msg.Status = status
	msg.LastError = lastError
	return nil
}

func (m *memMessageRepo) ListByCampaign(campaignID int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Message{}
	for _, msg := range m.msgs {
		if msg.CampaignID == campaignID {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memMessageRepo) StatsByCampaign(campaignID int) (map[model.MessageStatus]int, error) {
	stats := map[model.MessageStatus]int{
		model.MessageStatusPending:   0,
		model.MessageStatusSent:      0,
		model.MessageStatusDelivered: 0,
		model.MessageStatusFailed:    0,
	}
	msgs, _ := m.ListByCampaign(campaignID)
	for _, msg := range msgs {
		stats[msg.Status]++
	}
	return stats, nil
}

// --- Stub dispatcher ---

type stubDispatcher struct {
	mu      sync.Mutex
	failFor map[int]bool // customer IDs whose dispatch fails
	calls   int
}

func (d *stubDispatcher) Dispatch(ctx context.Context, msg *model.Message, customer *model.Customer) (model.MessageStatus, error) {
	d.mu.Lock()
	d.calls++
	fail := d.failFor[customer.ID]
	d.mu.Unlock()
	if fail {
		return model.MessageStatusFailed, fmt.Errorf("transport rejected recipient")
	}
	return model.MessageStatusDelivered, nil
}

func (d *stubDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func daysAgo(n int) *time.Time {
	t := time.Now().AddDate(0, 0, -n)
	return &t
}
