package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaignify/xenocrm-backend/internal/controller"
	appErrors "github.com/campaignify/xenocrm-backend/internal/errors"
	"github.com/campaignify/xenocrm-backend/internal/model"
	"github.com/campaignify/xenocrm-backend/internal/repository"
	"github.com/campaignify/xenocrm-backend/internal/service"
)

// --- Mock repositories ---

type mockCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*model.Customer
	nextID    int
}

func (m *mockCustomerRepo) GetByID(id int) (*model.Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockCustomerRepo) ListAll() ([]model.Customer, error) {
	out := []model.Customer{}
	for _, c := range m.customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCustomerRepo) FindByPredicate(p repository.Predicate) ([]model.Customer, error) {
	return m.ListAll()
}

func (m *mockCustomerRepo) CountByPredicate(p repository.Predicate) (int, error) {
	return len(m.customers), nil
}

func (m *mockCustomerRepo) UpsertByEmail(c *model.Customer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.customers == nil {
		m.customers = map[string]*model.Customer{}
	}
	if existing, ok := m.customers[c.Email]; ok {
		c.ID = existing.ID
		m.customers[c.Email] = c
		return false, nil
	}
	m.nextID++
	c.ID = m.nextID
	m.customers[c.Email] = c
	return true, nil
}

type mockSegmentRepo struct {
	segments map[int]*model.Segment
}

func (m *mockSegmentRepo) Create(s *model.Segment) error {
	s.ID = len(m.segments) + 1
	m.segments[s.ID] = s
	return nil
}

func (m *mockSegmentRepo) GetByID(id int) (*model.Segment, error) {
	if s, ok := m.segments[id]; ok {
		return s, nil
	}
	return nil, appErrors.NewSegmentNotFound(id)
}

func (m *mockSegmentRepo) ListAll() ([]model.Segment, error) { return nil, nil }

type mockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
}

func (m *mockCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = len(m.campaigns) + 1
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (m *mockCampaignRepo) ListCampaigns(offset, limit int, channel, status string) ([]*model.Campaign, int, error) {
	return []*model.Campaign{}, 0, nil
}

func (m *mockCampaignRepo) ListDue(now time.Time) ([]*model.Campaign, error) { return nil, nil }

func (m *mockCampaignRepo) Schedule(campaignID int, at time.Time) (bool, error) {
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

func (m *mockCampaignRepo) UpdateStatusIf(campaignID int, from, to model.CampaignStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

type mockMessageRepo struct {
	mu     sync.Mutex
	nextID int
	msgs   []*model.Message
}

func (m *mockMessageRepo) Create(msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockMessageRepo) GetByID(id int) (*model.Message, error) { return nil, nil }

func (m *mockMessageRepo) UpdateStatus(id int, status model.MessageStatus, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if msg.ID == id {
			msg.Status = status
			msg.LastError = lastError
		}
	}
	return nil
}

func (m *mockMessageRepo) ListByCampaign(campaignID int) ([]model.Message, error) { return nil, nil }

func (m *mockMessageRepo) StatsByCampaign(campaignID int) (map[model.MessageStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[model.MessageStatus]int{}
	for _, msg := range m.msgs {
		if msg.CampaignID == campaignID {
			stats[msg.Status]++
		}
	}
	return stats, nil
}

type okDispatcher struct{}

func (okDispatcher) Dispatch(ctx context.Context, msg *model.Message, customer *model.Customer) (model.MessageStatus, error) {
	return model.MessageStatusDelivered, nil
}

// --- Fixtures ---

type fixture struct {
	campaigns *mockCampaignRepo
	segments  *mockSegmentRepo
	customers *mockCustomerRepo
	messages  *mockMessageRepo
	router    *chi.Mux
}

func newFixture() *fixture {
	f := &fixture{
		campaigns: &mockCampaignRepo{campaigns: map[int]*model.Campaign{}},
		segments:  &mockSegmentRepo{segments: map[int]*model.Segment{}},
		customers: &mockCustomerRepo{customers: map[string]*model.Customer{}},
		messages:  &mockMessageRepo{},
	}

	segmentService := &service.SegmentService{SegmentRepo: f.segments, CustomerRepo: f.customers}
	campaignService := &service.CampaignService{
		CampaignRepo: f.campaigns,
		SegmentRepo:  f.segments,
		CustomerRepo: f.customers,
		MessageRepo:  f.messages,
		Segments:     segmentService,
		Dispatcher:   okDispatcher{},
	}
	statsService := &service.StatsService{
		CampaignRepo: f.campaigns,
		SegmentRepo:  f.segments,
		MessageRepo:  f.messages,
		Segments:     segmentService,
	}

	campaignCtrl := &controller.CampaignController{CampaignService: campaignService, StatsService: statsService}
	segmentCtrl := &controller.SegmentController{SegmentService: segmentService}
	customerCtrl := &controller.CustomerController{CustomerRepo: f.customers}

	r := chi.NewRouter()
	r.Post("/campaigns", campaignCtrl.CreateCampaign)
	r.Get("/campaigns/{id}", campaignCtrl.GetCampaignStats)
	r.Post("/campaigns/{id}/execute", campaignCtrl.ExecuteCampaign)
	r.Post("/campaigns/{id}/personalized-preview", campaignCtrl.PersonalizedPreview)
	r.Post("/segments", segmentCtrl.CreateSegment)
	r.Post("/customers/import", customerCtrl.ImportCustomers)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestPersonalizedPreviewHandler(t *testing.T) {
	f := newFixture()
	f.segments.segments[1] = &model.Segment{ID: 1}
	f.campaigns.campaigns[1] = &model.Campaign{ID: 1, SegmentID: 1}
	f.customers.UpsertByEmail(&model.Customer{Name: "Alice", Email: "alice@example.com"})

	w := f.do(t, "POST", "/campaigns/1/personalized-preview", map[string]interface{}{"customer_id": 1})
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	msg, ok := res["rendered_message"].(string)
	require.True(t, ok, "rendered_message not found or not a string")
	assert.Contains(t, msg, "Alice")
}

func TestExecuteCampaignEndpointConflict(t *testing.T) {
	f := newFixture()
	f.segments.segments[1] = &model.Segment{ID: 1, Rules: json.RawMessage(`{}`)}
	f.campaigns.campaigns[1] = &model.Campaign{ID: 1, SegmentID: 1, Status: model.CampaignStatusDraft}

	w := f.do(t, "POST", "/campaigns/1/execute", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExecuteCampaignEndpointNotFound(t *testing.T) {
	f := newFixture()
	w := f.do(t, "POST", "/campaigns/99/execute", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteCampaignEndpointSuccess(t *testing.T) {
	f := newFixture()
	f.segments.segments[1] = &model.Segment{ID: 1, Rules: json.RawMessage(`{"country": "KE"}`)}
	f.campaigns.campaigns[1] = &model.Campaign{ID: 1, SegmentID: 1, Status: model.CampaignStatusScheduled}
	f.customers.UpsertByEmail(&model.Customer{Name: "Alice", Email: "alice@example.com", Country: "KE"})

	w := f.do(t, "POST", "/campaigns/1/execute", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res service.ExecutionResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, model.CampaignStatusCompleted, res.Status)
	assert.Equal(t, 1, res.Dispatched)
}

func TestCreateSegmentRejectsMalformedRules(t *testing.T) {
	f := newFixture()

	w := f.do(t, "POST", "/segments", map[string]interface{}{
		"name":  "bad",
		"rules": map[string]interface{}{"max_visits": "lots"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "POST", "/segments", map[string]interface{}{
		"name":  "good",
		"rules": map[string]interface{}{"country": "KE"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestGetCampaignStatsEndpoint(t *testing.T) {
	f := newFixture()
	f.segments.segments[1] = &model.Segment{ID: 1, Rules: json.RawMessage(`{"country": "KE"}`)}
	f.campaigns.campaigns[1] = &model.Campaign{ID: 1, SegmentID: 1, Status: model.CampaignStatusCompleted}
	f.messages.Create(&model.Message{CampaignID: 1, CustomerID: 1, Status: model.MessageStatusDelivered})
	f.messages.Create(&model.Message{CampaignID: 1, CustomerID: 2, Status: model.MessageStatusFailed})

	w := f.do(t, "GET", "/campaigns/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats service.CampaignStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Total)
}

func TestImportCustomersEndpoint(t *testing.T) {
	f := newFixture()
	f.customers.UpsertByEmail(&model.Customer{Name: "Old Name", Email: "brian@example.com"})

	csvData := strings.Join([]string{
		"name,email,phone,country,total_spent,last_purchase_date",
		"Alice,alice@example.com,+254700000001,KE,620.00,2026-07-20",
		"Brian,brian@example.com,,KE,410.50,",
		"NoEmail,,,KE,,",
	}, "\n")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "customers.csv")
	require.NoError(t, err)
	fmt.Fprint(fw, csvData)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/customers/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Results struct {
			Created int      `json:"created"`
			Updated int      `json:"updated"`
			Failed  int      `json:"failed"`
			Errors  []string `json:"errors"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 1, res.Results.Created)
	assert.Equal(t, 1, res.Results.Updated)
	assert.Equal(t, 1, res.Results.Failed)
	require.Len(t, res.Results.Errors, 1)
	assert.Contains(t, res.Results.Errors[0], "email is required")
}
