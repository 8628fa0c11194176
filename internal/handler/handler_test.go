package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/repository"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/service"
)

type memStepStore struct {
	records map[string]map[time.Time]models.StepRecord
}

func newMemStepStore() *memStepStore {
	return &memStepStore{records: make(map[string]map[time.Time]models.StepRecord)}
}

func (m *memStepStore) Upsert(_ context.Context, record *models.StepRecord) error {
	day := models.DayOf(record.Date)
	if m.records[record.UserID] == nil {
		m.records[record.UserID] = make(map[time.Time]models.StepRecord)
	}
	m.records[record.UserID][day] = *record
	return nil
}

func (m *memStepStore) GetByUserDate(_ context.Context, userID string, date time.Time) (*models.StepRecord, error) {
	r, ok := m.records[userID][models.DayOf(date)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStepStore) GetRange(_ context.Context, userID string, from, to time.Time) ([]models.StepRecord, error) {
	var out []models.StepRecord
	for day := models.DayOf(from); !day.After(models.DayOf(to)); day = day.AddDate(0, 0, 1) {
		if r, ok := m.records[userID][day]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStepStore) GetAllByUser(_ context.Context, userID string) ([]models.StepRecord, error) {
	var out []models.StepRecord
	for _, r := range m.records[userID] {
		out = append(out, r)
	}
	return out, nil
}

type memPoolStore struct {
	entries []models.PoolEntry
}

func (m *memPoolStore) Create(_ context.Context, entry *models.PoolEntry) error {
	for _, e := range m.entries {
		if e.UserID == entry.UserID && e.PoolType == entry.PoolType && e.Date.Equal(entry.Date) {
			return repository.ErrDuplicateEntry
		}
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memPoolStore) GetByUserDate(_ context.Context, userID string, date time.Time) ([]models.PoolEntry, error) {
	var out []models.PoolEntry
	for _, e := range m.entries {
		if e.UserID == userID && e.Date.Equal(models.DayOf(date)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memPoolStore) GetByPoolTier(_ context.Context, _ models.PoolType, _ string, _ time.Time) ([]models.PoolEntry, error) {
	return nil, nil
}

type memDirectory struct {
	byUser map[string]*models.UserWallet
}

func (m *memDirectory) GetByUser(_ context.Context, userID string) (*models.UserWallet, error) {
	return m.byUser[userID], nil
}

func (m *memDirectory) GetByWalletAddress(_ context.Context, _ string) ([]models.UserWallet, error) {
	return nil, nil
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestUpdateSteps(t *testing.T) {
	store := newMemStepStore()
	h := NewFitnessHandler(service.NewFitnessService(store, 1500))

	rec := postJSON(t, h.UpdateSteps, "/api/steps/update",
		`{"userId":"alice","walkingSteps":8000,"rewardSteps":6500,"source":"healthkit"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	saved, err := store.GetByUserDate(context.Background(), "alice", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, int64(6500), saved.RewardSteps)
}

func TestUpdateStepsRejectsBadInput(t *testing.T) {
	h := NewFitnessHandler(service.NewFitnessService(newMemStepStore(), 1500))

	rec := postJSON(t, h.UpdateSteps, "/api/steps/update", `{"walkingSteps":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.UpdateSteps, "/api/steps/update", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/steps/update", nil)
	rec = httptest.NewRecorder()
	h.UpdateSteps(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetStepsRange(t *testing.T) {
	store := newMemStepStore()
	require.NoError(t, store.Upsert(context.Background(), &models.StepRecord{
		UserID:      "alice",
		Date:        time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		RewardSteps: 4000,
	}))
	h := NewFitnessHandler(service.NewFitnessService(store, 1500))

	req := httptest.NewRequest(http.MethodGet,
		"/api/steps/range?user_id=alice&from=2026-08-24&to=2026-08-26", nil)
	rec := httptest.NewRecorder()
	h.GetRange(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []models.StepRecord `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 3)
	assert.Equal(t, int64(0), resp.Items[0].RewardSteps)
	assert.Equal(t, int64(4000), resp.Items[1].RewardSteps)
}

func TestGetStepsRangeMissingParams(t *testing.T) {
	h := NewFitnessHandler(service.NewFitnessService(newMemStepStore(), 1500))

	req := httptest.NewRequest(http.MethodGet, "/api/steps/range?from=2026-08-24&to=2026-08-26", nil)
	rec := httptest.NewRecorder()
	h.GetRange(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/steps/range?user_id=alice&from=bad&to=2026-08-26", nil)
	rec = httptest.NewRecorder()
	h.GetRange(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func poolHandlerFixture(steps *memStepStore) *PoolHandler {
	users := &memDirectory{byUser: map[string]*models.UserWallet{
		"alice": {UserID: "alice", WalletAddress: "0xaaaa", NftAddress: "0x1111111111111111111111111111111111111111"},
	}}
	pools := service.NewPoolService(steps, &memPoolStore{}, users, 1500, 10000)
	return NewPoolHandler(pools)
}

func TestJoinPoolA(t *testing.T) {
	steps := newMemStepStore()
	now := time.Now().UTC()
	require.NoError(t, steps.Upsert(context.Background(), &models.StepRecord{
		UserID: "alice", Date: models.DayOf(now), RewardSteps: 2000,
	}))
	h := poolHandlerFixture(steps)

	rec := postJSON(t, h.JoinPoolA, "/api/pools/a/join", `{"userId":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result service.AdmissionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Admitted)

	// Joining again the same day is reported, not retried.
	rec = postJSON(t, h.JoinPoolA, "/api/pools/a/join", `{"userId":"alice"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Admitted)
	assert.Equal(t, service.ReasonAlreadyAdmitted, result.Reason)
}

func TestJoinPoolBInsufficientSteps(t *testing.T) {
	steps := newMemStepStore()
	now := time.Now().UTC()
	require.NoError(t, steps.Upsert(context.Background(), &models.StepRecord{
		UserID: "alice", Date: models.DayOf(now), RewardSteps: 9999,
	}))
	h := poolHandlerFixture(steps)

	rec := postJSON(t, h.JoinPoolB, "/api/pools/b/join", `{"userId":"alice"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var result service.AdmissionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Admitted)
	assert.Equal(t, service.ReasonInsufficientSteps, result.Reason)
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	HandleHealth(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
