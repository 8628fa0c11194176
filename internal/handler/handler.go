package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Developerodin/StepsStamp-backend-v2/internal/models"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/repository"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/scheduler"
	"github.com/Developerodin/StepsStamp-backend-v2/internal/service"
	"github.com/Developerodin/StepsStamp-backend-v2/pkg/errors"
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps the error taxonomy to HTTP codes. Anything outside
// the taxonomy is a 500.
func statusFor(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrValidation):
		return http.StatusBadRequest
	case errors.HasCode(err, errors.ErrNotFound), errors.HasCode(err, errors.ErrConfigNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func pathPart(r *http.Request, index int) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if index >= len(parts) {
		return ""
	}
	return parts[index]
}

type FitnessHandler struct {
	fitness *service.FitnessService
}

func NewFitnessHandler(fitness *service.FitnessService) *FitnessHandler {
	return &FitnessHandler{fitness: fitness}
}

func (h *FitnessHandler) UpdateSteps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID       string `json:"userId"`
		WalkingSteps int64  `json:"walkingSteps"`
		RewardSteps  int64  `json:"rewardSteps"`
		Source       string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.fitness.ReportSteps(r.Context(), req.UserID, req.WalkingSteps, req.RewardSteps, req.Source); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "steps updated successfully"})
}

func (h *FitnessHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	records, err := h.fitness.GetRange(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": records})
}

// GetStats serves /api/steps/stats/{user_id}.
func (h *FitnessHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := pathPart(r, 3)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/steps/stats/{user_id}")
		return
	}

	stats, err := h.fitness.StepStats(r.Context(), userID, time.Now().UTC())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetWeeklyGoal serves /api/steps/weekly/{user_id}.
func (h *FitnessHandler) GetWeeklyGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := pathPart(r, 3)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/steps/weekly/{user_id}")
		return
	}

	status, err := h.fitness.WeeklyGoalStatus(r.Context(), userID, time.Now().UTC())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId":           userID,
		"weeklyGoalStatus": status,
	})
}

type PoolHandler struct {
	pools *service.PoolService
}

func NewPoolHandler(pools *service.PoolService) *PoolHandler {
	return &PoolHandler{pools: pools}
}

func (h *PoolHandler) join(w http.ResponseWriter, r *http.Request, poolType models.PoolType) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.pools.TryAdmit(r.Context(), req.UserID, poolType)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !result.Admitted {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *PoolHandler) JoinPoolA(w http.ResponseWriter, r *http.Request) {
	h.join(w, r, models.PoolA)
}

func (h *PoolHandler) JoinPoolB(w http.ResponseWriter, r *http.Request) {
	h.join(w, r, models.PoolB)
}

func (h *PoolHandler) GetActivePools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	status, err := h.pools.ActivePools(r.Context(), userID, time.Now().UTC())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type LedgerHandler struct {
	ledger *service.LedgerService
}

func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// GetByUser serves /api/transactions/{user_id}?type=pool_A_reward.
func (h *LedgerHandler) GetByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := pathPart(r, 2)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid path format, expected /api/transactions/{user_id}")
		return
	}

	var types []models.TransactionType
	if t := r.URL.Query().Get("type"); t != "" {
		types = append(types, models.TransactionType(t))
	}

	records, err := h.ledger.QueryByUser(r.Context(), userID, types...)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": records})
}

func (h *LedgerHandler) GetLastNDaysRewards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserID string `json:"userId"`
		Days   string `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	days, err := strconv.Atoi(req.Days)
	if err != nil || days <= 0 {
		writeError(w, http.StatusBadRequest, "invalid number of days")
		return
	}

	rewards, err := h.ledger.LastNDaysRewards(r.Context(), req.UserID, days, time.Now().UTC())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId":      req.UserID,
		"days":        days,
		"rewardsData": rewards,
	})
}

type MiningHandler struct {
	mining *repository.MiningRepository
}

func NewMiningHandler(mining *repository.MiningRepository) *MiningHandler {
	return &MiningHandler{mining: mining}
}

func (h *MiningHandler) Status(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status, err := h.mining.Get(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": status})

	case http.MethodPut, http.MethodPost:
		var req struct {
			FreeMining       bool `json:"freeMining"`
			BlockchainMining bool `json:"blockchainMining"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		status, err := h.mining.Set(r.Context(), req.FreeMining, req.BlockchainMining)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": status})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type DistributionHandler struct {
	scheduler *scheduler.DistributionScheduler
}

func NewDistributionHandler(s *scheduler.DistributionScheduler) *DistributionHandler {
	return &DistributionHandler{scheduler: s}
}

// Trigger kicks off a full distribution run in the background. The
// pipeline has no synchronous caller; operators watch the logs.
func (h *DistributionHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	go func() {
		// Detached from the request context; the run outlives the
		// HTTP response.
		if err := h.scheduler.DistributeAllTiers(context.Background(), time.Now().UTC()); err != nil {
			// Already logged inside the pipeline.
			_ = err
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "distribution triggered"})
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
