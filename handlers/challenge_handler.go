package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/duration"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/challenge"
	"github.com/kakunuriMahesh/activity-tracker-backend/middleware"
	"github.com/kakunuriMahesh/activity-tracker-backend/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

func challengeID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["challengeId"])
	return id, err == nil
}

func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req challenge.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CreatorID == "" {
		if userID, ok := middleware.GetUserID(ctx); ok {
			req.CreatorID = userID
		}
	}
	if req.Title == "" || req.TaskID == uuid.Nil {
		respondWithError(w, http.StatusBadRequest, "title and taskId are required")
		return
	}
	if !duration.IsValid(req.Duration) {
		respondWithError(w, http.StatusBadRequest, "invalid duration")
		return
	}

	c, err := h.challengeService.CreateChallenge(ctx, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

// AssignChallenge replaces the assignee list and notifies the assignees.
func (h *ChallengeHandler) AssignChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := challengeID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	var req challenge.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.challengeService.AssignChallenge(ctx, id, req.AssigneeIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	detail, err := h.challengeService.GetChallenge(ctx, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *ChallengeHandler) RespondToChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	var req challenge.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		if userID, ok := middleware.GetUserID(ctx); ok {
			req.UserID = userID
		}
	}

	c, err := h.challengeService.RespondToChallenge(ctx, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) LogProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	var req challenge.ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		if userID, ok := middleware.GetUserID(ctx); ok {
			req.UserID = userID
		}
	}
	if req.Date.IsZero() {
		req.Date = time.Now().UTC()
	}

	c, err := h.challengeService.LogChallengeProgress(ctx, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) EditChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	var req challenge.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		if userID, ok := middleware.GetUserID(ctx); ok {
			req.UserID = userID
		}
	}

	c, err := h.challengeService.EditChallenge(ctx, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, ok := challengeID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge id")
		return
	}

	var req challenge.DeleteRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.UserID == "" {
		if userID, ok := middleware.GetUserID(ctx); ok {
			req.UserID = userID
		}
	}

	if err := h.challengeService.DeleteChallenge(ctx, id, req.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge deleted"})
}
