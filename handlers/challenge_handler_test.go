package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateChallengeRejectsUnknownDuration(t *testing.T) {
	h := NewChallengeHandler(nil)

	body := `{
		"creatorId": "10001",
		"taskId": "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		"title": "Morning 10K",
		"startDate": "2025-06-01T00:00:00Z",
		"duration": "Fortnight"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/challenges", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateChallenge(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid duration")
}

func TestCreateChallengeRequiresTitleAndTask(t *testing.T) {
	h := NewChallengeHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/challenges", strings.NewReader(`{"creatorId":"10001"}`))
	rec := httptest.NewRecorder()

	h.CreateChallenge(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}
