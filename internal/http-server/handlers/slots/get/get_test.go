package get

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guide-booking/internal/models"
	"guide-booking/pkg/response"
)

type fakeGetter struct {
	guideID, duration string
	days              []models.DaySlots
	err               error
}

func (f *fakeGetter) GetAvailableSlots(_ context.Context, guideID, durationRaw string) ([]models.DaySlots, error) {
	f.guideID, f.duration = guideID, durationRaw
	return f.days, f.err
}

func do(getter SlotGetter, target string) *httptest.ResponseRecorder {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	router.Get("/guides/{guideID}/slots", New(log, getter))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestGetSlots(t *testing.T) {
	start := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	getter := &fakeGetter{days: []models.DaySlots{{
		Date:  "2026-10-12",
		Slots: []models.Slot{{StartTime: "09:00", EndTime: "09:30", StartsAt: start}},
	}}}

	rr := do(getter, "/guides/guide-1/slots?duration=30")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "guide-1", getter.guideID)
	assert.Equal(t, "30", getter.duration)

	var body Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Days, 1)
	assert.Equal(t, "09:00", body.Days[0].Slots[0].StartTime)
}

func TestGetSlotsEmptyIsArray(t *testing.T) {
	rr := do(&fakeGetter{days: []models.DaySlots{}}, "/guides/guide-9/slots?duration=30")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"days":[]`)
}

func TestGetSlotsInvalidDuration(t *testing.T) {
	rr := do(&fakeGetter{err: response.Detail(response.ErrValidation, "duration must be a positive number of minutes")}, "/guides/guide-1/slots?duration=abc")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), string(response.VALIDATION))
}
