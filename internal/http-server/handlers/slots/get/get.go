package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"guide-booking/internal/models"
	"guide-booking/pkg/response"
)

type SlotGetter interface {
	GetAvailableSlots(ctx context.Context, guideID, durationRaw string) ([]models.DaySlots, error)
}

type Response struct {
	response.Response
	GuideID string            `json:"guide_id"`
	Days    []models.DaySlots `json:"days"`
}

func New(log *slog.Logger, getter SlotGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		guideID := chi.URLParam(r, "guideID")
		duration := r.URL.Query().Get("duration")

		days, err := getter.GetAvailableSlots(r.Context(), guideID, duration)
		if err != nil {
			response.Fail(w, r, log, err, "failed to get slots")
			return
		}

		log.Debug("Slots generated", slog.String("guide_id", guideID), slog.Int("days", len(days)))

		render.JSON(w, r, Response{
			Response: response.OK(""),
			GuideID:  guideID,
			Days:     days,
		})
	}
}
