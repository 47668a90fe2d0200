package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"guide-booking/api"
	"guide-booking/pkg/response"
)

type AvailabilityGetter interface {
	GetAvailability(ctx context.Context, guideID string) (*api.AvailabilityResponse, error)
}

type Response struct {
	response.Response
	Availability *api.AvailabilityResponse `json:"availability,omitempty"`
}

func New(log *slog.Logger, getter AvailabilityGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		guideID := chi.URLParam(r, "guideID")

		avail, err := getter.GetAvailability(r.Context(), guideID)
		if err != nil {
			response.Fail(w, r, log, err, "failed to get availability")
			return
		}

		render.JSON(w, r, Response{
			Response:     response.OK(""),
			Availability: avail,
		})
	}
}
