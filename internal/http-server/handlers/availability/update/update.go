package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"guide-booking/api"
	"guide-booking/internal/http-server/middleware/actor"
	"guide-booking/pkg/response"
)

type AvailabilityUpdater interface {
	UpdateAvailability(ctx context.Context, actorID string, req *api.AvailabilityRequest) (*api.AvailabilityResponse, error)
}

type Response struct {
	response.Response
	Availability *api.AvailabilityResponse `json:"availability,omitempty"`
}

func New(log *slog.Logger, updater AvailabilityUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.AvailabilityRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, log, err)
			return
		}

		avail, err := updater.UpdateAvailability(r.Context(), actor.ID(r.Context()), &req)
		if err != nil {
			response.Fail(w, r, log, err, "failed to update availability")
			return
		}

		log.Info("Availability replaced", slog.String("guide_id", avail.GuideID))

		render.JSON(w, r, Response{
			Response:     response.OK("availability updated"),
			Availability: avail,
		})
	}
}
