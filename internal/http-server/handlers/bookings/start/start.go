package start

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"guide-booking/api"
	"guide-booking/internal/http-server/middleware/actor"
	"guide-booking/pkg/response"
)

type SessionStarter interface {
	StartSession(ctx context.Context, actorID, bookingID string) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

func New(log *slog.Logger, starter SessionStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.start.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		booking, err := starter.StartSession(r.Context(), actor.ID(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			response.Fail(w, r, log, err, "failed to start session")
			return
		}

		log.Info("Session started", slog.String("booking_id", booking.ID))

		render.JSON(w, r, Response{
			Response: response.OK("session started"),
			Booking:  booking,
		})
	}
}
