package get

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

type BookingGetter interface {
	GetBooking(ctx context.Context, actorID, bookingID string) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

func New(log *slog.Logger, getter BookingGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		booking, err := getter.GetBooking(r.Context(), actor.ID(r.Context()), id)
		if err != nil {
			response.Fail(w, r, log, err, "failed to get booking")
			return
		}

		render.JSON(w, r, Response{
			Response: response.OK(""),
			Booking:  booking,
		})
	}
}
