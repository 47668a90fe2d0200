package reschedule

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

type BookingRescheduler interface {
	RescheduleBooking(ctx context.Context, actorID, bookingID string, req *api.BookingRescheduleRequest) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

func New(log *slog.Logger, rescheduler BookingRescheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.reschedule.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.BookingRescheduleRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, log, err)
			return
		}

		booking, err := rescheduler.RescheduleBooking(r.Context(), actor.ID(r.Context()), id, &req)
		if err != nil {
			response.Fail(w, r, log, err, "failed to reschedule booking")
			return
		}

		log.Info("Booking rescheduled",
			slog.String("booking_id", booking.ID),
			slog.Time("new_date", booking.DateAndTime),
		)

		render.JSON(w, r, Response{
			Response: response.OK("booking rescheduled"),
			Booking:  booking,
		})
	}
}
