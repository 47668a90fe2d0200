package complete

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"guide-booking/api"
	"guide-booking/internal/http-server/middleware/actor"
	"guide-booking/pkg/response"
)

type BookingCompleter interface {
	CompleteBooking(ctx context.Context, actorID, bookingID string, req *api.BookingCompleteRequest) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

func New(log *slog.Logger, completer BookingCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.complete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.BookingCompleteRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(w, r, log, err)
			return
		}

		booking, err := completer.CompleteBooking(r.Context(), actor.ID(r.Context()), id, &req)
		if err != nil {
			response.Fail(w, r, log, err, "failed to complete booking")
			return
		}

		log.Info("Booking completed",
			slog.String("booking_id", booking.ID),
			slog.Int("achievements", len(booking.Achievements)),
		)

		render.JSON(w, r, Response{
			Response: response.OK("booking completed"),
			Booking:  booking,
		})
	}
}
