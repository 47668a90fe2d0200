package confirm

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

type BookingConfirmer interface {
	ConfirmBooking(ctx context.Context, actorID, bookingID string, req *api.BookingConfirmRequest) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

func New(log *slog.Logger, confirmer BookingConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.confirm.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		// the body is optional; it only carries a manual meeting link
		var req api.BookingConfirmRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(w, r, log, err)
			return
		}

		booking, err := confirmer.ConfirmBooking(r.Context(), actor.ID(r.Context()), id, &req)
		if err != nil {
			response.Fail(w, r, log, err, "failed to confirm booking")
			return
		}

		log.Info("Booking confirmed", slog.String("booking_id", booking.ID))

		render.JSON(w, r, Response{
			Response: response.OK("booking confirmed"),
			Booking:  booking,
		})
	}
}
