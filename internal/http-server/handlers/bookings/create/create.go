package create

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

type BookingCreator interface {
	CreateBooking(ctx context.Context, actorID string, req *api.BookingRequest) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

func New(log *slog.Logger, creator BookingCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.BookingRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, log, err)
			return
		}

		log.Debug("Request body decoded", slog.Any("request", req))

		booking, err := creator.CreateBooking(r.Context(), actor.ID(r.Context()), &req)
		if err != nil {
			response.Fail(w, r, log, err, "failed to create booking")
			return
		}

		log.Info("Booking created", slog.String("booking_id", booking.ID), slog.String("status", booking.Status))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Response: response.OK("booking created"),
			Booking:  booking,
		})
	}
}
