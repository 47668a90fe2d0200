package rate

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

type BookingRater interface {
	RateBooking(ctx context.Context, actorID, bookingID string, req *api.BookingRateRequest) (*api.RatingResponse, error)
}

type Response struct {
	response.Response
	*api.RatingResponse
}

func New(log *slog.Logger, rater BookingRater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.rate.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.BookingRateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, log, err)
			return
		}

		rated, err := rater.RateBooking(r.Context(), actor.ID(r.Context()), id, &req)
		if err != nil {
			response.Fail(w, r, log, err, "failed to rate booking")
			return
		}

		render.JSON(w, r, Response{
			Response:       response.OK("rating saved"),
			RatingResponse: rated,
		})
	}
}
