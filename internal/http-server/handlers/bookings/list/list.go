package list

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

type BookingLister interface {
	ListBookings(ctx context.Context, actorID string) (*api.BookingListResponse, error)
}

type Response struct {
	response.Response
	*api.BookingListResponse
}

func New(log *slog.Logger, lister BookingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		bookings, err := lister.ListBookings(r.Context(), actor.ID(r.Context()))
		if err != nil {
			response.Fail(w, r, log, err, "failed to list bookings")
			return
		}

		log.Info("Bookings listed",
			slog.Int("upcoming", len(bookings.Upcoming)),
			slog.Int("past", len(bookings.Past)),
			slog.Int("cancelled", len(bookings.Cancelled)),
		)

		render.JSON(w, r, Response{
			Response:            response.OK(""),
			BookingListResponse: bookings,
		})
	}
}
