package feedback

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

type FeedbackAdder interface {
	AddFeedback(ctx context.Context, actorID, bookingID string, req *api.BookingFeedbackRequest) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

func New(log *slog.Logger, adder FeedbackAdder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.feedback.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.BookingFeedbackRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, log, err)
			return
		}

		booking, err := adder.AddFeedback(r.Context(), actor.ID(r.Context()), id, &req)
		if err != nil {
			response.Fail(w, r, log, err, "failed to save feedback")
			return
		}

		log.Info("Feedback saved", slog.String("booking_id", booking.ID))

		render.JSON(w, r, Response{
			Response: response.OK("feedback saved"),
			Booking:  booking,
		})
	}
}
