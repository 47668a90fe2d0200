package webhook

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"guide-booking/api"
	"guide-booking/pkg/response"
)

const (
	SecretHeader    = "X-Webhook-Secret"
	statusSucceeded = "succeeded"
)

type PaymentHandler interface {
	HandlePaymentConfirmed(ctx context.Context, bookingID, paymentRef string) (*api.BookingResponse, error)
}

type Response struct {
	response.Response
	Booking *api.BookingResponse `json:"booking,omitempty"`
}

// New accepts payment gateway events. Only succeeded payments move the
// booking; other statuses are acknowledged so the gateway stops retrying.
// An empty secret disables the header check.
func New(log *slog.Logger, secret string, handler PaymentHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.payments.webhook.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if secret != "" {
			got := r.Header.Get(SecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.Warn("webhook secret mismatch")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "invalid webhook secret"))
				return
			}
		}

		var req api.PaymentWebhookRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, log, err)
			return
		}

		log = log.With(
			slog.String("booking_id", req.BookingID),
			slog.String("payment_status", req.Status),
		)

		if req.Status != statusSucceeded {
			log.Info("Payment event ignored")
			render.JSON(w, r, response.OK("event ignored"))
			return
		}

		booking, err := handler.HandlePaymentConfirmed(r.Context(), req.BookingID, req.PaymentReference)
		if err != nil {
			response.Fail(w, r, log, err, "failed to apply payment")
			return
		}

		log.Info("Payment applied", slog.String("status", booking.Status))

		render.JSON(w, r, Response{
			Response: response.OK("payment applied"),
			Booking:  booking,
		})
	}
}
