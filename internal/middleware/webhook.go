package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/service"
)

// ContextRawBody is the context key under which VerifyWebhook stores the
// exact bytes it authenticated.
const ContextRawBody = "webhook_raw_body"

// VerifyWebhook authenticates storefront webhooks before any handler sees
// them. The body is read once, at most maxBody bytes, and the HMAC is
// computed over exactly those bytes. Requests that fail are answered with
// 401 and never reach the handler; accepted bodies are stored in the
// context and replayed on the request.
func VerifyWebhook(auth *service.Authenticator, maxBody int64, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			var reader io.Reader = req.Body
			if maxBody > 0 {
				reader = io.LimitReader(req.Body, maxBody+1)
			}
			body, err := io.ReadAll(reader)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to read request body"})
			}
			if maxBody > 0 && int64(len(body)) > maxBody {
				return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "request body too large"})
			}

			ok, reason := auth.Verify(body, req.Header.Get(service.SignatureHeader))
			if !ok {
				log.Warn("webhook rejected",
					zap.String("reason", reason),
					zap.String("remote_ip", c.RealIP()),
					zap.String("topic", req.Header.Get(TopicHeader)))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "webhook signature verification failed",
					"details": reason,
				})
			}

			c.Set(ContextRawBody, body)
			req.Body = io.NopCloser(bytes.NewReader(body))
			return next(c)
		}
	}
}

// Delivery metadata headers sent alongside every webhook.
const (
	WebhookIDHeader = "X-Shopify-Webhook-Id"
	TopicHeader     = "X-Shopify-Topic"
)

// RawBody returns the authenticated body stored by VerifyWebhook, or nil.
func RawBody(c echo.Context) []byte {
	b, _ := c.Get(ContextRawBody).([]byte)
	return b
}
