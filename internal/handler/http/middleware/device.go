package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
	"github.com/google/uuid"
)

const (
	DeviceIDHeader = "X-Device-ID"
	DeviceIDCookie = "device_id"
)

type deviceIDKey struct{}

// DeviceIDFromContext returns the terminal identity resolved by DeviceIdentity.
func DeviceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDKey{}).(string)
	return id
}

// DeviceIdentity resolves the terminal's device ID from the X-Device-ID header or the
// device_id cookie, issuing a new cookie when neither is present.
func DeviceIdentity(secureCookie bool, cookieMaxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := r.Header.Get(DeviceIDHeader)
			if deviceID == "" {
				if cookie, err := r.Cookie(DeviceIDCookie); err == nil {
					deviceID = cookie.Value
				}
			}

			if deviceID != "" && !validator.IsValidDeviceID(deviceID) {
				response.ValidationError(w, map[string]string{"device_id": "device_id is malformed"})
				return
			}

			if deviceID == "" {
				id, err := uuid.NewV7()
				if err != nil {
					slog.Error("Failed to generate device id", "error", err)
					response.InternalServerError(w, "An unexpected error occurred")
					return
				}
				deviceID = id.String()

				http.SetCookie(w, &http.Cookie{
					Name:     DeviceIDCookie,
					Value:    deviceID,
					Path:     "/",
					MaxAge:   int(cookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
				slog.Info("Issued device id", "device_id", deviceID)
			}

			ctx := context.WithValue(r.Context(), deviceIDKey{}, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
