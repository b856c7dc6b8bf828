package handler // package handler contains the HTTP handlers of the API

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/service"
)

// writeError renders err as {"error": message}. Core errors carry their own
// status and caller-safe message; anything else is logged and reported as a
// bare 500 so internal details never reach the client.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		status := se.Kind.HTTPStatus()
		if status >= http.StatusInternalServerError && log != nil {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.JSON(status, echo.Map{"error": se.Message})
	}
	if log != nil {
		log.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// RequestValidator adapts go-playground/validator to echo.Validator so
// handlers can call c.Validate on bound request bodies.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator returns a validator reporting fields by their JSON
// names.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator. Failures come back as a validation
// error naming the offending fields.
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return service.ValidationError("invalid request body")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return service.ValidationError("invalid field(s): %s", strings.Join(fields, ", "))
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
