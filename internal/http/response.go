package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"budgetmanager/internal/core"
	"budgetmanager/internal/log"
	"budgetmanager/internal/services"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// unprocessable lists domain errors reported as 422.
var unprocessable = []error{
	core.ErrInvalidDate,
	core.ErrInvalidMonthSpec,
	core.ErrInvalidAmount,
	core.ErrEmptyLabel,
	core.ErrLabelTooLong,
	core.ErrMissingStartDate,
	core.ErrEndBeforeStart,
	core.ErrMissingRecurrence,
	core.ErrPaymentMethodLong,
	core.ErrEmptyName,
	core.ErrMissingSubcat,
	core.ErrInvalidFrequency,
	core.ErrMissingDayOfMonth,
	core.ErrMissingDayOfWeek,
	core.ErrMissingMonthOfYear,
	core.ErrInvalidDayOfMonth,
	core.ErrInvalidDayOfWeek,
	core.ErrInvalidMonthOfYear,
	services.ErrUnknownSubcat,
	services.ErrUnknownTemplateID,
	services.ErrSubcatNotInBudget,
	services.ErrDateOutsideMonth,
	services.ErrNoDefaultTemplate,
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrBudgetExists):
		return http.StatusConflict
	}
	for _, target := range unprocessable {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respond(w, r, status, errorResponse{Error: msg})
}

// respondServiceError maps err to a status and logs it. Internal errors are
// not echoed to the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)

	level := slog.LevelWarn
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		level = slog.LevelError
		msg = "internal server error"
	case http.StatusNotFound:
		level = slog.LevelDebug
		msg = "not found"
	case http.StatusForbidden:
		msg = "forbidden"
	}

	fields := log.NewFields().WithOperation(op).WithError(err)
	log.FromContext(r.Context()).Log(r.Context(), level, "Request failed", fields.ToSlice()...)
	respondError(w, r, status, msg)
}

// decode reads a JSON body into v and validates it. It writes the error
// response and returns false when the body is unusable.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), v); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respond(w, r, http.StatusUnprocessableEntity, validationResponse(verrs))
			return false
		}
		respondError(w, r, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func validationResponse(verrs validator.ValidationErrors) errorResponse {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if _, rest, ok := strings.Cut(name, "."); ok {
			name = rest
		}
		fields[name] = fieldMessage(fe)
	}
	return errorResponse{Error: "validation failed", Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must be a date formatted as " + fe.Param()
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// idParam parses a positive integer URL parameter, writing 400 otherwise.
func idParam(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return id, true
}
