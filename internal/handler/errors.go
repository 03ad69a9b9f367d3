package handler

import (
	"errors"
	"net/http"

	"github.com/ahmadqo/event-certificate-service/internal/response"
	"github.com/ahmadqo/event-certificate-service/internal/service"
	"github.com/rs/zerolog/log"
)

// writeError memetakan jenis error service ke status HTTP
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var fieldErr *service.FieldError
	switch {
	case errors.As(err, &fieldErr):
		response.BadRequest(w, "Validasi gagal", fieldErr.Fields)
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(w, err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, service.ErrExpired):
		response.Gone(w, err.Error())
	case errors.Is(err, service.ErrRevoked), errors.Is(err, service.ErrInvariantViolation):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrRenderEngine):
		logError(r, err, fallback)
		response.Fail(w, http.StatusBadGateway, "RENDER_ENGINE_ERROR", "Engine render gagal, coba lagi nanti")
	default:
		logError(r, err, fallback)
		response.InternalError(w, fallback)
	}
}

func logError(r *http.Request, err error, msg string) {
	log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(msg)
}
