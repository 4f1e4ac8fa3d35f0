package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pavelanni/examreport/internal/ingest"
	"github.com/pavelanni/examreport/internal/llm"
	"github.com/pavelanni/examreport/internal/service"
	"github.com/pavelanni/examreport/internal/stats"
	"github.com/pavelanni/examreport/internal/store"
)

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	var (
		pairing *ingest.PairingEmptyError
		parse   *ingest.ParseError
		column  *stats.MissingColumnError
		persist *store.PersistenceError
		aiSvc   *llm.ServiceError
		aiFmt   *llm.ResponseFormatError
	)
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrStudentNotFound):
		return http.StatusNotFound
	case errors.As(err, &pairing), errors.As(err, &parse), errors.As(err, &column):
		return http.StatusBadRequest
	case errors.As(err, &persist):
		return http.StatusServiceUnavailable
	case errors.As(err, &aiSvc), errors.As(err, &aiFmt):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceErr(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeErr(w, status, err.Error())
}
