// Package handlers adapts HTTP requests to commands and queries.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	pkgerrors "cosmos-backend/pkg/errors"
)

// responder writes JSON bodies and maps errors through the shared handler.
type responder struct {
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

func (rs responder) json(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	rs.errors.Handle(w, r, err)
}

func (rs responder) zip(w http.ResponseWriter, fileName string, blob []byte) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		rs.logger.Warn("Failed to write archive", zap.String("file", fileName), zap.Error(err))
	}
}

// decodeJSON reads a request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.NewValidationError("request body too large").WithDetail("limit_bytes", tooLarge.Limit)
		}
		return pkgerrors.NewValidationError("invalid request body").WithCause(err)
	}
}

// optionalInt parses an integer query parameter. A missing parameter is nil.
func optionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, pkgerrors.NewValidationError(name + " must be an integer").WithDetail(name, raw)
	}
	return &v, nil
}
