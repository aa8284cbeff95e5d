package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"
	"github.com/AlexZinkM/joint-wallet/internal/model"

	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

var errEmptyBody = apperr.ErrInvalidInput.New("request body is empty")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its taxonomy status. The message is passed
// through unchanged so upstream text reaches the caller intact.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: apperr.CodeName(err)})
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return apperr.ErrInvalidInput.Newf("invalid request body: %v", err)
	}
	return nil
}
