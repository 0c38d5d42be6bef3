package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

// writeError emits a minimal machine-checkable error body.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeInternal logs the full error server-side and answers with a short
// generic message only.
func writeInternal(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "Internal server error",
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return eris.Wrap(err, "decode request body")
	}
	return nil
}

// validLeadIDs checks that every id is a UUID, returning the offending id
// otherwise.
func validLeadIDs(ids []string) (string, bool) {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return id, false
		}
	}
	return "", true
}
