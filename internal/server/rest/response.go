package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophtasks/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors to HTTP. Only validation errors expose
// their message; everything unexpected becomes a generic 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
		errorJSON(w, http.StatusBadRequest, msg)
	case errors.Is(err, common.ErrorUnauthorized):
		errorJSON(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		errorJSON(w, http.StatusNotFound, "Not found")
	default:
		errorJSON(w, http.StatusInternalServerError, "Internal server error")
	}
}
