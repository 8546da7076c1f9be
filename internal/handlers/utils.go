package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON error payload. Code is a stable machine-readable
// error class; clients switch on it, not on the message.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeInvalidRequest           = "invalid_request"
	codeBatchTooLarge            = "batch_too_large"
	codeUnsupportedImageType     = "unsupported_image_type"
	codeImageTypeMismatch        = "image_type_mismatch"
	codeNotFound                 = "not_found"
	codeSignedUploadsUnsupported = "signed_uploads_unsupported"
	codeInternal                 = "internal"
)

// Healthz is a trivial liveness endpoint.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
