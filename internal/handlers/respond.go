package handlers

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSONResponse writes data as a JSON body with the given status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a stable machine-readable error code. Bodies
// never carry card values, salts or internal details.
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSONResponse(w, statusCode, map[string]errorBody{
		"error": {Code: code, Message: message},
	})
}
