package common

import (
	"encoding/json"
	"net/http"
)

// Envelope is the canonical response shape returned by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success envelope with the provided payload.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// JSONMessage writes a success envelope carrying only a message.
func JSONMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: true, Message: message})
}

// JSONError writes a failure envelope with a machine-readable code.
func JSONError(w http.ResponseWriter, status int, code, message string, data any) {
	write(w, status, Envelope{Success: false, Code: code, Message: message, Data: data})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
