package respond

import (
	"encoding/json"
	"net/http"
)

type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// Data - успешный ответ {success:true, data}.
func Data(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	JSON(w, r, code, Envelope{Success: true, Data: data})
}

// Message - успешный ответ без данных {success:true, message}.
func Message(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, Envelope{Success: true, Message: message})
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, Envelope{Success: false, Message: message})
}
