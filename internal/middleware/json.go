package middleware

import (
	"encoding/json"
	"net/http"
)

type detailBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func jsonEncode(w http.ResponseWriter, value any) error {
	return json.NewEncoder(w).Encode(value)
}

func writeDetail(w http.ResponseWriter, status int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, detailBody{Detail: detail, Code: code})
}
