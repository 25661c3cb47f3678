package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/quantfolio/portfolio-server-go/internal/httputil"
	"github.com/quantfolio/portfolio-server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// authPayload is the response body shared by signup and login.
func authPayload(user *model.User, token string) map[string]any {
	return map[string]any{
		"token":      token,
		"user_id":    user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}
}

func userPayload(user *model.User) map[string]any {
	return map[string]any{
		"user_id":    user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}
}

var jsonNull = []byte("null")

// jsonAbsent treats a missing field and an explicit null the same way.
func jsonAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}
