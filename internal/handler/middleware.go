package handler

import (
	"net/http"
	"strings"

	"github.com/pavelanni/examreport/internal/model"
)

// UserHeader carries the caller's identity. Access control is left to the
// deployment in front of this service.
const UserHeader = "X-User-ID"

func identifyUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			id = model.DefaultUserID
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithUserID(r.Context(), id)))
	})
}
