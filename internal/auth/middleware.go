package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const AddressKey contextKey = "address"

type SessionMiddleware struct {
	sessions *SessionManager
}

func NewSessionMiddleware(sessions *SessionManager) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
	}
}

// RequireSession rejects requests without a valid bearer session token and
// stashes the authenticated wallet address in the request context.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w)
			return
		}

		tokenString := m.sessions.ExtractTokenFromBearer(authHeader)
		if tokenString == "" {
			writeAuthError(w)
			return
		}

		claims, err := m.sessions.VerifyToken(tokenString)
		if err != nil {
			writeAuthError(w)
			return
		}

		ctx := context.WithValue(r.Context(), AddressKey, claims.Address)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAddressFromContext returns the authenticated wallet address, if any.
func GetAddressFromContext(ctx context.Context) (string, bool) {
	address, ok := ctx.Value(AddressKey).(string)
	return address, ok
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": "UNAUTHORIZED", "message": "missing or invalid session token"},
	})
}
