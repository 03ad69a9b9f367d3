package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ahmadqo/event-certificate-service/internal/model"
	"github.com/ahmadqo/event-certificate-service/internal/response"
	"github.com/ahmadqo/event-certificate-service/internal/utils"
)

type claimsKey struct{}

// Authenticate memvalidasi bearer token yang diterbitkan layanan auth platform.
// Service ini tidak pernah menerbitkan token sendiri.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Token tidak ditemukan")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				response.Unauthorized(w, "Format token tidak valid, gunakan: Bearer <token>")
				return
			}

			claims, err := utils.ValidateToken(strings.TrimSpace(token), jwtSecret)
			if err != nil {
				log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Token rejected")
				response.Unauthorized(w, "Token tidak valid atau sudah expired")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, *claims)
			// log di handler dan service ikut membawa actor
			actorLogger := log.Ctx(ctx).With().Str("actor_id", claims.UserID).Str("actor_role", claims.Role).Logger()
			ctx = actorLogger.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole memastikan user memiliki salah satu dari role yang diizinkan
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Role == "" {
				response.Unauthorized(w, "Role tidak ditemukan dalam token")
				return
			}

			for _, role := range roles {
				if strings.EqualFold(claims.Role, string(role)) {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "Anda tidak memiliki akses ke resource ini")
		})
	}
}

func ClaimsFromContext(ctx context.Context) (model.JWTClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(model.JWTClaims)
	return claims, ok
}

// GetUserIDFromContext user ID actor untuk audit log, kosong untuk request publik
func GetUserIDFromContext(ctx context.Context) string {
	claims, _ := ClaimsFromContext(ctx)
	return claims.UserID
}
