package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nqtuan-dev/vietshop-backend/api/responses"
	pkgauth "github.com/nqtuan-dev/vietshop-backend/pkg/auth"
	"github.com/nqtuan-dev/vietshop-backend/pkg/config"
	pkgerrors "github.com/nqtuan-dev/vietshop-backend/pkg/errors"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
)

const guestTokenHeader = "X-Guest-Token"

// Auth validates a bearer token and seeds the request context with the
// buyer id and, for sellers, the shop id.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			ctx, err := contextWithClaims(r.Context(), cfg, logg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth accepts either a bearer token or a guest cart token.
// Cart endpoints serve both audiences; everything else uses Auth.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				ctx, err := contextWithClaims(r.Context(), cfg, logg, token)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			guestToken := strings.TrimSpace(r.Header.Get(guestTokenHeader))
			if guestToken == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials or guest token"))
				return
			}
			ctx := context.WithValue(r.Context(), ctxGuestToken, guestToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireShop rejects callers without a seller shop claim.
func RequireShop(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ShopIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "seller shop context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func contextWithClaims(ctx context.Context, cfg config.JWTConfig, logg *logger.Logger, token string) (context.Context, error) {
	claims, err := pkgauth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	ctx = WithUserID(ctx, claims.UserID.String())
	fields := map[string]any{"user_id": claims.UserID.String()}
	if claims.ShopID != nil {
		ctx = WithShopID(ctx, claims.ShopID.String())
		fields["shop_id"] = claims.ShopID.String()
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, fields)
	}
	return ctx, nil
}
