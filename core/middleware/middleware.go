package middleware

import (
	"clinic-api/core/cache"
	"clinic-api/core/constants"
	"clinic-api/core/errors"
	"clinic-api/core/logger"
	"clinic-api/core/utils"

	"github.com/labstack/echo/v4"
)

const ContextKeyUserID = "user_id"

type Middleware struct {
	cache cache.Cache
}

func NewMiddleware(cache cache.Cache) *Middleware {
	return &Middleware{cache: cache}
}

// AuthMiddleware verifies the application bearer token before any handler
// logic runs. Calendar connection state plays no part here.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := utils.GetTokenFromHeader(c)
			if err != nil {
				return echo.NewHTTPError(401, errors.NewAppError(errors.ErrMissingAuthorizationHeader, "missing or malformed authorization header", nil).Message)
			}

			if m.cache != nil {
				blacklisted, errCheck := m.cache.IsTokenBlacklisted(c.Request().Context(), token)
				if errCheck != nil {
					logger.Error("Middleware:AuthMiddleware:IsTokenBlacklisted:Error:", errCheck)
					return echo.NewHTTPError(500, "failed to verify token")
				}
				if blacklisted {
					return echo.NewHTTPError(401, "token is blacklisted")
				}
			}

			tokenData, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return echo.NewHTTPError(401, "invalid token")
			}

			if tokenData.Scope != constants.ScopeTokenAccess {
				return echo.NewHTTPError(401, "invalid token scope")
			}

			c.Set(ContextKeyUserID, tokenData.UserID)
			return next(c)
		}
	}
}
