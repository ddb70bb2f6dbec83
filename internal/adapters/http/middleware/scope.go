package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/request-scope-service/internal/app"
	"github.com/jsamuelsen/request-scope-service/internal/platform/config"
	"github.com/jsamuelsen/request-scope-service/internal/scope"
)

// HeaderScopeID is the response header carrying the id of the request's
// unit of work.
const HeaderScopeID = "X-Scope-ID"

// Scope returns middleware that runs the rest of the chain as one unit of
// work. The user and session ids are read from the configured headers;
// blank headers count as absent. Everything bound during the request is
// released before this middleware returns, including when a later handler
// panics, so the connection's goroutine starts the next request clean.
func Scope(cfg *config.ScopeConfig, dispatcher *app.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		attrs := app.Attributes{
			UserID:    strings.TrimSpace(c.GetHeader(cfg.UserHeader)),
			SessionID: strings.TrimSpace(c.GetHeader(cfg.SessionHeader)),
		}

		err := dispatcher.Dispatch(c.Request.Context(), attrs, func(ctx context.Context) error {
			c.Header(HeaderScopeID, scope.IDFromContext(ctx))
			c.Request = c.Request.WithContext(ctx)
			c.Next()

			return nil
		})
		if err != nil {
			// the unit of work could not be opened, so the chain never ran
			dto.HandleError(c, err)
			c.Abort()
		}
	}
}
