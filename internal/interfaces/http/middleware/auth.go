package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/auth"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// ContextKeyClaims is the gin key holding the verified *auth.Claims.
const ContextKeyClaims = "auth_claims"

// Auth requires a valid bearer token, and requiredRole when non-empty.
// Failures answer 401 (or 403 for a missing role) without reaching the
// handler.  The claims are stored in the gin and request contexts.
func Auth(verifier auth.Verifier, requiredRole string, logger logging.Logger) gin.HandlerFunc {
	logger = logger.Named("http.auth")
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *auth.Claims
			claims, err = verifier.VerifyToken(c.Request.Context(), token)
			if err == nil && requiredRole != "" && !claims.HasRole(requiredRole) {
				err = auth.ErrMissingRole
			}
			if err == nil {
				c.Set(ContextKeyClaims, claims)
				c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
				c.Next()
				return
			}
		}

		logger.Warn("authentication failed",
			logging.String("path", c.Request.URL.Path),
			logging.String("ip", c.ClientIP()),
			logging.String(logging.FieldRequestID, GetRequestID(c)),
			logging.Err(err))

		var ae *errors.AppError
		if !stderrors.As(err, &ae) {
			ae = errors.Wrap(err, errors.ErrCodeUnauthorized, errors.DefaultMessageForCode(errors.ErrCodeUnauthorized))
		}
		if ae.HTTPStatus() == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", `Bearer realm="medrec"`)
		}
		abortWithError(c, ae)
	}
}

// ClaimsFromGin returns the claims stored by Auth.
func ClaimsFromGin(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

//Personal.AI order the ending
