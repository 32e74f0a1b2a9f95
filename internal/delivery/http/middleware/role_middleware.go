package middleware

import (
	"net/http"

	"clinic-portal/internal/service"
	"clinic-portal/pkg/response"
)

// RequireRole lets a request through when allowed reports true for the resolved
// session. Privileges come from the resolution, which withholds them from
// degraded sessions, so an unverified caller is always refused.
func RequireRole(allowed func(res service.Resolution) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := GetResolution(r.Context())
			if !ok || res.Profile == nil {
				response.Unauthorized(w, "Authentication required")
				return
			}

			if !allowed(res) {
				if res.State == service.SessionDegraded || res.State == service.SessionFailed {
					response.ServiceUnavailable(w, "Your permissions could not be verified, please try again")
					return
				}
				response.Forbidden(w, "You don't have permission to access this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a convenience middleware for admin-only endpoints
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(func(res service.Resolution) bool {
		return res.IsAdmin
	})(next)
}

// RequireAdminOrDoctor guards the staff area
func RequireAdminOrDoctor(next http.Handler) http.Handler {
	return RequireRole(func(res service.Resolution) bool {
		return res.IsAdmin || res.IsDoctor
	})(next)
}
