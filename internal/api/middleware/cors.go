package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// CORSPolicy is the single cross-origin policy of the API. The CORS
// middleware and the failure responders both read it, so denied responses
// carry the same headers as successful ones.
type CORSPolicy struct {
	origins       map[string]struct{}
	allowMethods  []string
	allowHeaders  []string
	exposeHeaders []string
	maxAge        int
}

func NewCORSPolicy(origins []string) *CORSPolicy {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || o == "*" {
			continue
		}
		allowed[o] = struct{}{}
	}
	return &CORSPolicy{
		origins: allowed,
		allowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions, http.MethodPatch,
		},
		allowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestedWith},
		exposeHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		maxAge:        3600,
	}
}

// Allowed reports whether origin is on the allow-list.
func (p *CORSPolicy) Allowed(origin string) bool {
	_, ok := p.origins[origin]
	return ok
}

// Apply writes the CORS headers for origin onto h. Disallowed origins only
// get Vary: Origin.
func (p *CORSPolicy) Apply(h http.Header, origin string) {
	if !hasToken(h.Values(echo.HeaderVary), echo.HeaderOrigin) {
		h.Add(echo.HeaderVary, echo.HeaderOrigin)
	}
	if !p.Allowed(origin) {
		return
	}
	h.Set(echo.HeaderAccessControlAllowOrigin, origin)
	h.Set(echo.HeaderAccessControlAllowCredentials, "true")
	h.Set(echo.HeaderAccessControlAllowMethods, strings.Join(p.allowMethods, ", "))
	h.Set(echo.HeaderAccessControlAllowHeaders, strings.Join(p.allowHeaders, ", "))
	h.Set(echo.HeaderAccessControlExposeHeaders, strings.Join(p.exposeHeaders, ", "))
}

// CORS returns echo's CORS middleware configured from the policy.
func CORS(p *CORSPolicy) echo.MiddlewareFunc {
	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return p.Allowed(origin), nil
		},
		AllowMethods:     p.allowMethods,
		AllowHeaders:     p.allowHeaders,
		ExposeHeaders:    p.exposeHeaders,
		AllowCredentials: true,
		MaxAge:           p.maxAge,
	})
}

func hasToken(values []string, token string) bool {
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
