package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Matcher decides whether a browser origin may call the API.
type Matcher struct {
	allowAll bool
	exact    map[string]struct{}
	suffixes []string
}

// NewMatcher compiles allowed origins. Entries may be exact origins or "*.domain"
// wildcards matching any subdomain. An empty list allows every origin.
func NewMatcher(allowedOrigins []string) *Matcher {
	m := &Matcher{allowAll: len(allowedOrigins) == 0, exact: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(origin, "/")
		if strings.HasPrefix(origin, "*.") {
			m.suffixes = append(m.suffixes, origin[1:])
			continue
		}
		m.exact[origin] = struct{}{}
	}
	return m
}

// Listed reports whether origin is named by the configuration, ignoring the
// open policy of an empty list.
func (m *Matcher) Listed(origin string) bool {
	origin = strings.TrimRight(origin, "/")
	if _, ok := m.exact[origin]; ok {
		return true
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

// Allows reports whether origin passes the policy.
func (m *Matcher) Allows(origin string) bool {
	return m.allowAll || m.Listed(origin)
}

// CheckOrigin is a websocket.Upgrader origin check using the same policy as the
// REST surface. Requests without an Origin header come from non-browser clients
// and pass.
func (m *Matcher) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || m.Allows(origin)
}

// New returns a CORS middleware. With no configured origins every origin is
// allowed, but credentials are only advertised to explicitly listed origins.
func New(allowedOrigins []string) gin.HandlerFunc {
	m := NewMatcher(allowedOrigins)

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := strings.TrimRight(c.GetHeader("Origin"), "/")
		switch {
		case origin == "":
		case m.Listed(origin):
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		case m.allowAll:
			header.Set("Access-Control-Allow-Origin", "*")
		default:
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID, X-Cache")
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
