package ddns

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
)

// Server wires the HTTP surface to the registry and the reconciliation
// service. It holds no mutable state of its own; concurrent requests
// share only the immutable registry.
type Server struct {
	registry *Registry
	service  *Service
	log      logr.Logger
}

func NewServer(registry *Registry, service *Service, log logr.Logger) *Server {
	return &Server{registry: registry, service: service, log: log}
}

// Handler builds the router:
//
//	GET /ddns/:provider/:host/:ip  update one A record
//	GET /health                    liveness, independent of providers
//
// Routed requests always answer 200 with the Result envelope; polling
// clients only parse the body.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(s.accessLog(), gin.Recovery())
	r.GET("/ddns/:provider/:host/:ip", s.update)
	r.GET("/health", s.health)
	return r
}

func (s *Server) update(c *gin.Context) {
	name := c.Param("provider")
	host := c.Param("host")
	ip := c.Param("ip")

	// "auto" lets routers that don't know their public address rely on
	// the address the request arrived from.
	if ip == "auto" {
		ip = c.ClientIP()
	}

	provider, ok := s.registry.Resolve(name)
	if !ok {
		c.JSON(http.StatusOK, Result{
			Success: false,
			Error:   fmt.Sprintf("Provider not found: %s", name),
		})
		return
	}

	result := s.service.Reconcile(c.Request.Context(), provider, host, ip)
	c.JSON(http.StatusOK, result)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// accessLog emits one structured event per request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		s.log.Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"size", c.Writer.Size(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
	}
}
