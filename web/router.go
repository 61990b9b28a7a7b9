package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ptrj.com/venus/core"
	"ptrj.com/venus/service"
	"ptrj.com/venus/web/handlers"
	"ptrj.com/venus/web/middlewares"
)

// NewRouter builds the HTTP surface: a public health check and the
// token-protected staging and jobs API.
func NewRouter(store *core.Store, svc *service.Service, jwtSecret []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middlewares.Authentication(jwtSecret))
	{
		handlers.RegisterStaging(api, store)
		handlers.RegisterJobs(api, svc)
	}

	return r
}
