package v1

import (
	"github.com/gin-gonic/gin"

	"dream-export/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.GET("/generations", r.handlers.Generation.List)
	group.POST("/generations/resolve", r.handlers.Generation.Resolve)
	group.GET("/generations/bulk-export", r.handlers.Generation.BulkExport)
	group.POST("/generations/download", r.handlers.Generation.Download)

	group.POST("/drive/upload", r.handlers.Drive.Upload)
	group.GET("/drive/quota", r.handlers.Drive.Quota)

	group.POST("/bucket/upload", r.handlers.Bucket.Upload)
	group.GET("/bucket/files", r.handlers.Bucket.Files)
	group.POST("/bucket/download", r.handlers.Bucket.Download)
}
