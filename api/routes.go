package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	// Projects
	api.GET("/projects", h.ListProjects)
	api.POST("/projects", h.CreateProject)
	api.DELETE("/projects/:project", h.DeleteProject)

	// Versions
	api.GET("/projects/:project/versions", h.ListVersions)
	api.POST("/projects/:project/snapshots", h.CreateSnapshot)
	api.POST("/projects/:project/revert", h.Revert)
	api.DELETE("/projects/:project/versions/:version", h.DeleteSnapshot)

	// Notes
	api.GET("/projects/:project/versions/:version/note", h.GetNote)
	api.PUT("/projects/:project/versions/:version/note", h.UpdateNote)

	// External files
	api.POST("/adopt", h.AdoptFile)

	// Sync
	api.POST("/sync/export", h.StartExport)
	api.POST("/sync/import", h.StartImport)
	api.POST("/sync/scan", h.StartScan)
	api.GET("/sync/status", h.GetSyncStatus)
	api.GET("/sync/runs", h.ListSyncRuns)

	// Notifications (SSE)
	api.GET("/notifications/stream", h.NotificationStream)

	// Settings
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.UpdateSettings)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
