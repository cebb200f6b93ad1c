package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// StartExport handles POST /api/sync/export
func (h *Handlers) StartExport(c *gin.Context) {
	var body struct {
		Projects []string `json:"projects"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	runID, err := h.server.Engine().StartExport(body.Projects)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"runId": runID})
}

// StartImport handles POST /api/sync/import
func (h *Handlers) StartImport(c *gin.Context) {
	runID, err := h.server.Engine().StartImportRemote()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"runId": runID})
}

// StartScan handles POST /api/sync/scan
func (h *Handlers) StartScan(c *gin.Context) {
	var body struct {
		Source string `json:"source"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	runID, err := h.server.Engine().StartScanLocal(body.Source)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"runId": runID})
}

// GetSyncStatus handles GET /api/sync/status
func (h *Handlers) GetSyncStatus(c *gin.Context) {
	active := h.server.Engine().Active()
	RespondData(c, gin.H{"running": active != nil, "run": active})
}

// ListSyncRuns handles GET /api/sync/runs?limit=
func (h *Handlers) ListSyncRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondBadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.server.DB().ListSyncRuns(limit)
	if err != nil {
		apiLogger.Error().Err(err).Msg("failed to list sync runs")
		RespondInternalError(c, "Failed to list sync runs")
		return
	}
	RespondList(c, runs)
}
