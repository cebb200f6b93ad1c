package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
)

// ListProjects handles GET /api/projects?q=
func (h *Handlers) ListProjects(c *gin.Context) {
	projects, err := h.server.Search().FilterProjects(c.Query("q"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondList(c, projects)
}

// CreateProject handles POST /api/projects
func (h *Handlers) CreateProject(c *gin.Context) {
	var body struct {
		Name string  `json:"name"`
		Note *string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	err := h.server.FS().CreateProject(c.Request.Context(), fs.CreateProjectRequest{
		Name:     body.Name,
		Template: h.server.Config().TemplatePath,
		Note:     body.Note,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}

	versions, err := h.server.FS().ListVersions(body.Name)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"name": body.Name, "versions": versions}, "/api/projects/"+body.Name+"/versions")
}

// DeleteProject handles DELETE /api/projects/:project
func (h *Handlers) DeleteProject(c *gin.Context) {
	if err := h.server.FS().DeleteProject(c.Request.Context(), c.Param("project")); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondNoContent(c)
}

// ListVersions handles GET /api/projects/:project/versions?q=
func (h *Handlers) ListVersions(c *gin.Context) {
	project := c.Param("project")
	if err := fs.ValidateProjectName(project); err != nil {
		RespondAppError(c, err)
		return
	}

	versions, err := h.server.Search().FilterVersions(project, c.Query("q"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondList(c, versions)
}

// CreateSnapshot handles POST /api/projects/:project/snapshots
func (h *Handlers) CreateSnapshot(c *gin.Context) {
	var body struct {
		Note *string `json:"note"`
	}
	// Body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			RespondBadRequest(c, "Invalid request body")
			return
		}
	}

	project := c.Param("project")
	snapshot, err := h.server.FS().CreateSnapshot(c.Request.Context(), project, body.Note)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"project": project, "version": snapshot}, "")
}

// Revert handles POST /api/projects/:project/revert
func (h *Handlers) Revert(c *gin.Context) {
	var body struct {
		Version string `json:"version"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Version == "" {
		RespondBadRequest(c, "version is required")
		return
	}

	if err := h.server.FS().Revert(c.Request.Context(), c.Param("project"), body.Version); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondNoContent(c)
}

// DeleteSnapshot handles DELETE /api/projects/:project/versions/:version
func (h *Handlers) DeleteSnapshot(c *gin.Context) {
	if err := h.server.FS().DeleteSnapshot(c.Request.Context(), c.Param("project"), c.Param("version")); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondNoContent(c)
}

// GetNote handles GET /api/projects/:project/versions/:version/note
func (h *Handlers) GetNote(c *gin.Context) {
	project, version := c.Param("project"), c.Param("version")
	if err := fs.ValidateProjectName(project); err != nil {
		RespondAppError(c, err)
		return
	}
	if err := fs.ValidateVersionName(version); err != nil {
		RespondAppError(c, err)
		return
	}

	note, err := h.server.FS().ReadNote(project, version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, gin.H{"project": project, "version": version, "text": note})
}

// UpdateNote handles PUT /api/projects/:project/versions/:version/note
func (h *Handlers) UpdateNote(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	project, version := c.Param("project"), c.Param("version")
	if err := h.server.FS().WriteNote(c.Request.Context(), project, version, body.Text); err != nil {
		RespondAppError(c, err)
		return
	}

	note, err := h.server.FS().ReadNote(project, version)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, gin.H{"project": project, "version": version, "text": note})
}

// AdoptFile handles POST /api/adopt
func (h *Handlers) AdoptFile(c *gin.Context) {
	var body struct {
		Path string  `json:"path"`
		Note *string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Path == "" {
		RespondBadRequest(c, "path is required")
		return
	}

	project, snapshot, err := h.server.FS().AdoptExternalFile(c.Request.Context(), body.Path, body.Note)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"project": project, "version": snapshot}, "/api/projects/"+project+"/versions")
}
