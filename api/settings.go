package api

import (
	"fmt"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
)

var settingsLogger = log.GetLogger("ApiSettings")

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.server.DB().GetAllSettings()
	if err != nil {
		settingsLogger.Error().Err(err).Msg("failed to get settings")
		RespondInternalError(c, "Failed to get settings")
		return
	}
	RespondData(c, settings)
}

// UpdateSettings handles PUT /api/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var updates map[string]string
	if err := c.ShouldBindJSON(&updates); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	keys := make([]string, 0, len(updates))
	for key := range updates {
		if !db.IsKnownSetting(key) {
			RespondBadRequest(c, fmt.Sprintf("unknown setting %q", key))
			return
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := h.server.DB().SetSetting(key, updates[key]); err != nil {
			settingsLogger.Error().Err(err).Str("key", key).Msg("failed to update setting")
			RespondInternalError(c, "Failed to update settings")
			return
		}
	}

	if level, ok := updates[db.SettingLogLevel]; ok && level != "" {
		log.SetLevel(level)
	}

	h.GetSettings(c)
}
