package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"adaptive-learning-platform/services"
	"adaptive-learning-platform/utils"
)

// SetupMediaRoutes exposes the non-blocking job status poll and artifact
// download.
func SetupMediaRoutes(router *gin.Engine, orchestrator *services.MediaOrchestrator, mediaDir string) {
	media := router.Group("/media")

	// Poll the rendering status for one interaction. Always returns
	// immediately, whatever state the jobs are in.
	media.GET("/status/:interaction_id", func(c *gin.Context) {
		interactionID := c.Param("interaction_id")
		if interactionID == "" {
			utils.RespondWithBadRequest(c, "interaction_id is required", nil)
			return
		}

		c.JSON(http.StatusOK, orchestrator.Status(interactionID))
	})

	// Serve a finished artifact by file name.
	media.GET("/file/:name", func(c *gin.Context) {
		name := filepath.Base(c.Param("name"))
		if name == "." || name == "/" || strings.Contains(name, "..") {
			utils.RespondWithBadRequest(c, "invalid file name", nil)
			return
		}

		path := filepath.Join(mediaDir, name)
		if _, err := os.Stat(path); err != nil {
			utils.RespondWithNotFound(c, "Media file not found")
			return
		}

		c.File(path)
	})
}
