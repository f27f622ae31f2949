package routes

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/internal/queue"
	"adaptive-learning-platform/middleware"
	"adaptive-learning-platform/services"
	"adaptive-learning-platform/utils"
)

// AdminDeps wires the operational endpoints: reindex trigger, index
// inspection and usage stats. All routes require an admin token.
type AdminDeps struct {
	Coordinator  *services.IndexingCoordinator
	Interactions *services.InteractionStore
	AsynqClient  *asynq.Client
	Auth         *middleware.AuthMiddleware
}

func SetupAdminRoutes(router *gin.Engine, deps *AdminDeps) {
	admin := router.Group("/admin")
	admin.Use(deps.Auth.RequireAdmin())

	// Queue a reindex run. The worker process picks it up; ?sync=true runs
	// it inline for deployments without a worker.
	admin.POST("/reindex", func(c *gin.Context) {
		if c.Query("sync") == "true" || deps.AsynqClient == nil {
			report, err := deps.Coordinator.Reindex(c.Request.Context())
			if err != nil {
				logger.Error("Synchronous reindex failed", "error", err)
				utils.RespondWithInternalError(c, "Reindex failed", gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "completed", "report": report})
			return
		}

		task, err := queue.NewReindexTask("admin request")
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build reindex task", nil)
			return
		}
		if _, err := deps.AsynqClient.Enqueue(task); err != nil {
			logger.Error("Failed to enqueue reindex", "error", err)
			utils.RespondWithInternalError(c, "Failed to enqueue reindex", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	// Current index snapshot: which sources are indexed and when.
	admin.GET("/index", func(c *gin.Context) {
		state := deps.Coordinator.State()

		sources := make([]gin.H, 0, len(state.Sources))
		for _, rec := range state.Sources {
			sources = append(sources, gin.H{
				"source_id":       rec.SourceID,
				"content_type":    rec.ContentType,
				"chunk_count":     rec.ChunkCount,
				"last_indexed_at": rec.LastIndexedAt,
			})
		}
		sort.Slice(sources, func(i, j int) bool {
			return sources[i]["source_id"].(string) < sources[j]["source_id"].(string)
		})

		c.JSON(http.StatusOK, gin.H{
			"updated_at": state.UpdatedAt,
			"sources":    sources,
		})
	})

	// Aggregate usage over all interactions.
	admin.GET("/stats", func(c *gin.Context) {
		stats, err := deps.Interactions.Stats(c.Request.Context())
		if err != nil {
			logger.Error("Failed to load stats", "error", err)
			utils.RespondWithInternalError(c, "Failed to load stats", nil)
			return
		}

		c.JSON(http.StatusOK, stats)
	})
}
