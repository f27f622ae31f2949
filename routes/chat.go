package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"adaptive-learning-platform/internal/logger"
	"adaptive-learning-platform/models"
	"adaptive-learning-platform/services"
	"adaptive-learning-platform/utils"
)

// ChatDeps wires the per-turn pipeline into the chat endpoints.
type ChatDeps struct {
	Retrieval    *services.RetrievalService
	Classifier   *services.ClassifierService
	Composer     *services.ComposerService
	Orchestrator *services.MediaOrchestrator
	Interactions *services.InteractionStore
}

type askRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Question string `json:"question" binding:"required"`
}

type askResponse struct {
	Response       models.AdaptiveResponse `json:"response"`
	Classification models.Classification   `json:"classification"`
	MediaJobs      []models.MediaJob       `json:"media_jobs,omitempty"`
}

func SetupChatRoutes(router *gin.Engine, deps *ChatDeps) {
	chat := router.Group("/chat")

	// Main ask flow: retrieve, classify, compose, then fire media jobs in
	// the background. The text answer never waits on audio or video.
	chat.POST("/ask", func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "user_id and question are required", gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		interactionID := uuid.NewString()

		retrieval, err := deps.Retrieval.Retrieve(ctx, req.Question)
		if err != nil {
			logger.Error("Retrieval failed", "error", err, "user_id", req.UserID)
			utils.RespondWithInternalError(c, "Failed to search the learning material", nil)
			return
		}

		classification, err := deps.Classifier.Classify(ctx, req.UserID, req.Question, retrieval)
		if err != nil {
			logger.Error("Classification failed", "error", err, "user_id", req.UserID)
			utils.RespondWithInternalError(c, "Failed to analyze the question", nil)
			return
		}

		response, err := deps.Composer.Compose(ctx, interactionID, req.Question, classification, retrieval)
		if err != nil {
			logger.Error("Composition failed", "error", err, "user_id", req.UserID)
			utils.RespondWithInternalError(c, "Failed to compose the response", nil)
			return
		}

		var jobs []models.MediaJob
		if response.InScope && deps.Orchestrator != nil {
			jobs = deps.Orchestrator.Dispatch(interactionID, response.Text)
		}

		if deps.Interactions != nil {
			interaction := &models.Interaction{
				InteractionID:   interactionID,
				UserID:          req.UserID,
				Question:        req.Question,
				Maturity:        classification.Maturity,
				PreferredFormat: classification.PreferredFormat,
				InScope:         classification.InScope,
				ContentText:     response.Text,
				Timestamp:       time.Now(),
			}
			if err := deps.Interactions.Save(ctx, interaction); err != nil {
				// The answer is already composed; losing the history row is
				// not worth failing the request.
				logger.Warn("Failed to persist interaction", "error", err, "interaction_id", interactionID)
			}
		}

		c.JSON(http.StatusOK, askResponse{
			Response:       *response,
			Classification: classification,
			MediaJobs:      jobs,
		})
	})

	// Recent turns for one user, newest first.
	chat.GET("/history/:user_id", func(c *gin.Context) {
		userID := c.Param("user_id")
		if userID == "" {
			utils.RespondWithBadRequest(c, "user_id is required", nil)
			return
		}

		interactions, err := deps.Interactions.ListByUser(c.Request.Context(), userID, 20)
		if err != nil {
			logger.Error("Failed to list interactions", "error", err, "user_id", userID)
			utils.RespondWithInternalError(c, "Failed to load history", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"user_id": userID, "interactions": interactions})
	})
}
