package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/config"
	"github.com/gitCarrot/OrchAI-sub000/internal/handlers"
	"github.com/gitCarrot/OrchAI-sub000/internal/metrics"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
	"github.com/gitCarrot/OrchAI-sub000/internal/websocket"
)

const requestIDHeader = "X-Request-Id"

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config   *config.Config
	Store    repository.Store
	Service  *service.Service
	Resolver *auth.Resolver
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(accessLog(deps.Logger))
	router.Use(deps.Metrics.Middleware())
	router.Use(cors(deps.Config.CORS.AllowedOrigins))

	router.GET("/healthz", health(deps.Store))

	refrigeratorHandler := handlers.NewRefrigeratorHandler(deps.Service, deps.Logger)
	sharingHandler := handlers.NewSharingHandler(deps.Service, deps.Logger)
	categoryHandler := handlers.NewCategoryHandler(deps.Service, deps.Logger)
	ingredientHandler := handlers.NewIngredientHandler(deps.Service, deps.Logger)
	recipeHandler := handlers.NewRecipeHandler(deps.Service, deps.Logger)
	wsHandler := handlers.NewWebSocketHandler(deps.Service, deps.Hub, deps.Logger)

	protected := router.Group("/api")
	protected.Use(deps.Resolver.Middleware())
	{
		refrigerators := protected.Group("/refrigerators")
		{
			refrigerators.GET("", refrigeratorHandler.GetRefrigerators)
			refrigerators.POST("", refrigeratorHandler.CreateRefrigerator)
			refrigerators.GET("/shared", refrigeratorHandler.GetSharedRefrigerators)
			refrigerators.GET("/:id", refrigeratorHandler.GetRefrigerator)
			refrigerators.PATCH("/:id", refrigeratorHandler.UpdateRefrigerator)
			refrigerators.DELETE("/:id", refrigeratorHandler.DeleteRefrigerator)

			// Sharing
			refrigerators.POST("/:id/share", sharingHandler.ShareRefrigerator)
			refrigerators.GET("/invitations", sharingHandler.GetReceivedInvitations)
			refrigerators.GET("/invitations/sent", sharingHandler.GetSentInvitations)
			refrigerators.PATCH("/invitations/:invitationId", sharingHandler.RespondToInvitation)
			refrigerators.DELETE("/invitations/:invitationId", sharingHandler.CancelInvitation)
			refrigerators.GET("/:id/members", sharingHandler.GetMembers)
			refrigerators.PATCH("/:id/members/:memberId", sharingHandler.UpdateMemberRole)
			refrigerators.DELETE("/:id/members/:memberId", sharingHandler.RemoveMember)

			refrigerators.GET("/:id/ws", wsHandler.HandleWebSocket)
		}

		categories := protected.Group("/refrigerators/:id/categories")
		{
			categories.GET("", categoryHandler.GetCategories)
			categories.POST("", categoryHandler.AttachCategory)
			categories.POST("/batch", categoryHandler.AttachCategories)
			categories.PUT("/:categoryId", categoryHandler.UpdateCategory)
			categories.DELETE("/:categoryId", categoryHandler.DetachCategory)
		}

		ingredients := protected.Group("/refrigerators/:id/categories/:categoryId/ingredients")
		{
			ingredients.GET("", ingredientHandler.GetIngredients)
			ingredients.POST("", ingredientHandler.CreateIngredient)
			ingredients.PATCH("/:ingredientId", ingredientHandler.UpdateIngredient)
			ingredients.DELETE("/:ingredientId", ingredientHandler.DeleteIngredient)
		}

		recipes := protected.Group("/recipes")
		{
			recipes.GET("", recipeHandler.GetRecipes)
			recipes.POST("", recipeHandler.CreateRecipe)
			recipes.GET("/shared", recipeHandler.GetSharedRecipes)
			recipes.GET("/favorites", recipeHandler.GetFavoriteRecipes)
			recipes.POST("/favorites/batch", recipeHandler.BatchFavorites)
			recipes.GET("/:recipeId", recipeHandler.GetRecipe)
			recipes.PATCH("/:recipeId", recipeHandler.UpdateRecipe)
			recipes.DELETE("/:recipeId", recipeHandler.DeleteRecipe)
			recipes.PUT("/:recipeId/share", recipeHandler.ShareRecipe)
			recipes.POST("/:recipeId/favorites", recipeHandler.AddFavorite)
			recipes.DELETE("/:recipeId/favorites", recipeHandler.RemoveFavorite)
		}
	}

	return router
}

// cors answers preflight requests for the configured frontend origins. The
// internal key headers are never in the allowed list.
func cors(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Length, Content-Type, Authorization, Accept-Language")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestID reuses the caller's X-Request-Id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": c.GetString("request_id"),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request completed")
			return
		}
		entry.Info("Request completed")
	}
}

func health(store repository.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
