package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/service"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	coachService service.CoachService,
	clientService service.ClientService,
) {
	authHandler := NewAuthHandler(authService)
	coachHandler := NewCoachHandler(coachService)
	clientHandler := NewClientHandler(clientService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			// Roster
			coachGroup.POST("/clients", coachHandler.AddClientByEmail)
			coachGroup.GET("/clients", coachHandler.GetManagedClients)

			// Check-in forms
			coachGroup.POST("/forms", coachHandler.CreateForm)
			coachGroup.GET("/forms", coachHandler.GetMyForms)

			// Recurring series per client
			coachGroup.POST("/clients/:clientId/series", coachHandler.CreateSeries)
			coachGroup.GET("/clients/:clientId/series", coachHandler.GetSeriesForClient)

			// Series lifecycle
			coachGroup.PATCH("/series/:seriesId/paused", coachHandler.SetSeriesPaused)
			coachGroup.PATCH("/series/:seriesId/total-weeks", coachHandler.SetSeriesTotalWeeks)
			coachGroup.DELETE("/series/:seriesId", coachHandler.DeactivateSeries)
			coachGroup.GET("/series/:seriesId/responses", coachHandler.GetSeriesResponses)

			// One-off check-ins
			coachGroup.POST("/checkins", coachHandler.CreateOneOffCheckIn)
		}

		// --- Client Routes ---
		clientGroup := protected.Group("/client")
		clientGroup.Use(RoleMiddleware(domain.RoleClient))
		{
			clientGroup.GET("/checkins", clientHandler.GetMyCheckIns)
			clientGroup.POST("/checkins/:checkinId/response", clientHandler.SubmitCheckIn)

			// Progress photos
			clientGroup.POST("/checkins/:checkinId/photos/upload-url", clientHandler.RequestPhotoUploadURL)
			clientGroup.POST("/checkins/:checkinId/photos/download-url", clientHandler.GetPhotoDownloadURL)
		}
	}
}
