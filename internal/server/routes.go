// Package server contain implementation of go-gin-server and each route handlers
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"InternHub-backend/internal/controller/admin"
	"InternHub-backend/internal/controller/application"
	"InternHub-backend/internal/controller/certificate"
	"InternHub-backend/internal/controller/file"
	"InternHub-backend/internal/controller/internship"
	"InternHub-backend/internal/controller/notification"
	"InternHub-backend/internal/controller/task"
	"InternHub-backend/internal/controller/user"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/middleware"
	"InternHub-backend/internal/model"
)

// RegisterRoutes will register each http endpoint routes to bound Server instance
func (s *MyServer) RegisterRoutes() (http.Handler, error) {
	gin.SetMode(s.Config.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Observe(s.Log), middleware.SafeHeader())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.Config.AllowOrigin,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	limiterStore, err := middleware.NewRateLimitStore(s.Config.RedisURL, s.Config.RateLimitPerSecond)
	if err != nil {
		return nil, err
	}
	limit := middleware.RateLimiterMiddleware(limiterStore)

	applicationController := application.NewApplicationController(s.Intake, s.Log)
	adminController := admin.NewAdminController(s.Review, s.Ledger, s.Log)
	internshipController := internship.NewInternshipController(s.Catalog, s.Log)
	taskController := task.NewTaskController(s.Tasks, s.Log)
	certificateController := certificate.NewCertificateController(s.Certificates, s.Log)
	notificationController := notification.NewNotificationController(s.Dispatcher, s.Log)
	fileController := file.NewFileController(s.Blob, s.Log)
	userController := user.NewUserController(s.DB, s.Log)

	r.GET("/", s.HelloWorldHandler)
	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		// Public routes
		v1.GET("internships", internshipController.GetInternships)
		v1.GET("internships/:id", internshipController.GetInternshipByID)
		v1.GET("certificates/verify/:certificate_id", limit, certificateController.VerifyCertificate)

		needAuth := v1.Group("")
		{
			needAuth.Use(middleware.RequireAuth(s.DB, s.Auth, s.Log), limit)
			needAuth.GET("me", userController.GetMe)
			needAuth.PATCH("me/contact", userController.EditContact)
			needAuth.GET("file/:ref", fileController.GetFile)

			notificationRoute := needAuth.Group("/notifications")
			{
				notificationRoute.GET("", notificationController.ListNotifications)
				notificationRoute.POST(":id/read", notificationController.MarkRead)
			}

			needApplicant := needAuth.Group("")
			{
				needApplicant.Use(middleware.CheckRole(model.RoleApplicant))

				fileRoute := needApplicant.Group("/files")
				{
					fileRoute.Use(middleware.SizeLimit(s.Config.MaxUploadBytes))
					fileRoute.POST("payment-proof", fileController.UploadPaymentProof)
					fileRoute.POST("project", fileController.UploadProject)
				}

				applicationRoute := needApplicant.Group("/applications")
				{
					applicationRoute.POST("", applicationController.SubmitApplication)
					applicationRoute.GET("me", applicationController.ListMyApplications)
					applicationRoute.POST(":id/withdraw", applicationController.WithdrawApplication)
				}

				taskRoute := needApplicant.Group("/tasks")
				{
					taskRoute.GET("me", taskController.ListMyTasks)
					taskRoute.POST(":id/start", taskController.StartTask)
					taskRoute.POST(":id/submission", taskController.SubmitTask)
				}

				certificateRoute := needApplicant.Group("/certificates")
				{
					certificateRoute.POST("", certificateController.IssueCertificate)
					certificateRoute.GET("me", certificateController.ListMyCertificates)
					certificateRoute.GET("eligibility/:id", certificateController.Eligibility)
				}
			}

			needAdmin := needAuth.Group("/admin")
			{
				needAdmin.Use(middleware.CheckRole(model.RoleAdmin))
				needAdmin.POST("users", userController.RegisterUser)
				needAdmin.GET("users/:id", userController.GetUserByID)

				needAdmin.POST("internships", internshipController.CreateInternship)
				needAdmin.PATCH("internships/:id", internshipController.EditInternship)
				needAdmin.GET("internships/:id/capacity", adminController.CapacitySnapshot)
				needAdmin.GET("internships/:id/applications", adminController.ListApplications)
				needAdmin.GET("internships/:id/tasks", taskController.ListInternshipTasks)
				needAdmin.GET("internships/:id/submissions", taskController.ListSubmissions)

				needAdmin.POST("applications/:id/review", adminController.ReviewApplication)
				needAdmin.POST("applications/:id/reopen", adminController.ReopenApplication)
				needAdmin.GET("applications/:id/history", adminController.ApplicationHistory)

				needAdmin.POST("tasks", taskController.AssignTask)
				needAdmin.PATCH("tasks/:id/status", taskController.SetTaskStatus)
				needAdmin.POST("submissions/:id/review", taskController.ReviewSubmission)

				needAdmin.POST("certificates/:certificate_id/revoke", certificateController.RevokeCertificate)
			}
		}
	}

	return r, nil
}

// HelloWorldHandler handle request by return message "Hello World"
func (s *MyServer) HelloWorldHandler(c *gin.Context) {
	resp := make(map[string]string)
	resp["message"] = "Hello World"

	c.JSON(http.StatusOK, resp)
}

func (s *MyServer) healthHandler(c *gin.Context) {
	health := s.DB.Health()
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
