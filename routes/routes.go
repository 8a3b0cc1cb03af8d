package routes

import (
	"institution-manager/config"
	"institution-manager/constants"
	"institution-manager/controllers/activity"
	"institution-manager/controllers/admin"
	"institution-manager/controllers/agent"
	"institution-manager/controllers/attachment"
	"institution-manager/controllers/logistics"
	"institution-manager/controllers/ticket"
	"institution-manager/controllers/user"
	"institution-manager/httpServices/gemini"
	"institution-manager/httpServices/oidc"
	"institution-manager/logger"
	"institution-manager/middleware"
	"institution-manager/services/storage"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes registers every route and starts the async request logger.
// The returned logger must be closed on shutdown.
func SetupRoutes(app *fiber.App, db *gorm.DB, settings *config.Settings) (*logger.AsyncLogger, error) {
	uploads, err := storage.NewLocalStorage(settings.UploadDir)
	if err != nil {
		return nil, err
	}
	verifier := oidc.NewVerifier(
		oidc.NewJWKSClient(settings.Keycloak.JWKSURL(), settings.Keycloak.JWKSTTL),
		settings.Keycloak.ClientID,
		settings.Keycloak.Issuer(),
	)
	triage := gemini.NewTriageClient(settings.GeminiAPIKey, settings.GeminiModel)

	asyncLogger := logger.NewAsyncLogger(db)
	userController := user.NewUserController(db)
	activityController := activity.NewActivityController(db, settings)
	ticketController := ticket.NewTicketController(db, settings)
	agentController := agent.NewAgentController(db, settings, triage)
	attachmentController := attachment.NewAttachmentController(db, uploads)
	adminController := admin.NewAdminController(db, settings)
	logisticsController := logistics.NewLogisticsController(db, settings)

	// Start the async logger processing goroutine
	go asyncLogger.ProcessLog()

	app.Get("/health", userController.Health)

	if settings.RequestLogEnabled {
		app.Use(middleware.RequestLogger(asyncLogger))
	}
	app.Use(middleware.Authenticate(db, settings, verifier))

	authenticated := middleware.RequireAuthentication()
	adminOnly := middleware.RequireRole(constants.RoleAdmin)

	app.Get("/me", userController.Me)

	/*=============================================================================
	| Activity Routes
	===============================================================================*/
	activities := app.Group("/activities")
	activities.Post("/categories", adminOnly, activityController.CreateCategory)
	activities.Post("/types", adminOnly, activityController.CreateType)
	activities.Get("/types", activityController.ListTypes)
	activities.Patch("/types/:id", adminOnly, activityController.UpdateType)
	activities.Delete("/types/:id", adminOnly, activityController.DeleteType)
	activities.Post("/types/:id/fields", adminOnly, activityController.AddTypeField)
	activities.Patch("/types/:id/fields/:field_id", adminOnly, activityController.UpdateTypeField)
	activities.Delete("/types/:id/fields/:field_id", adminOnly, activityController.DeleteTypeField)

	activities.Post("/", authenticated, activityController.Store)
	activities.Get("/", activityController.Index)
	activities.Get("/:id", activityController.Show)
	activities.Patch("/:id", middleware.RequireRole(constants.RoleActivityManager), activityController.Update)
	activities.Delete("/:id", middleware.RequireRole(constants.RoleActivityManager), activityController.Destroy)
	activities.Post("/:id/space_bookings", authenticated, activityController.BookSpace)
	activities.Post("/:id/stock_bookings", authenticated, activityController.BookStock)
	activities.Post("/:id/space_bookings/:booking_id/confirm", authenticated, activityController.ConfirmSpaceBooking)
	activities.Post("/:id/stock_bookings/:booking_id/confirm", authenticated, activityController.ConfirmStockBooking)

	/*=============================================================================
	| Ticket Routes
	===============================================================================*/
	tickets := app.Group("/tickets", authenticated)
	tickets.Post("/", ticketController.Store)
	tickets.Get("/me", ticketController.Mine)
	tickets.Get("/types", ticketController.Types)
	tickets.Get("/:id", ticketController.Show)
	tickets.Get("/:id/history", ticketController.History)

	app.Post("/attachments/upload", authenticated, attachmentController.Upload)

	/*=============================================================================
	| Agent Routes
	===============================================================================*/
	agents := app.Group("/agents", middleware.RequireRole(constants.RoleAgent))
	agents.Get("/queues", agentController.Queues)
	agents.Get("/tickets", agentController.Tickets)
	agents.Post("/tickets/:id/claim", agentController.Claim)
	agents.Post("/tickets/:id/assign", agentController.Assign)
	agents.Post("/tickets/:id/transfer", agentController.Transfer)
	agents.Patch("/tickets/:id/status", agentController.Status)
	agents.Post("/tickets/:id/comments", agentController.Comment)
	agents.Post("/tickets/:id/triage", agentController.Triage)

	/*=============================================================================
	| Admin Routes
	===============================================================================*/
	adminGroup := app.Group("/admin", adminOnly)
	adminGroup.Get("/roles", adminController.ListRoles)
	adminGroup.Post("/roles/assign", adminController.AssignRole)
	adminGroup.Post("/roles/remove", adminController.RemoveRole)
	adminGroup.Post("/roles/make_agent", adminController.MakeAgent)
	adminGroup.Post("/roles/remove_agent", adminController.RemoveAgent)

	adminGroup.Post("/users", adminController.CreateUser)
	adminGroup.Get("/users", adminController.ListUsers)
	adminGroup.Post("/users/bulk", adminController.BulkUsers)
	adminGroup.Get("/users/:id", adminController.GetUser)
	adminGroup.Get("/users/:id/roles", adminController.UserRoles)
	adminGroup.Put("/users/:id", adminController.UpdateUser)
	adminGroup.Delete("/users/:id", adminController.DeleteUser)

	adminGroup.Post("/groups", adminController.CreateGroup)
	adminGroup.Get("/groups", adminController.ListGroups)
	adminGroup.Get("/groups/:id/members", adminController.GroupMembers)
	adminGroup.Post("/groups/:id/users", adminController.AddGroupMember)
	adminGroup.Delete("/groups/:id/users/:user_id", adminController.RemoveGroupMember)

	adminGroup.Post("/queues", adminController.CreateQueue)
	adminGroup.Get("/queues", adminController.ListQueues)
	adminGroup.Get("/queues/:id", adminController.GetQueue)
	adminGroup.Put("/queues/:id", adminController.UpdateQueue)
	adminGroup.Delete("/queues/:id", adminController.DeleteQueue)

	adminGroup.Get("/queue_permissions", adminController.ListQueuePermissions)
	adminGroup.Post("/queue_permissions", adminController.AssignQueuePermission)
	adminGroup.Delete("/queue_permissions", adminController.RemoveQueuePermission)

	adminGroup.Get("/agent_assignments", adminController.ListAgentAssignments)
	adminGroup.Post("/agents/assign", adminController.AssignAgent)
	adminGroup.Delete("/agents/assign/:id", adminController.UnassignAgent)

	adminGroup.Post("/ticket_types", adminController.CreateTicketType)
	adminGroup.Get("/ticket_types", adminController.ListTicketTypes)
	adminGroup.Get("/ticket_types/:id", adminController.GetTicketType)
	adminGroup.Put("/ticket_types/:id", adminController.UpdateTicketType)
	adminGroup.Delete("/ticket_types/:id", adminController.DeleteTicketType)
	adminGroup.Post("/ticket_types/:id/fields", adminController.AddTicketTypeField)
	adminGroup.Patch("/ticket_types/:id/fields/:field_id", adminController.UpdateTicketTypeField)
	adminGroup.Delete("/ticket_types/:id/fields/:field_id", adminController.DeleteTicketTypeField)

	/*=============================================================================
	| Logistics Routes
	===============================================================================*/
	logisticsGroup := app.Group("/logistics")
	logisticsGroup.Get("/buildings", logisticsController.ListBuildings)
	logisticsGroup.Post("/buildings", adminOnly, logisticsController.CreateBuilding)

	logisticsGroup.Get("/spaces", logisticsController.ListSpaces)
	logisticsGroup.Post("/spaces", adminOnly, logisticsController.CreateSpace)
	logisticsGroup.Patch("/spaces/:id", adminOnly, logisticsController.UpdateSpace)
	logisticsGroup.Delete("/spaces/:id", adminOnly, logisticsController.DeleteSpace)

	logisticsGroup.Get("/stock_categories", logisticsController.ListStockCategories)
	logisticsGroup.Post("/stock_categories", adminOnly, logisticsController.CreateStockCategory)
	logisticsGroup.Get("/stock_items", logisticsController.ListStockItems)
	logisticsGroup.Post("/stock_items", adminOnly, logisticsController.CreateStockItem)

	logisticsGroup.Get("/space_types", logisticsController.ListSpaceTypes)
	logisticsGroup.Post("/space_types", adminOnly, logisticsController.CreateSpaceType)
	logisticsGroup.Patch("/space_types/:id", adminOnly, logisticsController.UpdateSpaceType)
	logisticsGroup.Delete("/space_types/:id", adminOnly, logisticsController.DeleteSpaceType)

	logisticsGroup.Get("/stock_types", logisticsController.ListStockTypes)
	logisticsGroup.Post("/stock_types", adminOnly, logisticsController.CreateStockType)
	logisticsGroup.Patch("/stock_types/:id", adminOnly, logisticsController.UpdateStockType)
	logisticsGroup.Delete("/stock_types/:id", adminOnly, logisticsController.DeleteStockType)

	logisticsGroup.Get("/space_templates", logisticsController.ListTemplates)
	logisticsGroup.Post("/space_templates", adminOnly, logisticsController.CreateTemplate)
	logisticsGroup.Patch("/space_templates/:id", adminOnly, logisticsController.UpdateTemplate)
	logisticsGroup.Delete("/space_templates/:id", adminOnly, logisticsController.DeleteTemplate)

	return asyncLogger, nil
}
