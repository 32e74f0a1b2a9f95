package http

import (
	"net/http"

	"clinic-portal/internal/delivery/http/handler"
	"clinic-portal/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Router struct {
	router              *mux.Router
	authHandler         *handler.AuthHandler
	contactHandler      *handler.ContactHandler
	userHandler         *handler.UserHandler
	doctorHandler       *handler.DoctorHandler
	availabilityHandler *handler.AvailabilityHandler
	appointmentHandler  *handler.AppointmentHandler
	dashboardHandler    *handler.DashboardHandler
	settingsHandler     *handler.SettingsHandler
	auditLogHandler     *handler.AuditLogHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	loggingMiddleware   *middleware.LoggingMiddleware
}

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth         *handler.AuthHandler
	Contact      *handler.ContactHandler
	User         *handler.UserHandler
	Doctor       *handler.DoctorHandler
	Availability *handler.AvailabilityHandler
	Appointment  *handler.AppointmentHandler
	Dashboard    *handler.DashboardHandler
	Settings     *handler.SettingsHandler
	AuditLog     *handler.AuditLogHandler
}

func NewRouter(
	handlers Handlers,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	loggingMiddleware *middleware.LoggingMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		authHandler:         handlers.Auth,
		contactHandler:      handlers.Contact,
		userHandler:         handlers.User,
		doctorHandler:       handlers.Doctor,
		availabilityHandler: handlers.Availability,
		appointmentHandler:  handlers.Appointment,
		dashboardHandler:    handlers.Dashboard,
		settingsHandler:     handlers.Settings,
		auditLogHandler:     handlers.AuditLog,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
		loggingMiddleware:   loggingMiddleware,
	}
}

// Setup registers every route. CORS and request logging wrap the whole router
// so preflight requests are answered even though no route matches OPTIONS.
func (r *Router) Setup() http.Handler {
	r.router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Public routes
	api.HandleFunc("/contact", r.contactHandler.Submit).Methods(http.MethodPost)
	api.HandleFunc("/doctors", r.doctorHandler.ListPublicDoctors).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", r.doctorHandler.GetPublicDoctor).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}/slots", r.doctorHandler.ListOpenSlots).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/sign-up", r.authHandler.SignUp).Methods(http.MethodPost)
	auth.HandleFunc("/sign-in", r.authHandler.SignIn).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", r.authHandler.RefreshToken).Methods(http.MethodPost)
	auth.HandleFunc("/password/reset", r.authHandler.RequestPasswordReset).Methods(http.MethodPost)
	auth.HandleFunc("/password/update", r.authHandler.UpdatePassword).Methods(http.MethodPost)
	auth.Handle("/session", r.authMiddleware.Optional(http.HandlerFunc(r.authHandler.Session))).Methods(http.MethodGet)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/sign-out", r.authHandler.SignOut).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.Me).Methods(http.MethodGet)

	// Signed-in accounts
	account := api.NewRoute().Subrouter()
	account.Use(r.authMiddleware.Authenticate)
	account.HandleFunc("/profile/me", r.settingsHandler.GetProfile).Methods(http.MethodGet)
	account.HandleFunc("/profile/me", r.settingsHandler.UpdateProfile).Methods(http.MethodPut)
	account.HandleFunc("/profile/me/password", r.settingsHandler.ChangePassword).Methods(http.MethodPut)
	account.HandleFunc("/appointments", r.appointmentHandler.Book).Methods(http.MethodPost)
	account.HandleFunc("/appointments/mine", r.appointmentHandler.ListMine).Methods(http.MethodGet)
	account.HandleFunc("/appointments/{id}/cancel", r.appointmentHandler.Cancel).Methods(http.MethodPost)

	// Admin area (staff: admins and doctors)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdminOrDoctor)

	admin.HandleFunc("/dashboard", r.dashboardHandler.Summary).Methods(http.MethodGet)

	// Contact messages; export must be registered before {id}
	admin.HandleFunc("/contact-messages", r.contactHandler.ListSubmissions).Methods(http.MethodGet)
	admin.HandleFunc("/contact-messages/export", r.contactHandler.ExportCSV).Methods(http.MethodGet)
	admin.HandleFunc("/contact-messages/{id}", r.contactHandler.GetSubmission).Methods(http.MethodGet)
	admin.HandleFunc("/contact-messages/{id}/status", r.contactHandler.UpdateStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/contact-messages/{id}", r.contactHandler.DeleteSubmission).Methods(http.MethodDelete)

	// Doctors; me must be registered before {id}
	admin.HandleFunc("/doctors", r.doctorHandler.ListDoctors).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/me", r.doctorHandler.GetMyDoctorProfile).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/me", r.doctorHandler.UpdateMyDoctorProfile).Methods(http.MethodPut)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.UpdateDoctor).Methods(http.MethodPut)

	// Availability
	admin.HandleFunc("/availability", r.availabilityHandler.CreateSlot).Methods(http.MethodPost)
	admin.HandleFunc("/availability", r.availabilityHandler.ListSlots).Methods(http.MethodGet)
	admin.HandleFunc("/availability/{id}", r.availabilityHandler.GetSlot).Methods(http.MethodGet)
	admin.HandleFunc("/availability/{id}", r.availabilityHandler.UpdateSlot).Methods(http.MethodPut)
	admin.HandleFunc("/availability/{id}", r.availabilityHandler.DeleteSlot).Methods(http.MethodDelete)

	// Appointments
	admin.HandleFunc("/appointments", r.appointmentHandler.List).Methods(http.MethodGet)
	admin.HandleFunc("/appointments/{id}", r.appointmentHandler.Get).Methods(http.MethodGet)
	admin.HandleFunc("/appointments/{id}/status", r.appointmentHandler.UpdateStatus).Methods(http.MethodPatch)

	// Settings
	admin.HandleFunc("/settings", r.settingsHandler.GetProfile).Methods(http.MethodGet)
	admin.HandleFunc("/settings", r.settingsHandler.UpdateProfile).Methods(http.MethodPut)
	admin.HandleFunc("/settings/password", r.settingsHandler.ChangePassword).Methods(http.MethodPut)

	// Admin only
	users := admin.PathPrefix("/users").Subrouter()
	users.Use(middleware.RequireAdmin)
	users.HandleFunc("", r.userHandler.ListUsers).Methods(http.MethodGet)
	users.HandleFunc("/{id}/role", r.userHandler.ChangeRole).Methods(http.MethodPatch)
	users.HandleFunc("/{id}/active", r.userHandler.SetActive).Methods(http.MethodPatch)

	auditLogs := admin.PathPrefix("/audit-logs").Subrouter()
	auditLogs.Use(middleware.RequireAdmin)
	auditLogs.HandleFunc("", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	auditLogs.HandleFunc("/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	return r.corsMiddleware.Handle(r.loggingMiddleware.Handle(r.router))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
