package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/geo-attendance/internal/web/handlers"
	"github.com/kozaktomas/geo-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.issuer, s.logger)
	officeHandler := handlers.NewOfficeHandler(s.config, s.logger)
	attendanceHandler := handlers.NewAttendanceHandler(s.config, s.logger)

	authz := func(obj, act string) func(http.Handler) http.Handler {
		return middleware.Authorize(s.enforcer, obj, act)
	}

	s.router.Route("/api", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", handlers.HealthCheck)

		r.Post("/auth/register", authHandler.Register)
		r.With(middleware.RateLimitByIP(s.config.Auth.LoginRatePerMinute)).Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.issuer))

			// Profile
			r.With(authz(middleware.ResourceProfile, middleware.ActionRead)).Get("/users/me", authHandler.Me)
			r.With(authz(middleware.ResourceProfile, middleware.ActionWrite)).Post("/auth/register-face", authHandler.RegisterFace)

			// Office
			r.With(authz(middleware.ResourceOffice, middleware.ActionRead)).Get("/office/location", officeHandler.GetLocation)
			r.With(authz(middleware.ResourceOffice, middleware.ActionWrite)).Post("/office/location", officeHandler.SetLocation)

			// Attendance
			r.With(authz(middleware.ResourceAttendance, middleware.ActionWrite)).Post("/attendance/check-in", attendanceHandler.CheckIn)
			r.With(authz(middleware.ResourceAttendance, middleware.ActionWrite)).Post("/attendance/check-out", attendanceHandler.CheckOut)
			r.With(authz(middleware.ResourceAttendance, middleware.ActionRead)).Get("/attendance/my-history", attendanceHandler.MyHistory)
			r.With(authz(middleware.ResourceAttendance, middleware.ActionRead)).Get("/attendance/today-status", attendanceHandler.TodayStatus)
			r.With(authz(middleware.ResourceAllAttendance, middleware.ActionRead)).Get("/attendance/all", attendanceHandler.All)
		})
	})
}
