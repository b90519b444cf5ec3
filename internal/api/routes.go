package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Use(handler.LanguageMiddleware)
	app.Get("/healthz", handler.Health)

	v1 := app.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/refresh", handler.Refresh)
	auth.Post("/onboarding/complete", handler.AuthRequired, handler.CompleteOnboarding)
	auth.Get("/me", handler.AuthRequired, handler.Me)

	users := v1.Group("/users", handler.AuthRequired)
	users.Patch("/profile", handler.UpdateProfile)
	users.Get("/stats", handler.UserStats)

	cycles := v1.Group("/cycles", handler.AuthRequired, handler.OnboardingRequired)
	cycles.Post("/period", handler.LogPeriod)
	cycles.Patch("/period/:recordId", handler.UpdatePeriod)
	cycles.Delete("/period/:recordId", handler.DeletePeriod)
	cycles.Get("/predictions", handler.Predictions)
	cycles.Get("/history", handler.History)

	calendar := v1.Group("/calendar", handler.AuthRequired, handler.OnboardingRequired)
	calendar.Get("/", handler.CalendarMonth)
	calendar.Get("/range", handler.CalendarRange)

	logs := v1.Group("/logs", handler.AuthRequired, handler.OnboardingRequired)
	logs.Post("/mood", handler.SaveMood)
	logs.Get("/mood", handler.ListMood)
	logs.Get("/mood/stats", handler.MoodStats)
	logs.Get("/mood/:date", handler.MoodByDate)
	logs.Delete("/mood/:logId", handler.DeleteMood)

	export := v1.Group("/export", handler.AuthRequired, handler.OnboardingRequired)
	export.Get("/", handler.ExportJSON)
	export.Get("/csv", handler.ExportCSV)
	export.Post("/archive", handler.ExportArchive)

	app.Use(handler.NotFound)
}
