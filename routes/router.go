package routes

import (
	"log/slog"
	"time"

	"github.com/anjiri1684/tutor_desk/handlers"
	"github.com/anjiri1684/tutor_desk/middleware"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type AppOptions struct {
	Logger      *slog.Logger
	TimeZone    string
	RequestLog  bool
	PrintRoutes bool
}

// NewApp builds the fiber app with its middlewares and every route.
func NewApp(h *handlers.Handler, opts AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:           "Tutor Desk",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: opts.PrintRoutes,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler:      handlers.ErrorHandler(opts.Logger),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition, X-Document-URL, X-Invalidate",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(logger.New(logger.Config{
			TimeFormat: "2006-01-02 15:04:05",
			TimeZone:   opts.TimeZone,
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	app.Get("/health", h.Health)

	AuthRoutes(app, h)
	StudentRoutes(app, h)
	LessonRoutes(app, h)
	FinanceRoutes(app, h)
	WsRoutes(app, h)

	return app
}

func AuthRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/login", h.LoginUser)
}

func StudentRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	students := api.Group("/students", middleware.Protected(h.AuthSecret()))
	students.Get("", h.ListStudents)
	students.Post("", h.CreateStudent)
	students.Get("/:id", h.GetStudent)
	students.Patch("/:id", h.UpdateStudent)
	students.Delete("/:id", h.DeleteStudent)
	students.Get("/:id/lessons", h.ListStudentLessons)
	students.Get("/:id/balance", h.GetStudentBalance)

	students.Get("/:id/packs", h.ListPacks)
	students.Post("/:id/packs", h.CreatePack)
	students.Delete("/:id/packs/:packId", h.DeletePack)
	students.Post("/:id/pay-with-pack", h.PayWithPack)

	students.Post("/:id/invoice", h.ComposeInvoice)
	students.Post("/:id/invoice/html", h.InvoiceHTML)
	students.Post("/:id/invoice/pdf", h.InvoicePDF)
	students.Post("/:id/attestation/html", h.AttestationHTML)
	students.Post("/:id/attestation/pdf", h.AttestationPDF)
}

func LessonRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	lessons := api.Group("/lessons", middleware.Protected(h.AuthSecret()))
	lessons.Get("", h.ListLessons)
	lessons.Post("", h.CreateLesson)
	lessons.Delete("/:id", h.DeleteLesson)
	lessons.Patch("/:id/payment", h.SetLessonPayment)
}

func FinanceRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")
	protected := middleware.Protected(h.AuthSecret())

	api.Get("/finances", protected, h.GetFinances)
	api.Get("/finances/years", protected, h.GetFinanceYears)
	api.Get("/finances/export.xlsx", protected, h.ExportFinances)
	api.Get("/dashboard", protected, h.GetDashboard)
	api.Get("/agenda", protected, h.GetAgenda)
}

func WsRoutes(app *fiber.App, h *handlers.Handler) {
	app.Use("/ws", h.WsUpgrade)
	app.Get("/ws", websocketcontrib.New(h.ServeWs))
}
