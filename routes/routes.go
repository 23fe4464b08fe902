package routes

import (
	controller "boardroom/controllers"
	"boardroom/middleware"
	"boardroom/models"
	"boardroom/realtime"
	"boardroom/services"
	"boardroom/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps is everything the route table needs.
type Deps struct {
	Verifier      utils.IdentityVerifier
	Perms         *services.PermissionService
	Members       *services.MemberService
	Roles         *services.RoleService
	Meetings      *services.MeetingService
	Content       *services.ContentService
	Votes         *services.VoteService
	Gateway       *realtime.Gateway
	WebhookSecret string
	CORS          middleware.CORSConfig
	RateLimit     int
	// RateStorage is nil for in-process counters.
	RateStorage fiber.Storage
	AccessLog   bool
}

// NewApp builds the fiber app with the shared error handler and every route.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
		AppName:      "boardroom",
	})
	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(middleware.CORS(d.CORS))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	SetupRoutes(app, d)
	return app
}

func SetupRoutes(app *fiber.App, d Deps) {
	webhooks := controller.NewWebhookController(d.Members, d.WebhookSecret)
	app.Post("/webhooks/identity", webhooks.HandleIdentityEvent)

	if d.Gateway != nil {
		app.Get("/ws", realtime.Authenticate(d.Verifier), d.Gateway.Handler())
	}

	api := app.Group("/api/v1",
		middleware.Protected(d.Verifier, d.Members),
		middleware.RateLimiter(d.RateLimit, d.RateStorage),
	)

	setupCompanyRoutes(api, d)
	setupRoleRoutes(api, d)
	setupMeetingRoutes(api, d)
	setupContentRoutes(api, d)
}

func setupCompanyRoutes(api fiber.Router, d Deps) {
	cc := controller.NewCompanyController(d.Members)
	can := func(codes ...string) fiber.Handler { return middleware.RequirePermission(d.Perms, codes...) }

	api.Post("/companies", cc.CreateCompany)
	api.Get("/companies", cc.ListCompanies)

	company := api.Group("/companies/:companyId")
	company.Get("/", middleware.RequireMember(d.Perms), cc.GetCompany)

	members := company.Group("/members")
	members.Get("/", can(models.PermMembersView), cc.ListMembers)
	members.Post("/", can(models.PermMembersManage), cc.AddMember)
	members.Put("/:userId", can(models.PermMembersManage), cc.UpdateMember)
	members.Delete("/:userId", can(models.PermMembersManage), cc.RemoveMember)
}

func setupRoleRoutes(api fiber.Router, d Deps) {
	rc := controller.NewRoleController(d.Roles, d.Perms)
	can := func(codes ...string) fiber.Handler { return middleware.RequirePermission(d.Perms, codes...) }
	member := middleware.RequireMember(d.Perms)

	roles := api.Group("/companies/:companyId/roles")
	roles.Get("/", can(models.PermRolesView), rc.ListRoles)
	roles.Post("/", can(models.PermRolesManage), rc.CreateRole)
	roles.Put("/:roleId", can(models.PermRolesManage), rc.UpdateRole)
	roles.Delete("/:roleId", can(models.PermRolesManage), rc.DeleteRole)
	roles.Put("/:roleId/permissions", can(models.PermRolesManage), rc.SetRoleGrants)

	perms := api.Group("/companies/:companyId/permissions")
	perms.Get("/catalog", member, rc.Catalog)
	perms.Get("/me", member, rc.MyPermissions)
	perms.Put("/system/:role", can(models.PermRolesManage), rc.SetSystemRoleGrants)
}

func setupMeetingRoutes(api fiber.Router, d Deps) {
	mc := controller.NewMeetingController(d.Meetings)
	can := func(codes ...string) fiber.Handler { return middleware.RequirePermission(d.Perms, codes...) }

	meetings := api.Group("/companies/:companyId/meetings")
	meetings.Get("/", can(models.PermMeetingsView), mc.ListMeetings)
	meetings.Post("/", can(models.PermMeetingsCreate), mc.CreateMeeting)
	meetings.Get("/:meetingId", can(models.PermMeetingsView), mc.GetMeeting)
	meetings.Put("/:meetingId", can(models.PermMeetingsEdit), mc.UpdateMeeting)
	meetings.Delete("/:meetingId", can(models.PermMeetingsDelete), mc.DeleteMeeting)

	for _, op := range []services.LifecycleOp{
		services.OpStart, services.OpPause, services.OpResume, services.OpComplete, services.OpCancel,
	} {
		meetings.Post("/:meetingId/"+string(op), can(models.PermMeetingsManage), mc.Transition(op))
	}

	meetings.Get("/:meetingId/summary", can(models.PermMeetingsView), mc.GetSummary)

	meetings.Get("/:meetingId/attendees", can(models.PermMeetingsView), mc.ListAttendees)
	meetings.Post("/:meetingId/attendees", can(models.PermMeetingsEdit), mc.AddAttendees)
	meetings.Delete("/:meetingId/attendees/:memberId", can(models.PermMeetingsEdit), mc.RemoveAttendee)
	meetings.Put("/:meetingId/attendance", middleware.RequireMember(d.Perms), mc.UpdateAttendance)
}

func setupContentRoutes(api fiber.Router, d Deps) {
	cc := controller.NewContentController(d.Content, d.Votes)
	can := func(codes ...string) fiber.Handler { return middleware.RequirePermission(d.Perms, codes...) }

	meeting := api.Group("/companies/:companyId/meetings/:meetingId")

	agenda := meeting.Group("/agenda")
	agenda.Get("/", can(models.PermAgendaView), cc.ListAgenda)
	agenda.Post("/", can(models.PermAgendaCreate), cc.CreateAgendaItem)
	agenda.Put("/reorder", can(models.PermAgendaEdit), cc.ReorderAgenda)
	agenda.Put("/:itemId", can(models.PermAgendaEdit), cc.UpdateAgendaItem)
	agenda.Delete("/:itemId", can(models.PermAgendaDelete), cc.DeleteAgendaItem)

	decisions := meeting.Group("/decisions")
	decisions.Get("/", can(models.PermDecisionsView), cc.ListDecisions)
	decisions.Post("/", can(models.PermDecisionsCreate), cc.CreateDecision)
	decisions.Put("/reorder", can(models.PermDecisionsEdit), cc.ReorderDecisions)
	decisions.Get("/:decisionId", can(models.PermDecisionsView), cc.GetDecision)
	decisions.Put("/:decisionId", can(models.PermDecisionsEdit), cc.UpdateDecision)
	decisions.Delete("/:decisionId", can(models.PermDecisionsDelete), cc.DeleteDecision)
	decisions.Get("/:decisionId/votes", can(models.PermVotesView), cc.ListVotes)
	decisions.Post("/:decisionId/votes", can(models.PermVotesCast), cc.CastVote)

	items := meeting.Group("/action-items")
	items.Get("/", can(models.PermActionItemsView), cc.ListActionItems)
	items.Post("/", can(models.PermActionItemsCreate), cc.CreateActionItem)
	items.Put("/reorder", can(models.PermActionItemsEdit), cc.ReorderActionItems)
	items.Put("/:itemId", can(models.PermActionItemsEdit), cc.UpdateActionItem)
	items.Delete("/:itemId", can(models.PermActionItemsDelete), cc.DeleteActionItem)

	notes := meeting.Group("/notes")
	notes.Get("/", can(models.PermNotesView), cc.ListNotes)
	notes.Post("/", can(models.PermNotesCreate), cc.CreateNote)
	notes.Put("/reorder", can(models.PermNotesEdit), cc.ReorderNotes)
	notes.Put("/:noteId", can(models.PermNotesEdit), cc.UpdateNote)
	notes.Delete("/:noteId", can(models.PermNotesDelete), cc.DeleteNote)
}
