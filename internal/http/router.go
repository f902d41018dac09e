package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/airflowfield/dashboard/internal/alerts"
	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/config"
	"github.com/airflowfield/dashboard/internal/feed"
	"github.com/airflowfield/dashboard/internal/monitor"
	httpmiddleware "github.com/airflowfield/dashboard/internal/http/middleware"
	"github.com/airflowfield/dashboard/internal/session"
	"github.com/airflowfield/dashboard/internal/view"
)

// API is the remote REST API as used by the pages.
type API interface {
	Ping(ctx context.Context) error
	Login(ctx context.Context, email, password string) (string, error)

	ListUsers(ctx context.Context, token string) ([]backend.User, error)
	GetUser(ctx context.Context, token, id string) (backend.User, error)
	CreateUser(ctx context.Context, token string, in backend.UserInput) error
	UpdateUser(ctx context.Context, token, id string, in backend.UserInput) error
	DeleteUser(ctx context.Context, token, id string) error

	ListWorks(ctx context.Context, token string) ([]backend.Work, error)
	GetWork(ctx context.Context, token, id string) (backend.Work, error)
	CreateWork(ctx context.Context, token string, in backend.WorkInput) error
	UpdateWork(ctx context.Context, token, id string, in backend.WorkInput) error
	DeleteWork(ctx context.Context, token, id string) error
	Statistics(ctx context.Context, token string) (backend.Statistics, error)
	WorkReportPDF(ctx context.Context, token, workID string) (*backend.Download, error)

	AssignedWorks(ctx context.Context, token, workerID string) ([]backend.Work, error)
	WorkerWork(ctx context.Context, token, jobID string) (backend.Work, error)
	UpdateWorkStatus(ctx context.Context, token string, work backend.Work, status string) error

	ListReports(ctx context.Context, token, jobID string) ([]backend.Report, error)
	GetReport(ctx context.Context, token, id string) (backend.Report, error)
	CreateReport(ctx context.Context, token, jobID, workerID string, in backend.ReportInput) error
	UpdateReport(ctx context.Context, token, id, workerID string, in backend.ReportInput) error
	DeleteReport(ctx context.Context, token, id, workerID string) error

	ListAlerts(ctx context.Context, token string) ([]backend.Alert, error)
	SendAlert(ctx context.Context, token string, in backend.AlertInput) error
	DeleteAlert(ctx context.Context, token, id string) error

	Upload(ctx context.Context, name string) (*backend.Download, error)
}

// Feeds hands out live alert listeners per worker identity.
type Feeds interface {
	Acquire(identity string) (*feed.Listener, error)
}

// Upstream reports the last known state of the remote API.
type Upstream interface {
	Snapshot() monitor.Snapshot
}

// Deps are the collaborators of the router. Redis and Upstream are optional.
type Deps struct {
	Config   *config.Config
	API      API
	Holder   *session.Holder
	Views    *view.Renderer
	Inbox    *alerts.Inbox
	Feeds    Feeds
	Redis    *redis.Client
	Upstream Upstream
	Logger   zerolog.Logger
}

type Handler struct {
	cfg          *config.Config
	api          API
	holder       *session.Holder
	views        *view.Renderer
	inbox        *alerts.Inbox
	feeds        Feeds
	redis        *redis.Client
	upstream     Upstream
	logger       zerolog.Logger
	loginLimiter *httpmiddleware.RateLimiter
	userLimiter  *httpmiddleware.RateLimiter
}

// NewRouter builds the dashboard router: public pages plus one role-gated subtree
// per role.
func NewRouter(d Deps) (http.Handler, error) {
	if d.Config == nil || d.API == nil || d.Holder == nil || d.Views == nil || d.Inbox == nil || d.Feeds == nil {
		return nil, errors.New("http: missing dependency")
	}
	cfg := d.Config

	h := &Handler{
		cfg:          cfg,
		api:          d.API,
		holder:       d.Holder,
		views:        d.Views,
		inbox:        d.Inbox,
		feeds:        d.Feeds,
		redis:        d.Redis,
		upstream:     d.Upstream,
		logger:       d.Logger,
		loginLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		userLimiter:  httpmiddleware.NewRateLimiter(cfg.RateLimitUser.RequestsPerSecond, cfg.RateLimitUser.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging(h.logger))
	r.Use(httpmiddleware.Recover(h.logger))
	r.Use(httpmiddleware.Session(h.holder))
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.NotFound(h.toRoot)
	r.MethodNotAllowed(h.toRoot)

	r.Group(func(public chi.Router) {
		public.Get("/", h.LoginPage)
		public.Get("/login", h.LoginPage)
		public.With(httpmiddleware.LoginRateLimit(h.loginLimiter)).Post("/login", h.Login)
		public.Post("/logout", h.Logout)
		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		public.Get("/upload/{name}", h.Upload)
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.RequireRoles(session.RoleAdmin))
		admin.Use(httpmiddleware.UserRateLimit(h.userLimiter))

		admin.Get("/dashboard", h.AdminDashboard)
		admin.Get("/createUser", h.CreateUserForm)
		admin.Post("/createUser", h.CreateUser)
		admin.Get("/editUser/{id}", h.EditUserForm)
		admin.Post("/editUser/{id}", h.EditUser)
		admin.Post("/deleteUser/{id}", h.DeleteUser)
	})

	r.Route("/office", func(office chi.Router) {
		office.Use(httpmiddleware.RequireRoles(session.RoleOffice))
		office.Use(httpmiddleware.UserRateLimit(h.userLimiter))

		office.Get("/dashboard", h.OfficeDashboard)
		office.Get("/createWork", h.CreateWorkForm)
		office.Post("/createWork", h.CreateWork)
		office.Get("/editWork/{id}", h.EditWorkForm)
		office.Post("/editWork/{id}", h.EditWork)
		office.Post("/deleteWork/{id}", h.DeleteWork)
		office.Get("/reports/{id}", h.DownloadWorkReport)
		office.Post("/alerts", h.SendAlert)
		office.Get("/map", h.OfficeMap)
	})

	r.Route("/worker", func(worker chi.Router) {
		worker.Use(httpmiddleware.RequireRoles(session.RoleWorker))

		worker.Get("/alerts/stream", h.AlertStream)

		worker.Group(func(paced chi.Router) {
			paced.Use(httpmiddleware.UserRateLimit(h.userLimiter))

			paced.Get("/dashboard", h.WorkerDashboard)
			paced.Post("/work", h.SelectWork)
			paced.Get("/alerts", h.ListAlerts)
			paced.Post("/alerts/{id}/delete", h.DeleteAlert)

			paced.Group(func(scoped chi.Router) {
				scoped.Use(httpmiddleware.WorkScope)
				scoped.Get("/work", h.WorkDetail)
				scoped.Post("/work/status", h.UpdateWorkStatus)
				scoped.Get("/createReport", h.CreateReportForm)
				scoped.Post("/createReport", h.CreateReport)
				scoped.Get("/editReport/{id}", h.EditReportForm)
				scoped.Post("/editReport/{id}", h.EditReport)
				scoped.Post("/deleteReport/{id}", h.DeleteReport)
			})
		})
	})

	return r, nil
}

func (h *Handler) toRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
