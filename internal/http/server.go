package http

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"summa/internal/core"
	"summa/internal/services"
	"summa/internal/storage"
	"summa/web"
)

const (
	overviewCacheSize = 64
	overviewCacheTTL  = 2 * time.Minute
	categoryCacheSize = 64
	categoryCacheTTL  = 2 * time.Minute
)

// ChatAssistant answers a user message given a finance summary.
// *chat.Client satisfies it; a nil assistant disables the endpoint.
type ChatAssistant interface {
	Ask(ctx context.Context, financeSummary, userMessage string) (string, error)
}

type Server struct {
	http.Server

	repo      *storage.SQLiteRepository
	expenses  *services.ExpenseService
	publisher services.Publisher
	chat      ChatAssistant

	defaultOwner string
	templates    *template.Template
	limiter      *rateLimiter

	overviewCache *lruCache[core.SpendingOverview]
	categoryCache *lruCache[[]storage.CategoryTotals]

	// creating holds owners with an expense materialization in flight, so a
	// double-submitted form cannot fan out twice.
	creating sync.Map
}

func NewServer(addr string, repo *storage.SQLiteRepository, publisher services.Publisher, chat ChatAssistant, defaultOwner string) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"usd": core.FormatUSD,
	}).ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		repo:          repo,
		publisher:     publisher,
		chat:          chat,
		defaultOwner:  defaultOwner,
		templates:     tmpl,
		limiter:       newRateLimiter(),
		overviewCache: newLRUCache[core.SpendingOverview](overviewCacheSize, overviewCacheTTL),
		categoryCache: newLRUCache[[]storage.CategoryTotals](categoryCacheSize, categoryCacheTTL),
	}
	s.expenses = services.NewExpenseService(repo, publisher, s.invalidateCaches)

	s.Addr = addr
	s.Handler = s.routes()
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)

	mux.HandleFunc("/overview", s.withMiddleware(s.handleOverview))

	mux.HandleFunc("/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/categories/update", s.withMiddleware(s.handleUpdateCategory))
	mux.HandleFunc("/categories/delete", s.withMiddleware(s.handleDeleteCategory))

	mux.HandleFunc("/expenses", s.withMiddleware(s.handleExpenses))
	mux.HandleFunc("/expenses/delete", s.withMiddleware(s.handleDeleteExpense))

	mux.HandleFunc("/income", s.withMiddleware(s.handleIncome))

	mux.HandleFunc("/chat", s.withMiddleware(s.handleChat))

	mux.HandleFunc("/forecast", s.withMiddleware(s.handleForecastRequest))
	mux.HandleFunc("/forecast/status", s.withMiddleware(s.handleForecastStatus))

	mux.Handle("/static/", http.FileServer(http.FS(web.StaticFS)))

	return mux
}

func (s *Server) invalidateCaches() {
	s.overviewCache.invalidateAll()
	s.categoryCache.invalidateAll()
}

// tryBeginCreate reserves the owner's create slot. Callers that get true
// must call endCreate when done.
func (s *Server) tryBeginCreate(owner string) bool {
	_, loaded := s.creating.LoadOrStore(owner, struct{}{})
	return !loaded
}

func (s *Server) endCreate(owner string) {
	s.creating.Delete(owner)
}

// Shutdown stops the rate limiter's cleanup goroutine alongside the
// embedded server's drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
