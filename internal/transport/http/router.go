package http

import (
	"log/slog"
	"net/http"
	"time"

	"ecoquest-quiz-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 1 << 20

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// AuthorID is stamped on quizzes saved through the builder endpoints.
	AuthorID string
	Logger   *slog.Logger
}

// NewRouter mounts the REST API and the websocket change feed.
func NewRouter(store *app.QuizStore, opts RouterOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	api := &API{store: store, authorID: opts.AuthorID, log: opts.Logger}
	ws := NewWSHandler(store, opts.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(api.requireLoaded)
		r.Get("/courses", api.listCourses)
		r.Route("/quizzes", func(r chi.Router) {
			r.Get("/", api.listQuizzes)
			r.Post("/", api.createQuiz)
			r.Post("/import", api.importQuiz)
			r.Route("/{quizID}", func(r chi.Router) {
				r.Get("/", api.getQuiz)
				r.Put("/", api.saveQuiz)
				r.Patch("/", api.patchQuiz)
				r.Delete("/", api.deleteQuiz)
				r.Post("/duplicate", api.duplicateQuiz)
				r.Post("/publish", api.togglePublish)
				r.Get("/export", api.exportQuiz)
				r.Post("/score", api.scoreQuiz)
			})
		})
	})
	return r
}
