package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"ecoquest-quiz-service/internal/app"
	"ecoquest-quiz-service/internal/domain"
	"ecoquest-quiz-service/internal/scoring"
	"github.com/go-chi/chi/v5"
)

// API serves the quiz management endpoints.
type API struct {
	store    *app.QuizStore
	authorID string
	log      *slog.Logger
}

type scoreRequest struct {
	Answers []domain.Answer `json:"answers"`
	// Learner optionally receives XP equal to the rounded earned points.
	Learner *domain.Learner `json:"learner,omitempty"`
}

type scoreResponse struct {
	Result  scoring.Result  `json:"result"`
	Learner *domain.Learner `json:"learner,omitempty"`
}

// requireLoaded answers 503 while the stored collections cannot be read.
func (a *API) requireLoaded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.store.Load(r.Context()); err != nil {
			writeDomainErr(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) listCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Courses(r.Context()))
}

func (a *API) listQuizzes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, a.store.ListQuizzes(r.Context(), app.Filter{
		Search:   q.Get("search"),
		Status:   domain.Status(q.Get("status")),
		CourseID: q.Get("courseId"),
	}))
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, ok := a.store.Quiz(r.Context(), chi.URLParam(r, "quizID"))
	if !ok {
		writeDomainErr(w, domain.ErrQuizNotFound)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// createQuiz runs the builder save of a new quiz.
func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	var body domain.Quiz
	if err := decodeJSON(w, r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	b := app.NewBuilder(a.store, a.builderOptions())
	b.SetDraft(body)
	saved, err := b.Save(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// saveQuiz runs the builder save of an existing quiz.
func (a *API) saveQuiz(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.store.Quiz(r.Context(), chi.URLParam(r, "quizID"))
	if !ok {
		writeDomainErr(w, domain.ErrQuizNotFound)
		return
	}
	var body domain.Quiz
	if err := decodeJSON(w, r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid quiz payload")
		return
	}
	b := app.EditBuilder(a.store, existing, a.builderOptions())
	b.SetDraft(body)
	saved, err := b.Save(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (a *API) patchQuiz(w http.ResponseWriter, r *http.Request) {
	var patch app.QuizPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid patch payload")
		return
	}
	if errs := patch.Validate(); len(errs) > 0 {
		writeDomainErr(w, errs)
		return
	}
	quiz, found, err := a.store.UpdateQuiz(r.Context(), chi.URLParam(r, "quizID"), patch)
	a.respondQuiz(w, http.StatusOK, quiz, found, err)
}

func (a *API) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID")); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) duplicateQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, found, err := a.store.DuplicateQuiz(r.Context(), chi.URLParam(r, "quizID"))
	a.respondQuiz(w, http.StatusCreated, quiz, found, err)
}

// togglePublish flips the status. Publishing a draft needs ?confirm=true.
func (a *API) togglePublish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quizID")
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	before, ok := a.store.Quiz(r.Context(), id)
	if !ok {
		writeDomainErr(w, domain.ErrQuizNotFound)
		return
	}
	quiz, found, err := a.store.TogglePublish(r.Context(), id, app.StaticConfirmer(confirmed))
	if err == nil && found && before.Status == domain.StatusDraft && quiz.Status == domain.StatusDraft {
		writeErr(w, http.StatusConflict, "publishing requires confirm=true")
		return
	}
	a.respondQuiz(w, http.StatusOK, quiz, found, err)
}

func (a *API) exportQuiz(w http.ResponseWriter, r *http.Request) {
	export, found, err := a.store.ExportQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err == nil && !found {
		err = domain.ErrQuizNotFound
	}
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Data)
}

func (a *API) importQuiz(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "could not read upload")
		return
	}
	quiz, err := a.store.ImportQuiz(r.Context(), data)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (a *API) scoreQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, ok := a.store.Quiz(r.Context(), chi.URLParam(r, "quizID"))
	if !ok {
		writeDomainErr(w, domain.ErrQuizNotFound)
		return
	}
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid answers payload")
		return
	}

	resp := scoreResponse{Result: scoring.Score(quiz, req.Answers)}
	if req.Learner != nil {
		learner := req.Learner.AddXP(int(math.Round(resp.Result.EarnedPoints)))
		resp.Learner = &learner
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) respondQuiz(w http.ResponseWriter, status int, quiz domain.Quiz, found bool, err error) {
	if err == nil && !found {
		err = domain.ErrQuizNotFound
	}
	if err != nil {
		if !errors.Is(err, domain.ErrQuizNotFound) {
			a.log.Error("quiz request failed", "error", err)
		}
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, status, quiz)
}

func (a *API) builderOptions() app.BuilderOptions {
	return app.BuilderOptions{
		AuthorID:  a.authorID,
		Notifier:  app.LogNotifier{Logger: a.log},
		Confirmer: app.StaticConfirmer(true),
	}
}
