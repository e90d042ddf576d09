package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"ecoquest-quiz-service/internal/domain"
)

// Collection keys, named after the browser storage entries of the web client.
const (
	QuizzesKey = "ecoquest_quizzes"
	CoursesKey = "ecoquest_courses"
)

// CollectionRepository persists whole collections as JSON documents under fixed keys
// (in-memory, SQLite, Redis, Postgres, etc).
type CollectionRepository interface {
	// Get returns the stored document and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// StoreOptions configures a QuizStore.
type StoreOptions struct {
	// Demo seeds the sample quizzes when no quiz collection is stored.
	Demo bool
	// AuthorID is stamped on imported quizzes.
	AuthorID string
	Now      func() time.Time
	Logger   *slog.Logger
}

// QuizPatch lists the quiz fields to merge; nil fields are left unchanged.
type QuizPatch struct {
	Title            *string            `json:"title,omitempty"`
	Description      *string            `json:"description,omitempty"`
	CourseID         *string            `json:"courseId,omitempty"`
	TeacherID        *string            `json:"teacherId,omitempty"`
	Status           *domain.Status     `json:"status,omitempty"`
	TimeLimitMinutes *int               `json:"timeLimitMinutes,omitempty"`
	// ClearTimeLimit removes the time limit; it wins over TimeLimitMinutes.
	ClearTimeLimit   bool               `json:"clearTimeLimit,omitempty"`
	Questions        *[]domain.Question `json:"questions,omitempty"`
}

// FullPatch returns a patch that overwrites every editable field with q's values.
func FullPatch(q domain.Quiz) QuizPatch {
	questions := q.Clone().Questions
	return QuizPatch{
		Title:            &q.Title,
		Description:      &q.Description,
		CourseID:         &q.CourseID,
		TeacherID:        &q.TeacherID,
		Status:           &q.Status,
		TimeLimitMinutes: q.TimeLimitMinutes,
		ClearTimeLimit:   q.TimeLimitMinutes == nil,
		Questions:        &questions,
	}
}

// Validate checks the enumerated fields a patch sets.
func (p QuizPatch) Validate() ValidationErrors {
	errs := ValidationErrors{}
	if p.Status != nil && !p.Status.Valid() {
		errs["status"] = fmt.Sprintf("Unknown status %q", *p.Status)
	}
	if p.Questions != nil {
		for i, q := range *p.Questions {
			if !q.Type.Valid() {
				errs[fmt.Sprintf("question_%d_type", i)] = fmt.Sprintf("Question %d has unknown type %q", i+1, q.Type)
			}
		}
	}
	return errs
}

func (p QuizPatch) apply(q domain.Quiz) domain.Quiz {
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.CourseID != nil {
		q.CourseID = *p.CourseID
	}
	if p.TeacherID != nil {
		q.TeacherID = *p.TeacherID
	}
	if p.Status != nil {
		q.Status = *p.Status
	}
	switch {
	case p.ClearTimeLimit:
		q.TimeLimitMinutes = nil
	case p.TimeLimitMinutes != nil:
		limit := *p.TimeLimitMinutes
		q.TimeLimitMinutes = &limit
	}
	if p.Questions != nil {
		q.Questions = domain.Quiz{Questions: *p.Questions}.Clone().Questions
	}
	return q
}

// Filter narrows ListQuizzes. Empty fields match everything.
type Filter struct {
	Search   string
	Status   domain.Status
	CourseID string
}

func (f Filter) matches(q domain.Quiz) bool {
	if term := strings.ToLower(f.Search); term != "" &&
		!strings.Contains(strings.ToLower(q.Title), term) &&
		!strings.Contains(strings.ToLower(q.Description), term) {
		return false
	}
	if f.Status != "" && q.Status != f.Status {
		return false
	}
	if f.CourseID != "" && q.CourseID != f.CourseID {
		return false
	}
	return true
}

// Export is a downloadable quiz document.
type Export struct {
	Filename string
	Data     []byte
}

// QuizStore owns the quiz and course collections of a client installation. Collections
// are read once on first access; every successful change of the quiz collection is
// persisted and pushed to subscribers.
type QuizStore struct {
	repo     CollectionRepository
	demo     bool
	authorID string
	now      func() time.Time
	log      *slog.Logger

	mu          sync.RWMutex
	loaded      bool
	quizzes     []domain.Quiz
	courses     []domain.Course
	subscribers map[chan domain.QuizzesUpdated]struct{}
}

func NewQuizStore(repo CollectionRepository, opts StoreOptions) *QuizStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AuthorID == "" {
		opts.AuthorID = domain.DemoTeacherID
	}
	return &QuizStore{
		repo:        repo,
		demo:        opts.Demo,
		authorID:    opts.AuthorID,
		now:         opts.Now,
		log:         opts.Logger,
		subscribers: make(map[chan domain.QuizzesUpdated]struct{}),
	}
}

// Load reads both collections if that has not happened yet. Missing or corrupt
// collections are replaced with defaults. A failed repository read returns an error
// wrapping domain.ErrLoadFailed and leaves the store unloaded, so the next access retries.
func (s *QuizStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *QuizStore) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	var courses []domain.Course
	coursesOK, err := s.readCollection(ctx, CoursesKey, &courses)
	if err != nil {
		return err
	}
	var quizzes []domain.Quiz
	quizzesOK, err := s.readCollection(ctx, QuizzesKey, &quizzes)
	if err != nil {
		return err
	}
	s.loaded = true

	if coursesOK {
		s.courses = courses
	} else {
		s.courses = domain.SampleCourses()
		s.seedCollection(ctx, CoursesKey, s.courses)
	}

	switch {
	case quizzesOK:
		s.quizzes = quizzes
	case s.demo:
		s.quizzes = domain.SampleQuizzes()
		s.seedCollection(ctx, QuizzesKey, s.quizzes)
	default:
		s.quizzes = []domain.Quiz{}
	}
	return nil
}

// readCollection decodes the stored document into dst and reports whether it was usable.
// Only a failed Get is an error; missing and corrupt documents fall back to defaults.
func (s *QuizStore) readCollection(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Error("reading collection failed", "key", key, "error", err)
		return false, fmt.Errorf("%w: %s: %w", domain.ErrLoadFailed, key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("stored collection is corrupt, using defaults", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *QuizStore) seedCollection(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = s.repo.Put(ctx, key, data)
	}
	if err != nil {
		s.log.Warn("persisting seed data failed", "key", key, "error", err)
		return
	}
	s.log.Debug("seeded collection", "key", key)
}

// Courses returns the course catalogue.
func (s *QuizStore) Courses(ctx context.Context) []domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked(ctx)
	return append([]domain.Course(nil), s.courses...)
}

// Course looks up a course by ID.
func (s *QuizStore) Course(ctx context.Context, id string) (domain.Course, bool) {
	for _, c := range s.Courses(ctx) {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Course{}, false
}

// Quizzes returns a copy of every quiz in insertion order.
func (s *QuizStore) Quizzes(ctx context.Context) []domain.Quiz {
	return s.ListQuizzes(ctx, Filter{})
}

// ListQuizzes returns the quizzes matching f.
func (s *QuizStore) ListQuizzes(ctx context.Context, f Filter) []domain.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked(ctx)

	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if f.matches(q) {
			out = append(out, q.Clone())
		}
	}
	return out
}

// Quiz returns the quiz with the given ID.
func (s *QuizStore) Quiz(ctx context.Context, id string) (domain.Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked(ctx)

	if i := s.indexLocked(id); i >= 0 {
		return s.quizzes[i].Clone(), true
	}
	return domain.Quiz{}, false
}

// CreateQuiz stores data as a new quiz with a generated ID and fresh timestamps.
func (s *QuizStore) CreateQuiz(ctx context.Context, data domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return domain.Quiz{}, err
	}

	quiz := data.Clone()
	quiz.ID = domain.GenerateID("quiz")
	s.stamp(&quiz, true)
	if quiz.Questions == nil {
		quiz.Questions = []domain.Question{}
	}

	if err := s.appendLocked(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz created", "quizId", quiz.ID, "title", quiz.Title)
	return quiz.Clone(), nil
}

// UpdateQuiz merges patch into the quiz and refreshes UpdatedAt. The boolean is false
// when no quiz has the given ID.
func (s *QuizStore) UpdateQuiz(ctx context.Context, id string, patch QuizPatch) (domain.Quiz, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return domain.Quiz{}, false, err
	}

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Quiz{}, false, nil
	}
	updated := patch.apply(s.quizzes[i].Clone())
	updated.ID = id
	s.stamp(&updated, false)

	next := s.snapshotLocked()
	next[i] = updated
	if err := s.saveLocked(ctx, next); err != nil {
		return domain.Quiz{}, true, err
	}
	return updated.Clone(), true, nil
}

// DeleteQuiz removes the quiz; unknown IDs are ignored.
func (s *QuizStore) DeleteQuiz(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	i := s.indexLocked(id)
	if i < 0 {
		return nil
	}
	next := s.snapshotLocked()
	next = append(next[:i], next[i+1:]...)
	if err := s.saveLocked(ctx, next); err != nil {
		return err
	}
	s.log.Info("quiz deleted", "quizId", id)
	return nil
}

// DuplicateQuiz stores a draft copy of the quiz with every ID regenerated.
func (s *QuizStore) DuplicateQuiz(ctx context.Context, id string) (domain.Quiz, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return domain.Quiz{}, false, err
	}

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Quiz{}, false, nil
	}
	dup := s.quizzes[i].WithFreshIDs()
	dup.Title += " (Copy)"
	dup.Status = domain.StatusDraft
	s.stamp(&dup, true)

	if err := s.appendLocked(ctx, dup); err != nil {
		return domain.Quiz{}, true, err
	}
	return dup.Clone(), true, nil
}

// TogglePublish flips a quiz between draft and published. Publishing asks confirm first
// since it only changes the authoring flag; declining leaves the quiz untouched.
func (s *QuizStore) TogglePublish(ctx context.Context, id string, confirm Confirmer) (domain.Quiz, bool, error) {
	if err := s.Load(ctx); err != nil {
		return domain.Quiz{}, false, err
	}
	quiz, ok := s.Quiz(ctx, id)
	if !ok {
		return domain.Quiz{}, false, nil
	}
	next := domain.StatusPublished
	if quiz.Status == domain.StatusPublished {
		next = domain.StatusDraft
	}
	if next == domain.StatusPublished && confirm != nil &&
		!confirm.Confirm("This marks the quiz as published for authoring purposes only; learners will not see it yet. Continue?") {
		return quiz, true, nil
	}
	return s.UpdateQuiz(ctx, id, QuizPatch{Status: &next})
}

var unsafeFilenameChars = regexp.MustCompile(`(?i)[^a-z0-9]`)

// ExportFilename derives a download name from a quiz title.
func ExportFilename(title string) string {
	return strings.ToLower(unsafeFilenameChars.ReplaceAllString(title, "_")) + ".json"
}

// ExportQuiz renders the quiz as two-space indented JSON.
func (s *QuizStore) ExportQuiz(ctx context.Context, id string) (Export, bool, error) {
	if err := s.Load(ctx); err != nil {
		return Export{}, false, err
	}
	quiz, ok := s.Quiz(ctx, id)
	if !ok {
		return Export{}, false, nil
	}
	data, err := json.MarshalIndent(quiz, "", "  ")
	if err != nil {
		return Export{}, true, fmt.Errorf("encode quiz: %w", err)
	}
	return Export{Filename: ExportFilename(quiz.Title), Data: data}, true, nil
}

// ImportQuiz stores an exported quiz document as a new draft owned by the store's
// author. Documents without a title or a questions array fail with
// domain.ErrInvalidQuizFormat.
func (s *QuizStore) ImportQuiz(ctx context.Context, data []byte) (domain.Quiz, error) {
	parsed, err := decodeImport(data)
	if err != nil {
		return domain.Quiz{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return domain.Quiz{}, err
	}

	quiz := parsed.WithFreshIDs()
	quiz.TeacherID = s.authorID
	quiz.Status = domain.StatusDraft
	s.stamp(&quiz, true)

	if err := s.appendLocked(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.log.Info("quiz imported", "quizId", quiz.ID, "questions", len(quiz.Questions))
	return quiz.Clone(), nil
}

// Subscribe returns a channel receiving a snapshot after every saved change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizStore) Subscribe() (<-chan domain.QuizzesUpdated, func()) {
	ch := make(chan domain.QuizzesUpdated, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// ApplyRemote adopts a snapshot saved by another instance sharing the same repository
// and passes it on to local subscribers marked as remote. Nothing is written.
func (s *QuizStore) ApplyRemote(ctx context.Context, evt domain.QuizzesUpdated) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		s.log.Warn("applying remote quizzes before local load", "error", err)
	}

	next := make([]domain.Quiz, len(evt.Quizzes))
	for i := range evt.Quizzes {
		next[i] = evt.Quizzes[i].Clone()
	}
	s.quizzes = next
	s.publishLocked(domain.QuizzesUpdated{Quizzes: s.snapshotLocked(), UpdatedAt: evt.UpdatedAt, Remote: true})
}

func (s *QuizStore) stamp(q *domain.Quiz, created bool) {
	now := s.now().UTC()
	if created {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
}

func (s *QuizStore) indexLocked(id string) int {
	for i := range s.quizzes {
		if s.quizzes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *QuizStore) snapshotLocked() []domain.Quiz {
	out := make([]domain.Quiz, len(s.quizzes))
	for i := range s.quizzes {
		out[i] = s.quizzes[i].Clone()
	}
	return out
}

func (s *QuizStore) appendLocked(ctx context.Context, q domain.Quiz) error {
	return s.saveLocked(ctx, append(s.snapshotLocked(), q))
}

// saveLocked persists next and only then swaps it in, so a failed write leaves the
// in-memory collection untouched.
func (s *QuizStore) saveLocked(ctx context.Context, next []domain.Quiz) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}
	if err := s.repo.Put(ctx, QuizzesKey, data); err != nil {
		s.log.Error("saving quizzes failed", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrSaveFailed, err)
	}
	s.quizzes = next
	s.broadcastLocked()
	return nil
}

func (s *QuizStore) broadcastLocked() {
	s.publishLocked(domain.QuizzesUpdated{Quizzes: s.snapshotLocked(), UpdatedAt: s.now().UTC()})
}

func (s *QuizStore) publishLocked(evt domain.QuizzesUpdated) {
	for ch := range s.subscribers {
		select {
		case ch <- evt:
		default:
			// Replace the stale pending snapshot so slow subscribers never block saves.
			select {
			case <-ch:
			default:
			}
			ch <- evt
		}
	}
}
