package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ecoquest-quiz-service/internal/domain"
	"ecoquest-quiz-service/internal/editor"
)

// Step is a page of the quiz builder wizard.
type Step int

const (
	StepInfo      Step = 1
	StepQuestions Step = 2
	StepReview    Step = 3
)

// DefaultTimeLimitMinutes is preset on new quizzes.
const DefaultTimeLimitMinutes = 30

// ValidationErrors maps a stable field key (title, courseId, status, questions,
// question_{i}, question_{i}_type, question_{i}_options, question_{i}_correct) to a message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, v[k])
	}
	return domain.ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() error { return domain.ErrValidation }

// ValidateInfo checks the quiz details page.
func ValidateInfo(q domain.Quiz) ValidationErrors {
	errs := ValidationErrors{}
	if strings.TrimSpace(q.Title) == "" {
		errs["title"] = "Quiz title is required"
	}
	if q.CourseID == "" {
		errs["courseId"] = "Please select a course"
	}
	if q.Status != "" && !q.Status.Valid() {
		errs["status"] = fmt.Sprintf("Unknown status %q", q.Status)
	}
	return errs
}

// ValidateQuestions checks the questions page.
func ValidateQuestions(q domain.Quiz) ValidationErrors {
	errs := ValidationErrors{}
	if len(q.Questions) == 0 {
		errs["questions"] = "At least one question is required"
		return errs
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.Prompt) == "" {
			errs[fmt.Sprintf("question_%d", i)] = fmt.Sprintf("Question %d prompt is required", i+1)
		}
		if !question.Type.Valid() {
			errs[fmt.Sprintf("question_%d_type", i)] = fmt.Sprintf("Question %d has unknown type %q", i+1, question.Type)
			continue
		}
		if question.Type != domain.TypeMCQ && question.Type != domain.TypeMulti {
			continue
		}
		if len(question.Options) < editor.MinOptions {
			errs[fmt.Sprintf("question_%d_options", i)] = fmt.Sprintf("Question %d needs at least 2 options", i+1)
		}
		if len(question.CorrectOptionIDs()) == 0 {
			errs[fmt.Sprintf("question_%d_correct", i)] = fmt.Sprintf("Question %d needs at least one correct answer", i+1)
		}
	}
	return errs
}

// Validate runs both page validations and merges the results.
func Validate(q domain.Quiz) ValidationErrors {
	errs := ValidateInfo(q)
	for k, v := range ValidateQuestions(q) {
		errs[k] = v
	}
	return errs
}

// QuizSaver is the persistence the builder commits to.
type QuizSaver interface {
	CreateQuiz(ctx context.Context, data domain.Quiz) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, id string, patch QuizPatch) (domain.Quiz, bool, error)
}

// BuilderOptions wires the builder's collaborators.
type BuilderOptions struct {
	AuthorID  string
	Notifier  Notifier
	Confirmer Confirmer
}

// Builder is the three step Info → Questions → Review wizard. It owns an unsaved working
// copy of the quiz until Save commits it.
type Builder struct {
	saver     QuizSaver
	notifier  Notifier
	confirmer Confirmer
	authorID  string

	editingID string
	step      Step
	draft     domain.Quiz
	errs      ValidationErrors
	dirty     bool
}

// NewBuilder starts a wizard for a new quiz at the info step.
func NewBuilder(saver QuizSaver, opts BuilderOptions) *Builder {
	limit := DefaultTimeLimitMinutes
	b := newBuilder(saver, opts)
	b.step = StepInfo
	b.draft = domain.Quiz{
		Status:           domain.StatusDraft,
		TimeLimitMinutes: &limit,
		Questions:        []domain.Question{},
	}
	return b
}

// EditBuilder starts a wizard for an existing quiz at the questions step.
func EditBuilder(saver QuizSaver, quiz domain.Quiz, opts BuilderOptions) *Builder {
	b := newBuilder(saver, opts)
	b.step = StepQuestions
	b.editingID = quiz.ID
	b.draft = quiz.Clone()
	return b
}

func newBuilder(saver QuizSaver, opts BuilderOptions) *Builder {
	if opts.AuthorID == "" {
		opts.AuthorID = domain.DemoTeacherID
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	if opts.Confirmer == nil {
		opts.Confirmer = StaticConfirmer(true)
	}
	return &Builder{
		saver:     saver,
		notifier:  opts.Notifier,
		confirmer: opts.Confirmer,
		authorID:  opts.AuthorID,
		errs:      ValidationErrors{},
	}
}

func (b *Builder) Step() Step { return b.step }

// Editing reports whether the builder edits an already stored quiz.
func (b *Builder) Editing() bool { return b.editingID != "" }

// Draft returns a copy of the working quiz.
func (b *Builder) Draft() domain.Quiz { return b.draft.Clone() }

// Errors returns the messages of the last validation.
func (b *Builder) Errors() ValidationErrors {
	out := make(ValidationErrors, len(b.errs))
	for k, v := range b.errs {
		out[k] = v
	}
	return out
}

// Dirty reports whether there are unsaved changes.
func (b *Builder) Dirty() bool { return b.dirty }

func (b *Builder) touch(field string) {
	b.dirty = true
	delete(b.errs, field)
}

func (b *Builder) SetTitle(title string) {
	b.draft.Title = title
	b.touch("title")
}

func (b *Builder) SetDescription(description string) {
	b.draft.Description = description
	b.touch("description")
}

func (b *Builder) SetCourse(courseID string) {
	b.draft.CourseID = courseID
	b.touch("courseId")
}

func (b *Builder) SetTimeLimit(minutes int) {
	b.draft.TimeLimitMinutes = &minutes
	b.touch("timeLimitMinutes")
}

func (b *Builder) SetStatus(status domain.Status) {
	b.draft.Status = status
	b.touch("status")
}

// SetDraft replaces every editable field of the working copy with q's values. The
// stored identity (ID, timestamps) of an edited quiz is kept.
func (b *Builder) SetDraft(q domain.Quiz) {
	next := q.Clone()
	next.ID = b.draft.ID
	next.TeacherID = b.draft.TeacherID
	next.CreatedAt = b.draft.CreatedAt
	next.UpdatedAt = b.draft.UpdatedAt
	if next.Status == "" {
		next.Status = domain.StatusDraft
	}
	if next.Questions == nil {
		next.Questions = []domain.Question{}
	}
	b.draft = next
	b.dirty = true
	b.errs = ValidationErrors{}
}

// EditQuestions applies an editor operation to the working question list.
func (b *Builder) EditQuestions(op func([]domain.Question) []domain.Question) {
	b.draft.Questions = op(b.draft.Questions)
	b.touch("questions")
}

// AddQuestion appends a blank question and returns its ID.
func (b *Builder) AddQuestion() string {
	var id string
	b.EditQuestions(func(qs []domain.Question) []domain.Question {
		var out []domain.Question
		out, id = editor.AddQuestion(qs)
		return out
	})
	return id
}

// DeleteQuestion removes a question after the author confirms.
func (b *Builder) DeleteQuestion(id string) bool {
	if !b.confirmer.Confirm("Are you sure you want to delete this question?") {
		return false
	}
	b.EditQuestions(func(qs []domain.Question) []domain.Question {
		return editor.DeleteQuestion(qs, id)
	})
	return true
}

// ValidateStep validates a single page and records its errors.
func (b *Builder) ValidateStep(step Step) bool {
	switch step {
	case StepInfo:
		b.errs = ValidateInfo(b.draft)
	case StepQuestions:
		b.errs = ValidateQuestions(b.draft)
	default:
		b.errs = ValidationErrors{}
	}
	return len(b.errs) == 0
}

// Next advances one step when the current step validates.
func (b *Builder) Next() bool {
	if !b.ValidateStep(b.step) {
		return false
	}
	if b.step < StepReview {
		b.step++
	}
	return true
}

// Previous goes back one step without validation.
func (b *Builder) Previous() {
	if b.step > StepInfo {
		b.step--
	}
}

// Save validates the whole quiz and creates or updates it. Validation failures are
// returned as ValidationErrors and nothing is written; the working copy survives any
// failure so the author can retry.
func (b *Builder) Save(ctx context.Context) (domain.Quiz, error) {
	b.errs = Validate(b.draft)
	if len(b.errs) > 0 {
		b.notifier.Notify(Notification{
			Title:       "Validation Error",
			Description: "Please fix all errors before saving.",
			Variant:     VariantDestructive,
		})
		return domain.Quiz{}, b.Errors()
	}

	data := b.draft.Clone()
	data.TeacherID = b.authorID

	var (
		saved domain.Quiz
		err   error
	)
	if b.Editing() {
		var found bool
		saved, found, err = b.saver.UpdateQuiz(ctx, b.editingID, FullPatch(data))
		if err == nil && !found {
			err = domain.ErrQuizNotFound
		}
	} else {
		saved, err = b.saver.CreateQuiz(ctx, data)
	}
	if err != nil {
		b.notifier.Notify(Notification{
			Title:       "Error",
			Description: "Failed to save quiz. Please try again.",
			Variant:     VariantDestructive,
		})
		return domain.Quiz{}, err
	}

	verb := "created"
	if b.Editing() {
		verb = "updated"
	}
	b.notifier.Notify(Notification{
		Title:       "Quiz " + strings.ToUpper(verb[:1]) + verb[1:],
		Description: fmt.Sprintf("%q has been %s successfully.", saved.Title, verb),
		Variant:     VariantDefault,
	})
	b.dirty = false
	b.editingID = saved.ID
	b.draft = saved.Clone()
	return saved, nil
}

// Close reports whether the wizard may close, asking for confirmation when there are
// unsaved changes.
func (b *Builder) Close() bool {
	if !b.dirty {
		return true
	}
	return b.confirmer.Confirm("You have unsaved changes. Are you sure you want to close?")
}

// IsValidationError reports whether err came from builder validation.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
