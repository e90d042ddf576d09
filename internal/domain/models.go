package domain

import "time"

// QuestionType selects how a question is answered and graded.
type QuestionType string

const (
	// TypeMCQ has a single correct option.
	TypeMCQ QuestionType = "mcq"
	// TypeMulti has one or more correct options and earns partial credit.
	TypeMulti QuestionType = "multi"
	// TypeTrueFalse has exactly the fixed True/False option pair.
	TypeTrueFalse QuestionType = "truefalse"
	// TypeShort is answered with free text and graded against ExpectedAnswer.
	TypeShort QuestionType = "short"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMCQ, TypeMulti, TypeTrueFalse, TypeShort:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == TypeMCQ || t == TypeMulti || t == TypeTrueFalse
}

// SingleAnswer reports whether exactly one option may be correct.
func (t QuestionType) SingleAnswer() bool {
	return t == TypeMCQ || t == TypeTrueFalse
}

// Status is the authoring state of a quiz.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// DefaultPoints is the point value given to new questions.
const DefaultPoints = 5

// Option is a selectable answer of a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is a single gradable item. Options are present for every type except short;
// ExpectedAnswer is only meaningful for short questions.
type Question struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Prompt         string       `json:"prompt"`
	Options        []Option     `json:"options,omitempty"`
	Points         int          `json:"points"`
	Explanation    string       `json:"explanation,omitempty"`
	ExpectedAnswer string       `json:"expectedAnswer,omitempty"`
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	if q.Options != nil {
		q.Options = append([]Option(nil), q.Options...)
	}
	return q
}

// WithFreshIDs returns a deep copy whose question and option IDs are newly generated.
func (q Question) WithFreshIDs() Question {
	out := q.Clone()
	out.ID = GenerateID("q")
	for i := range out.Options {
		out.Options[i].ID = GenerateID("o")
	}
	return out
}

// Normalize drops the fields a question type does not carry: options on short
// questions and the expected answer on option based ones.
func (q Question) Normalize() Question {
	out := q.Clone()
	if out.Type.HasOptions() {
		out.ExpectedAnswer = ""
	} else {
		out.Options = nil
	}
	return out
}

// CorrectOptionIDs returns the IDs of options marked correct, in option order.
func (q Question) CorrectOptionIDs() []string {
	var ids []string
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// OptionIndex returns the position of the option with the given ID, or -1.
func (q Question) OptionIndex(optionID string) int {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return i
		}
	}
	return -1
}

// Quiz is an authored assessment bound to a course.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	CourseID         string     `json:"courseId"`
	TeacherID        string     `json:"teacherId"`
	Status           Status     `json:"status"`
	TimeLimitMinutes *int       `json:"timeLimitMinutes,omitempty"`
	Questions        []Question `json:"questions"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy of the quiz.
func (q Quiz) Clone() Quiz {
	if q.TimeLimitMinutes != nil {
		limit := *q.TimeLimitMinutes
		q.TimeLimitMinutes = &limit
	}
	if q.Questions != nil {
		questions := make([]Question, len(q.Questions))
		for i := range q.Questions {
			questions[i] = q.Questions[i].Clone()
		}
		q.Questions = questions
	}
	return q
}

// WithFreshIDs returns a deep copy with a new quiz ID and regenerated question and option IDs.
func (q Quiz) WithFreshIDs() Quiz {
	out := q.Clone()
	out.ID = GenerateID("quiz")
	for i := range out.Questions {
		out.Questions[i] = out.Questions[i].WithFreshIDs()
	}
	return out
}

// TotalPoints sums the points of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Question returns the question with the given ID.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Course is a read-only reference entity quizzes are attached to.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Answer is a learner's response to one question. SelectedOptions is used by option
// types and TextAnswer by short questions.
type Answer struct {
	QuestionID      string   `json:"questionId"`
	SelectedOptions []string `json:"selectedOptions,omitempty"`
	TextAnswer      string   `json:"textAnswer,omitempty"`
}

// QuizzesUpdated is the snapshot delivered to subscribers after the quiz collection is saved.
type QuizzesUpdated struct {
	Quizzes   []Quiz    `json:"quizzes"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Remote marks snapshots received from another instance.
	Remote bool `json:"-"`
}
