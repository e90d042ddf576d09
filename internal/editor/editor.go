// Package editor implements the question list operations of the quiz builder.
//
// Every function is a pure transformation: the input slice is never modified and a
// fresh slice is returned. Operations on unknown question or option IDs, and edits
// that would break authoring limits, return an unchanged copy.
package editor

import "ecoquest-quiz-service/internal/domain"

const (
	// MinOptions is the floor kept by DeleteOption.
	MinOptions = 2
	// MaxOptions is the cap enforced by AddOption.
	MaxOptions = 6
)

// Direction moves a question towards the start (Up) or end (Down) of the list.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// QuestionPatch carries the fields to merge into a question; nil fields are left as is.
// A Type change is applied first, through ChangeType, so explicit Options in the same
// patch win over the reset.
type QuestionPatch struct {
	Type           *domain.QuestionType `json:"type,omitempty"`
	Prompt         *string              `json:"prompt,omitempty"`
	Options        *[]domain.Option     `json:"options,omitempty"`
	Points         *int                 `json:"points,omitempty"`
	Explanation    *string              `json:"explanation,omitempty"`
	ExpectedAnswer *string              `json:"expectedAnswer,omitempty"`
}

// OptionPatch carries the option fields to merge.
type OptionPatch struct {
	Text    *string `json:"text,omitempty"`
	Correct *bool   `json:"correct,omitempty"`
}

// NewQuestion returns an empty mcq question with two blank options.
func NewQuestion() domain.Question {
	return domain.Question{
		ID:      domain.GenerateID("q"),
		Type:    domain.TypeMCQ,
		Options: blankOptions(),
		Points:  domain.DefaultPoints,
	}
}

// AddQuestion appends a new mcq question and returns the list and the new question ID.
func AddQuestion(questions []domain.Question) ([]domain.Question, string) {
	q := NewQuestion()
	return append(cloneList(questions), q), q.ID
}

// UpdateQuestion merges patch into the question with the given ID.
func UpdateQuestion(questions []domain.Question, id string, patch QuestionPatch) []domain.Question {
	return mapQuestion(questions, id, func(q domain.Question) domain.Question {
		if patch.Type != nil {
			q = ChangeType(q, *patch.Type)
		}
		if patch.Prompt != nil {
			q.Prompt = *patch.Prompt
		}
		if patch.Options != nil {
			q.Options = append([]domain.Option(nil), (*patch.Options)...)
		}
		if patch.Points != nil {
			q.Points = *patch.Points
		}
		if patch.Explanation != nil {
			q.Explanation = *patch.Explanation
		}
		if patch.ExpectedAnswer != nil {
			q.ExpectedAnswer = *patch.ExpectedAnswer
		}
		return q
	})
}

// DeleteQuestion removes the question. Asking the author for confirmation is up to the caller.
func DeleteQuestion(questions []domain.Question, id string) []domain.Question {
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.ID != id {
			out = append(out, q.Clone())
		}
	}
	return out
}

// DuplicateQuestion inserts a copy with fresh IDs right after the original and returns
// the copy's ID, or "" when the question does not exist.
func DuplicateQuestion(questions []domain.Question, id string) ([]domain.Question, string) {
	idx := indexOf(questions, id)
	if idx < 0 {
		return cloneList(questions), ""
	}
	dup := questions[idx].WithFreshIDs()
	dup.Prompt += " (Copy)"

	out := make([]domain.Question, 0, len(questions)+1)
	out = append(out, cloneList(questions[:idx+1])...)
	out = append(out, dup)
	out = append(out, cloneList(questions[idx+1:])...)
	return out, dup.ID
}

// MoveQuestion swaps the question with its neighbour; moving past either end is a no-op.
func MoveQuestion(questions []domain.Question, id string, dir Direction) []domain.Question {
	out := cloneList(questions)
	idx := indexOf(out, id)
	if idx < 0 {
		return out
	}
	target := idx + 1
	if dir == Up {
		target = idx - 1
	}
	if target < 0 || target >= len(out) {
		return out
	}
	out[idx], out[target] = out[target], out[idx]
	return out
}

// AddOption appends a blank option. Short and true/false questions are left alone, as is
// a question that already has MaxOptions options.
func AddOption(questions []domain.Question, questionID string) []domain.Question {
	return mapQuestion(questions, questionID, func(q domain.Question) domain.Question {
		if q.Type == domain.TypeTrueFalse || q.Options == nil || len(q.Options) >= MaxOptions {
			return q
		}
		q.Options = append(q.Options, blankOption())
		return q
	})
}

// UpdateOption merges patch into one option. The fixed True/False labels cannot be edited.
func UpdateOption(questions []domain.Question, questionID, optionID string, patch OptionPatch) []domain.Question {
	return mapQuestion(questions, questionID, func(q domain.Question) domain.Question {
		i := q.OptionIndex(optionID)
		if i < 0 {
			return q
		}
		if patch.Text != nil && q.Type != domain.TypeTrueFalse {
			q.Options[i].Text = *patch.Text
		}
		if patch.Correct != nil {
			q.Options[i].Correct = *patch.Correct
		}
		return q
	})
}

// DeleteOption removes an option unless that would leave fewer than MinOptions.
func DeleteOption(questions []domain.Question, questionID, optionID string) []domain.Question {
	return mapQuestion(questions, questionID, func(q domain.Question) domain.Question {
		if q.Type == domain.TypeTrueFalse || len(q.Options) <= MinOptions {
			return q
		}
		i := q.OptionIndex(optionID)
		if i < 0 {
			return q
		}
		q.Options = append(q.Options[:i:i], q.Options[i+1:]...)
		return q
	})
}

// SetCorrectOption marks an option correct. With isMultiSelect the option's flag is
// toggled independently; otherwise it becomes the only correct option.
func SetCorrectOption(questions []domain.Question, questionID, optionID string, isMultiSelect bool) []domain.Question {
	return mapQuestion(questions, questionID, func(q domain.Question) domain.Question {
		i := q.OptionIndex(optionID)
		if i < 0 {
			return q
		}
		if isMultiSelect {
			q.Options[i].Correct = !q.Options[i].Correct
			return q
		}
		for j := range q.Options {
			q.Options[j].Correct = j == i
		}
		return q
	})
}

// ChangeType converts a question to another type:
//   - truefalse gets a fresh, unmarked True/False pair
//   - short drops its options and starts with an empty expected answer
//   - mcq and multi keep existing options when there are at least two, otherwise
//     start from two blank options
func ChangeType(q domain.Question, to domain.QuestionType) domain.Question {
	out := q.Clone()
	if out.Type == to {
		return out
	}
	out.Type = to
	switch to {
	case domain.TypeTrueFalse:
		out.Options = []domain.Option{
			{ID: domain.GenerateID("o"), Text: "True"},
			{ID: domain.GenerateID("o"), Text: "False"},
		}
		out.ExpectedAnswer = ""
	case domain.TypeShort:
		out.Options = nil
		out.ExpectedAnswer = ""
	default:
		if len(out.Options) < MinOptions {
			out.Options = blankOptions()
		}
		out.ExpectedAnswer = ""
	}
	return out
}

func blankOption() domain.Option {
	return domain.Option{ID: domain.GenerateID("o")}
}

func blankOptions() []domain.Option {
	return []domain.Option{blankOption(), blankOption()}
}

func indexOf(questions []domain.Question, id string) int {
	for i := range questions {
		if questions[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneList(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i := range questions {
		out[i] = questions[i].Clone()
	}
	return out
}

func mapQuestion(questions []domain.Question, id string, fn func(domain.Question) domain.Question) []domain.Question {
	out := cloneList(questions)
	if i := indexOf(out, id); i >= 0 {
		out[i] = fn(out[i])
	}
	return out
}
