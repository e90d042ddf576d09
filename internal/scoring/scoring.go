// Package scoring grades a learner's answers against a quiz definition.
package scoring

import (
	"math"
	"strings"

	"ecoquest-quiz-service/internal/domain"
)

// Outcome classifies a graded question for review screens.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomePartial   Outcome = "partial"
	OutcomeIncorrect Outcome = "incorrect"
)

// QuestionResult is the grading outcome of a single question.
type QuestionResult struct {
	QuestionID string  `json:"questionId"`
	Answered   bool    `json:"answered"`
	Awarded    float64 `json:"awarded"`
	MaxPoints  int     `json:"maxPoints"`
	Outcome    Outcome `json:"outcome"`
}

// Result aggregates a quiz attempt. EarnedPoints is rounded to two decimals and
// Percentage to the nearest integer; an empty quiz scores 0%.
type Result struct {
	TotalPoints  int              `json:"totalPoints"`
	EarnedPoints float64          `json:"earnedPoints"`
	Percentage   int              `json:"percentage"`
	Questions    []QuestionResult `json:"questions"`
}

type grader func(q domain.Question, answer domain.Answer) (float64, Outcome)

var graders = map[domain.QuestionType]grader{
	domain.TypeMCQ:       gradeSingle,
	domain.TypeTrueFalse: gradeSingle,
	domain.TypeMulti:     gradeMulti,
	domain.TypeShort:     gradeShort,
}

// Score grades every question of the quiz. Only the first answer submitted for a
// question counts; questions without an answer score zero but still count towards
// TotalPoints.
func Score(quiz domain.Quiz, answers []domain.Answer) Result {
	byQuestion := make(map[string]domain.Answer, len(answers))
	for _, a := range answers {
		if _, ok := byQuestion[a.QuestionID]; !ok {
			byQuestion[a.QuestionID] = a
		}
	}

	res := Result{TotalPoints: quiz.TotalPoints(), Questions: make([]QuestionResult, 0, len(quiz.Questions))}
	earned := 0.0
	for _, q := range quiz.Questions {
		var qr QuestionResult
		if a, ok := byQuestion[q.ID]; ok {
			qr = GradeQuestion(q, &a)
		} else {
			qr = GradeQuestion(q, nil)
		}
		earned += qr.Awarded
		res.Questions = append(res.Questions, qr)
	}

	res.EarnedPoints = math.Round(earned*100) / 100
	if res.TotalPoints > 0 {
		res.Percentage = int(math.Floor(earned/float64(res.TotalPoints)*100 + 0.5))
	}
	return res
}

// GradeQuestion grades one question. A nil answer means the question was skipped.
func GradeQuestion(q domain.Question, answer *domain.Answer) QuestionResult {
	qr := QuestionResult{QuestionID: q.ID, MaxPoints: q.Points, Outcome: OutcomeIncorrect}
	if answer == nil {
		return qr
	}
	qr.Answered = true
	g, ok := graders[q.Type]
	if !ok {
		return qr
	}
	qr.Awarded, qr.Outcome = g(q, *answer)
	return qr
}

// gradeShort awards full points for a trimmed, case-insensitive exact match.
func gradeShort(q domain.Question, answer domain.Answer) (float64, Outcome) {
	if q.ExpectedAnswer == "" {
		return 0, OutcomeIncorrect
	}
	if normalize(answer.TextAnswer) == normalize(q.ExpectedAnswer) {
		return float64(q.Points), OutcomeCorrect
	}
	return 0, OutcomeIncorrect
}

// gradeSingle requires exactly one selection and that it is a correct option.
func gradeSingle(q domain.Question, answer domain.Answer) (float64, Outcome) {
	if len(answer.SelectedOptions) != 1 {
		return 0, OutcomeIncorrect
	}
	if _, ok := toSet(q.CorrectOptionIDs())[answer.SelectedOptions[0]]; ok {
		return float64(q.Points), OutcomeCorrect
	}
	return 0, OutcomeIncorrect
}

// gradeMulti gives proportional credit for correct selections. Any incorrect
// selection zeroes the question.
func gradeMulti(q domain.Question, answer domain.Answer) (float64, Outcome) {
	correct := toSet(q.CorrectOptionIDs())
	selected := toSet(answer.SelectedOptions)

	hits := 0
	for id := range selected {
		if _, ok := correct[id]; !ok {
			return 0, OutcomeIncorrect
		}
		hits++
	}
	if hits == 0 || len(correct) == 0 {
		return 0, OutcomeIncorrect
	}
	if hits == len(correct) {
		return float64(q.Points), OutcomeCorrect
	}
	return float64(q.Points*hits) / float64(len(correct)), OutcomePartial
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
