package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"ecoquest-quiz-service/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

// importSchema is the minimum shape an imported quiz document must have.
const importSchema = `{
  "type": "object",
  "required": ["title", "questions"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "status": {"enum": ["draft", "published"]},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"enum": ["mcq", "multi", "truefalse", "short"]}
        }
      }
    }
  }
}`

var importValidator = mustSchema(importSchema)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return schema
}

// decodeImport checks data against importSchema and decodes it.
func decodeImport(data []byte) (domain.Quiz, error) {
	result, err := importValidator.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuizFormat, err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuizFormat, strings.Join(reasons, "; "))
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuizFormat, err)
	}
	for i := range quiz.Questions {
		quiz.Questions[i] = quiz.Questions[i].Normalize()
	}
	return quiz, nil
}
