// Package lesson reads lesson documents: a JSON lesson with its quiz, checked
// against an embedded JSON schema before it is decoded.
package lesson

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"course-quiz/internal/quiz"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return schema, schemaErr
}

// SchemaError lists every schema violation found in a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "lesson document is invalid: " + strings.Join(e.Problems, "; ")
}

// Parse validates and decodes one lesson document.
func Parse(data []byte) (quiz.Lesson, error) {
	s, err := loadSchema()
	if err != nil {
		return quiz.Lesson{}, errors.Wrap(err, "load lesson schema")
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return quiz.Lesson{}, errors.Wrap(err, "decode lesson document")
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, problem := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", problem.Field(), problem.Description()))
		}
		return quiz.Lesson{}, &SchemaError{Problems: problems}
	}

	var lesson quiz.Lesson
	if err := json.Unmarshal(data, &lesson); err != nil {
		return quiz.Lesson{}, errors.Wrap(err, "decode lesson document")
	}
	if err := lesson.Quiz.Validate(); err != nil {
		return quiz.Lesson{}, err
	}
	return lesson, nil
}

// Marshal renders a lesson document that Parse accepts.
func Marshal(lesson quiz.Lesson) ([]byte, error) {
	data, err := json.MarshalIndent(lesson, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "encode lesson %s", lesson.ID)
	}
	return append(data, '\n'), nil
}

func LoadFile(path string) (quiz.Lesson, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return quiz.Lesson{}, errors.Wrapf(err, "read %s", path)
	}
	lesson, err := Parse(data)
	if err != nil {
		return quiz.Lesson{}, errors.Wrapf(err, "parse %s", path)
	}
	return lesson, nil
}

// LoadDir loads every *.json file in dir in name order.
func LoadDir(dir string) ([]quiz.Lesson, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	sort.Strings(paths)

	lessons := make([]quiz.Lesson, 0, len(paths))
	for _, path := range paths {
		lesson, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}
