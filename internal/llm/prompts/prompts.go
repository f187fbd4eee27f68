// Package prompts builds the system and user prompts handed to the
// generation backend. Templates live in embedded text files so prompt tuning
// never touches Go code.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"text/template"

	"github.com/kvexam/papergen/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	loadOnce     sync.Once
	loadErr      error
	systemPrompt string
	generateTmpl *template.Template
)

// generateData holds template data for the generation prompt.
type generateData struct {
	Class          int
	Subject        string
	Topics         string
	TotalQuestions int
	TotalMarks     int
	MCQCount       int
	MCQMarks       int
	ShortCount     int
	ShortMarks     int
	LongCount      int
	LongMarks      int
}

func load() error {
	loadOnce.Do(func() {
		sys, err := templateFS.ReadFile("templates/system.txt")
		if err != nil {
			loadErr = fmt.Errorf("read system prompt: %w", err)
			return
		}
		systemPrompt = string(sys)

		gen, err := templateFS.ReadFile("templates/generate.txt")
		if err != nil {
			loadErr = fmt.Errorf("read generate prompt: %w", err)
			return
		}
		generateTmpl, loadErr = template.New("generate").Parse(string(gen))
	})
	return loadErr
}

// System returns the fixed system instruction for paper generation.
func System() (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	return systemPrompt, nil
}

// Generation builds the user prompt for a specification.
func Generation(spec model.Specification) (string, error) {
	if err := load(); err != nil {
		return "", err
	}

	topics, err := json.Marshal(spec.SelectedTopics)
	if err != nil {
		return "", fmt.Errorf("marshal topics: %w", err)
	}

	s := spec.Structure
	data := generateData{
		Class:          spec.ClassLevel,
		Subject:        spec.Subject,
		Topics:         string(topics),
		TotalQuestions: s.TotalQuestions,
		TotalMarks:     s.TotalMarks,
		MCQCount:       s.MCQCount,
		MCQMarks:       s.MCQMarks,
		ShortCount:     s.ShortCount,
		ShortMarks:     s.ShortMarks,
		LongCount:      s.LongCount,
		LongMarks:      s.LongMarks,
	}

	var buf bytes.Buffer
	if err := generateTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute generate template: %w", err)
	}
	return buf.String(), nil
}
