package prompts

import (
	"strings"
	"testing"

	"github.com/kvexam/papergen/internal/model"
)

func TestGenerationPrompt(t *testing.T) {
	spec := model.Specification{
		ClassLevel:     10,
		Subject:        "Science",
		SelectedTopics: []string{"Life Processes", "Electricity"},
		Structure: model.Structure{
			TotalQuestions: 10, TotalMarks: 21,
			MCQCount: 5, MCQMarks: 1,
			ShortCount: 3, ShortMarks: 2,
			LongCount: 2, LongMarks: 5,
		},
	}

	prompt, err := Generation(spec)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}

	for _, want := range []string{
		"Class 10 Science",
		`["Life Processes","Electricity"]`,
		"Total Questions: 10",
		"Total Marks: 21",
		"5 MCQs of 1 marks each",
		"3 Short Answer questions of 2 marks each",
		"2 Long Answer questions of 5 marks each",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	sys, err := System()
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if !strings.Contains(sys, "exactly 4 distinct options") {
		t.Error("system prompt should pin the MCQ option count")
	}
	if !strings.Contains(sys, `"answer_key"`) {
		t.Error("system prompt should describe the answer_key schema")
	}
}
