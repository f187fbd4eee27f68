package llm

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/kvexam/papergen/internal/model"
)

// placeholderTopic tags mock questions when no topics are selected.
const placeholderTopic = "General"

// MockGenerator synthesizes a structurally valid paper from the specification
// alone. It backs the wizard when no live endpoint is configured, keeping the
// whole pipeline exercisable offline. Output is deterministic.
type MockGenerator struct{}

// NewMock creates the offline generator.
func NewMock() *MockGenerator {
	return &MockGenerator{}
}

// Generate builds mcqCount MCQ, shortCount SHORT and longCount LONG questions
// in that order, ids Q1..Qn, cycling through the selected topics. Every
// question gets an answer-key entry with the same id and marks.
func (m *MockGenerator) Generate(_ context.Context, spec model.Specification) (*model.Paper, error) {
	s := spec.Structure
	paper := &model.Paper{
		Meta: model.PaperMeta{
			Class:          strconv.Itoa(spec.ClassLevel),
			Subject:        spec.Subject,
			Topics:         slices.Clone(spec.SelectedTopics),
			TotalQuestions: s.TotalQuestions,
			TotalMarks:     s.TotalMarks,
		},
	}

	counter := 0
	topicFor := func(i int) string {
		if len(spec.SelectedTopics) == 0 {
			return placeholderTopic
		}
		return spec.SelectedTopics[i%len(spec.SelectedTopics)]
	}
	add := func(q model.Question, answer string) {
		paper.Questions = append(paper.Questions, q)
		paper.AnswerKey = append(paper.AnswerKey, model.AnswerKeyItem{
			ID: q.ID, Answer: answer, Marks: q.Marks,
		})
	}

	for i := 0; i < s.MCQCount; i++ {
		counter++
		topic := topicFor(i)
		add(model.Question{
			ID:            "Q" + strconv.Itoa(counter),
			Type:          model.TypeMCQ,
			Marks:         s.MCQMarks,
			Difficulty:    model.DifficultyEasy,
			Topic:         topic,
			QuestionText:  fmt.Sprintf("This is a mock MCQ question %d on the topic of %s. What is the correct option?", counter, topic),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: "B",
			Solution:      "This is the explanation for why B is correct.",
		}, "B")
	}
	for i := 0; i < s.ShortCount; i++ {
		counter++
		topic := topicFor(i)
		add(model.Question{
			ID:            "Q" + strconv.Itoa(counter),
			Type:          model.TypeShort,
			Marks:         s.ShortMarks,
			Difficulty:    model.DifficultyMedium,
			Topic:         topic,
			QuestionText:  fmt.Sprintf("This is a mock SHORT answer question %d on %s. Explain the concept.", counter, topic),
			CorrectAnswer: "This is the correct short answer.",
			Solution:      "This is a step-by-step solution.",
		}, "This is the correct short answer.")
	}
	for i := 0; i < s.LongCount; i++ {
		counter++
		topic := topicFor(i)
		add(model.Question{
			ID:            "Q" + strconv.Itoa(counter),
			Type:          model.TypeLong,
			Marks:         s.LongMarks,
			Difficulty:    model.DifficultyHard,
			Topic:         topic,
			QuestionText:  fmt.Sprintf("This is a mock LONG answer question %d on %s. Elaborate in detail.", counter, topic),
			CorrectAnswer: "This is the detailed correct answer for the long question.",
			Solution:      "Here is a full solution for the long question, explaining all the steps involved.",
		}, "This is the detailed correct answer for the long question.")
	}

	return paper, nil
}
