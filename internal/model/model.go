package model

import "time"

// QuestionType classifies a question by its answer format.
type QuestionType string

const (
	TypeMCQ     QuestionType = "MCQ"
	TypeShort   QuestionType = "SHORT"
	TypeLong    QuestionType = "LONG"
	TypeNumeric QuestionType = "NUMERIC"
)

// ValidQuestionType reports whether s is one of the wire question types.
func ValidQuestionType(s string) bool {
	switch QuestionType(s) {
	case TypeMCQ, TypeShort, TypeLong, TypeNumeric:
		return true
	}
	return false
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Question is a single exam question. Options are present (exactly four)
// only for MCQ questions.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Marks         int          `json:"marks"`
	Difficulty    Difficulty   `json:"difficulty"`
	Topic         string       `json:"topic"`
	QuestionText  string       `json:"question_text"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Solution      string       `json:"solution,omitempty"`
}

// AnswerKeyItem is the answer-key entry paired with the question of the same ID.
type AnswerKeyItem struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
	Marks  int    `json:"marks"`
}

// PaperMeta echoes the specification a paper was generated from.
type PaperMeta struct {
	Class          string   `json:"class"`
	Subject        string   `json:"subject"`
	Topics         []string `json:"topics"`
	TotalQuestions int      `json:"total_questions"`
	TotalMarks     int      `json:"total_marks"`
}

// Paper is the generated content: ordered questions plus a parallel answer key.
// The two sequences are related by question ID and must only be mutated
// through builder operations that keep them consistent.
type Paper struct {
	Meta      PaperMeta       `json:"paper_meta"`
	Questions []Question      `json:"questions"`
	AnswerKey []AnswerKeyItem `json:"answer_key"`
}

// Structure holds the per-category question counts and marks defining the
// paper shape. TotalQuestions and TotalMarks are derived fields, rewritten by
// the builder on every structure change.
type Structure struct {
	TotalQuestions int `json:"total_questions"`
	TotalMarks     int `json:"total_marks"`
	MCQCount       int `json:"mcq_count"`
	MCQMarks       int `json:"mcq_marks"`
	ShortCount     int `json:"short_count"`
	ShortMarks     int `json:"short_marks"`
	LongCount      int `json:"long_count"`
	LongMarks      int `json:"long_marks"`
}

// Branding is the presentational header/footer metadata for the rendered
// document. TotalMarks is a cached string copy of the structure total, kept in
// sync by the builder.
type Branding struct {
	SchoolName string `json:"school_name"`
	LogoRef    string `json:"logo_ref,omitempty"`
	ExamName   string `json:"exam_name"`
	Date       string `json:"date"`
	Duration   string `json:"duration"`
	TotalMarks string `json:"total_marks"`
	FooterNote string `json:"footer_note"`
}

// Specification is the user-configured exam setup collected by the wizard.
type Specification struct {
	ClassLevel     int       `json:"class_level"`
	Subject        string    `json:"subject"`
	SelectedTopics []string  `json:"selected_topics"`
	Structure      Structure `json:"structure"`
	Branding       Branding  `json:"branding"`
}

// DefaultSpecification returns the specification a fresh wizard session
// starts from. Derived totals are filled in by the builder on construction.
func DefaultSpecification() Specification {
	return Specification{
		ClassLevel:     10,
		Subject:        "Mathematics",
		SelectedTopics: nil,
		Structure: Structure{
			MCQCount:   5,
			MCQMarks:   1,
			ShortCount: 3,
			ShortMarks: 2,
			LongCount:  2,
			LongMarks:  5,
		},
		Branding: Branding{
			SchoolName: "Kendriya Vidyalaya",
			ExamName:   "Mid-Term Examination",
			Date:       time.Now().Format("2006-01-02"),
			Duration:   "90 Minutes",
			FooterNote: "All questions are compulsory.",
		},
	}
}
