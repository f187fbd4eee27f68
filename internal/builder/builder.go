// Package builder owns a single wizard session's exam specification and its
// generated paper. All mutations go through Builder methods so derived fields
// (question/mark totals, the branding total-marks string) stay in sync and the
// question/answer-key sequences never drift apart.
package builder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kvexam/papergen/internal/model"
	"github.com/kvexam/papergen/internal/syllabus"
)

var (
	// ErrValidationBlocked means the structure totals (or topic selection) do
	// not permit generation yet.
	ErrValidationBlocked = errors.New("structure must have at least one question, a non-zero mark total, and a selected topic")
	// ErrGenerationInFlight means a generation call is outstanding and the
	// specification is locked against edits.
	ErrGenerationInFlight = errors.New("generation in progress")
	// ErrNoPaper means an edit was attempted before any paper was generated.
	ErrNoPaper = errors.New("no generated paper")
)

// Generator produces a complete paper from a specification, or fails.
// It is satisfied by both the live LLM client and the offline mock.
type Generator interface {
	Generate(ctx context.Context, spec model.Specification) (*model.Paper, error)
}

// Builder is the session-scoped aggregate for one paper in the making.
// It is not safe for concurrent use; callers serialize access per session.
type Builder struct {
	spec       model.Specification
	paper      *model.Paper
	generating bool
}

// New returns a Builder initialized with the default specification and its
// derived totals filled in.
func New() *Builder {
	b := &Builder{spec: model.DefaultSpecification()}
	b.recompute()
	return b
}

// Reset discards everything and returns the session to the defaults,
// implementing "start new paper".
func (b *Builder) Reset() error {
	if b.generating {
		return ErrGenerationInFlight
	}
	b.spec = model.DefaultSpecification()
	b.paper = nil
	b.recompute()
	return nil
}

// Spec returns a copy of the current specification.
func (b *Builder) Spec() model.Specification {
	spec := b.spec
	spec.SelectedTopics = slices.Clone(b.spec.SelectedTopics)
	return spec
}

// Paper returns a copy of the generated paper, or nil if none exists yet.
// The copy keeps callers from mutating the question/answer-key sequences
// behind the builder's back.
func (b *Builder) Paper() *model.Paper {
	if b.paper == nil {
		return nil
	}
	return clonePaper(b.paper)
}

// HasPaper reports whether generation has succeeded for this session.
func (b *Builder) HasPaper() bool {
	return b.paper != nil
}

// SetClass changes the class level. The subject falls back to the first
// subject valid for the new class and the topic selection is cleared, since
// the old selection belongs to a different topic universe.
func (b *Builder) SetClass(class int) error {
	if b.generating {
		return ErrGenerationInFlight
	}
	if !syllabus.ValidClass(class) {
		return fmt.Errorf("unknown class level %d", class)
	}
	if class == b.spec.ClassLevel {
		return nil
	}
	b.spec.ClassLevel = class
	b.spec.Subject = syllabus.FirstSubject(class)
	b.spec.SelectedTopics = nil
	return nil
}

// SetSubject changes the subject within the current class and clears the
// topic selection.
func (b *Builder) SetSubject(subject string) error {
	if b.generating {
		return ErrGenerationInFlight
	}
	if !syllabus.ValidSubject(b.spec.ClassLevel, subject) {
		return fmt.Errorf("subject %q is not offered for class %d", subject, b.spec.ClassLevel)
	}
	if subject == b.spec.Subject {
		return nil
	}
	b.spec.Subject = subject
	b.spec.SelectedTopics = nil
	return nil
}

// AvailableTopics returns the full syllabus topic list for the current
// class/subject pair.
func (b *Builder) AvailableTopics() []string {
	return syllabus.Topics(b.spec.ClassLevel, b.spec.Subject)
}

// ToggleTopic adds the topic to the selection if absent, removes it if
// present. It reports whether the topic is selected afterwards.
func (b *Builder) ToggleTopic(topic string) (bool, error) {
	if b.generating {
		return false, ErrGenerationInFlight
	}
	if !syllabus.ValidTopic(b.spec.ClassLevel, b.spec.Subject, topic) {
		return false, fmt.Errorf("topic %q is not in the class %d %s syllabus", topic, b.spec.ClassLevel, b.spec.Subject)
	}
	if i := slices.Index(b.spec.SelectedTopics, topic); i >= 0 {
		b.spec.SelectedTopics = slices.Delete(b.spec.SelectedTopics, i, i+1)
		return false, nil
	}
	b.spec.SelectedTopics = append(b.spec.SelectedTopics, topic)
	return true, nil
}

// ToggleAllTopics selects the full topic list, unless everything is already
// selected, in which case it clears the selection. It returns the new
// selection size.
func (b *Builder) ToggleAllTopics() (int, error) {
	if b.generating {
		return 0, ErrGenerationInFlight
	}
	all := b.AvailableTopics()
	if len(b.spec.SelectedTopics) == len(all) {
		b.spec.SelectedTopics = nil
		return 0, nil
	}
	b.spec.SelectedTopics = all
	return len(all), nil
}

// FilterTopics returns the available topics whose names contain the query,
// case-insensitively. It is a read-side projection and never touches the
// selection.
func (b *Builder) FilterTopics(query string) []string {
	all := b.AvailableTopics()
	if query == "" {
		return all
	}
	q := strings.ToLower(query)
	var out []string
	for _, t := range all {
		if strings.Contains(strings.ToLower(t), q) {
			out = append(out, t)
		}
	}
	return out
}

// SetStructure replaces the per-category counts and marks. Negative values
// are coerced to zero. The question and mark totals, and the branding
// total-marks string, are rederived; any totals supplied by the caller are
// ignored.
func (b *Builder) SetStructure(s model.Structure) error {
	if b.generating {
		return ErrGenerationInFlight
	}
	b.spec.Structure = model.Structure{
		MCQCount:   clampNonNegative(s.MCQCount),
		MCQMarks:   clampNonNegative(s.MCQMarks),
		ShortCount: clampNonNegative(s.ShortCount),
		ShortMarks: clampNonNegative(s.ShortMarks),
		LongCount:  clampNonNegative(s.LongCount),
		LongMarks:  clampNonNegative(s.LongMarks),
	}
	b.recompute()
	return nil
}

// SetBranding replaces the presentational metadata. The total-marks string is
// accepted as given but is rewritten from the structure on the next structure
// change; it is a cached derivation, not an independent fact.
func (b *Builder) SetBranding(br model.Branding) error {
	if b.generating {
		return ErrGenerationInFlight
	}
	b.spec.Branding = br
	return nil
}

// ValidateForGeneration reports whether the specification is complete enough
// to hand to a generator.
func (b *Builder) ValidateForGeneration() error {
	s := b.spec.Structure
	if s.TotalQuestions == 0 || s.TotalMarks == 0 || len(b.spec.SelectedTopics) == 0 {
		return ErrValidationBlocked
	}
	return nil
}

// BeginGeneration validates the specification and locks it for the duration
// of a generation call. Callers must pair it with FinishGeneration.
func (b *Builder) BeginGeneration() error {
	if b.generating {
		return ErrGenerationInFlight
	}
	if err := b.ValidateForGeneration(); err != nil {
		return err
	}
	b.generating = true
	return nil
}

// FinishGeneration completes a generation attempt. On success the new paper
// replaces any previous one wholesale; on failure the previous paper and the
// specification are retained untouched, so the same specification can be
// retried.
func (b *Builder) FinishGeneration(paper *model.Paper, callErr error) error {
	b.generating = false
	if callErr != nil {
		return fmt.Errorf("generate paper: %w", callErr)
	}
	b.paper = clonePaper(paper)
	return nil
}

// Generate runs a single generation attempt against g. It is a convenience
// for single-owner callers; concurrent callers drive BeginGeneration and
// FinishGeneration around the call themselves.
func (b *Builder) Generate(ctx context.Context, g Generator) error {
	if err := b.BeginGeneration(); err != nil {
		return err
	}
	paper, err := g.Generate(ctx, b.Spec())
	return b.FinishGeneration(paper, err)
}

// UpdateQuestion replaces the paper question whose ID matches q.ID and
// reports whether a replacement happened. A miss is a no-op, not an error.
// The answer key is deliberately left untouched: it is a separately curated
// sequence, and an edited correct_answer does not rewrite the key text.
func (b *Builder) UpdateQuestion(q model.Question) (bool, error) {
	if b.generating {
		return false, ErrGenerationInFlight
	}
	if b.paper == nil {
		return false, ErrNoPaper
	}
	if !model.ValidQuestionType(string(q.Type)) {
		return false, fmt.Errorf("invalid question type %q", q.Type)
	}
	if q.Type == model.TypeMCQ && len(q.Options) != 4 {
		return false, fmt.Errorf("MCQ question must have exactly 4 options, got %d", len(q.Options))
	}
	for i := range b.paper.Questions {
		if b.paper.Questions[i].ID == q.ID {
			q.Options = slices.Clone(q.Options)
			b.paper.Questions[i] = q
			return true, nil
		}
	}
	return false, nil
}

// DeleteQuestion removes the question and its answer-key entry in one step,
// reporting whether anything was removed. A miss leaves both sequences
// unchanged.
func (b *Builder) DeleteQuestion(id string) (bool, error) {
	if b.generating {
		return false, ErrGenerationInFlight
	}
	if b.paper == nil {
		return false, ErrNoPaper
	}
	qi := slices.IndexFunc(b.paper.Questions, func(q model.Question) bool { return q.ID == id })
	if qi < 0 {
		return false, nil
	}
	b.paper.Questions = slices.Delete(b.paper.Questions, qi, qi+1)
	if ki := slices.IndexFunc(b.paper.AnswerKey, func(a model.AnswerKeyItem) bool { return a.ID == id }); ki >= 0 {
		b.paper.AnswerKey = slices.Delete(b.paper.AnswerKey, ki, ki+1)
	}
	return true, nil
}

// recompute rederives the structure totals and the cached branding string.
func (b *Builder) recompute() {
	s := &b.spec.Structure
	s.TotalQuestions = s.MCQCount + s.ShortCount + s.LongCount
	s.TotalMarks = s.MCQCount*s.MCQMarks + s.ShortCount*s.ShortMarks + s.LongCount*s.LongMarks
	b.spec.Branding.TotalMarks = strconv.Itoa(s.TotalMarks)
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func clonePaper(p *model.Paper) *model.Paper {
	cp := *p
	cp.Meta.Topics = slices.Clone(p.Meta.Topics)
	cp.Questions = make([]model.Question, len(p.Questions))
	for i, q := range p.Questions {
		q.Options = slices.Clone(q.Options)
		cp.Questions[i] = q
	}
	cp.AnswerKey = slices.Clone(p.AnswerKey)
	return &cp
}
