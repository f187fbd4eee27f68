// Package render turns a specification and its generated paper into the
// printable document, in either question or answer mode. It reads the paper;
// it never changes it.
package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/kvexam/papergen/internal/i18n"
	"github.com/kvexam/papergen/internal/model"
)

// Mode selects which face of the paper to render.
type Mode string

const (
	// ModeQuestion renders question text and options only.
	ModeQuestion Mode = "question"
	// ModeAnswer renders question text with the stored answer and solution.
	ModeAnswer Mode = "answer"
)

// ParseMode validates a mode string, defaulting empty to question mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeQuestion:
		return ModeQuestion, nil
	case ModeAnswer:
		return ModeAnswer, nil
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

// OptionLabel maps a zero-based MCQ option index to its display letter:
// 0 -> A, 1 -> B, and so on.
func OptionLabel(i int) string {
	return string(rune('A' + i))
}

//go:embed templates/document.html
var templateFS embed.FS

var docTmpl = template.Must(template.ParseFS(templateFS, "templates/document.html"))

type labels struct {
	Class    string
	Subject  string
	Date     string
	MaxMarks string
	Duration string
	Answer   string
	Solution string
	Banner   string
	NoLogo   string
	Page     string
}

type optionRow struct {
	Label string
	Text  string
}

type item struct {
	Number     int
	Question   model.Question
	MarksLabel string
	Options    []optionRow
	Answer     string
}

type docData struct {
	AnswerMode bool
	Labels     labels
	Branding   model.Branding
	Class      string
	Subject    string
	TotalMarks string
	Items      []item
}

// Document writes the printable paper to w. Header values come from the
// generated paper's meta when a paper exists, falling back to the
// specification otherwise. In answer mode, questions without a matching
// answer-key entry are skipped rather than failing the render.
func Document(ctx context.Context, w io.Writer, spec model.Specification, paper *model.Paper, mode Mode) error {
	data := docData{
		AnswerMode: mode == ModeAnswer,
		Branding:   spec.Branding,
		Class:      strconv.Itoa(spec.ClassLevel),
		Subject:    spec.Subject,
		TotalMarks: spec.Branding.TotalMarks,
		Labels: labels{
			Class:    i18n.T(ctx, "Class"),
			Subject:  i18n.T(ctx, "Subject"),
			Date:     i18n.T(ctx, "Date"),
			MaxMarks: i18n.T(ctx, "MaxMarks"),
			Duration: i18n.T(ctx, "Duration"),
			Answer:   i18n.T(ctx, "Answer"),
			Solution: i18n.T(ctx, "Solution"),
			Banner:   i18n.T(ctx, "AnswerKeyBanner"),
			NoLogo:   i18n.T(ctx, "NoLogo"),
			Page:     i18n.Td(ctx, "PageOf", map[string]any{"Page": 1, "Total": 1}),
		},
	}

	if paper != nil {
		if paper.Meta.Class != "" {
			data.Class = paper.Meta.Class
		}
		if paper.Meta.Subject != "" {
			data.Subject = paper.Meta.Subject
		}
		if paper.Meta.TotalMarks > 0 {
			data.TotalMarks = strconv.Itoa(paper.Meta.TotalMarks)
		}

		key := make(map[string]model.AnswerKeyItem, len(paper.AnswerKey))
		for _, a := range paper.AnswerKey {
			key[a.ID] = a
		}

		for i, q := range paper.Questions {
			it := item{
				Number:     i + 1,
				Question:   q,
				MarksLabel: i18n.Tp(ctx, "MarksCount", q.Marks),
			}
			if mode == ModeAnswer {
				a, ok := key[q.ID]
				if !ok {
					continue
				}
				it.Answer = a.Answer
			} else {
				for oi, opt := range q.Options {
					it.Options = append(it.Options, optionRow{Label: OptionLabel(oi), Text: opt})
				}
			}
			data.Items = append(data.Items, it)
		}
	}

	if err := docTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}
