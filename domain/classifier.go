// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "fmt"

type Label string

const (
	LabelPhishing   = Label("Phishing")
	LabelLegitimate = Label("Legitimate")
)

// Classification is the verdict of the scoring oracle for one text. Score is
// the raw phishing probability and must be carried end-to-end; the formatted
// label is presentation-only.
type Classification struct {
	Label Label
	Score float64
}

// Classify maps a raw score to a label. The boundary is exclusive: exactly
// 0.5 is still Legitimate.
func Classify(score float64) Classification {
	label := LabelLegitimate
	if score > 0.5 {
		label = LabelPhishing
	}

	return Classification{Label: label, Score: score}
}

func (c Classification) IsPhishing() bool {
	return c.Label == LabelPhishing
}

// Format renders the verdict the way the dashboard displays it. Callers that
// need the numeric value must use Score, never parse this string.
func (c Classification) Format() string {
	if c.IsPhishing() {
		return fmt.Sprintf("Phishing (Confidence: %.2f%%)", c.Score*100)
	}
	return fmt.Sprintf("Legitimate (Confidence: %.2f%%)", (1-c.Score)*100)
}

// Scorer is the opaque scoring oracle, loaded once at startup and immutable
// afterwards.
type Scorer interface {
	Score(text string) (float64, error)
}
