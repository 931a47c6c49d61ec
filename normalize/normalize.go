// SPDX-License-Identifier: GPL-3.0-or-later

// Package normalize prepares email text for the scoring oracle. Clean is a
// pure function, the same input always produces the same output.
package normalize

import (
	"regexp"
	"strings"
)

var (
	urlTokens  = regexp.MustCompile(`http\S+`)
	markupTags = regexp.MustCompile(`<[^>]*>`)
	nonAlpha   = regexp.MustCompile(`[^a-zA-Z\s]`)
)

// english is the fixed stop-word set, matching the NLTK english list the
// model was trained against (alphabetic entries only, apostrophe forms are
// collapsed by the non-alphabetic strip before lookup).
var english = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
		"youre", "youve", "youll", "youd", "your", "yours", "yourself",
		"yourselves", "he", "him", "his", "himself", "she", "shes", "her",
		"hers", "herself", "it", "its", "itself", "they", "them", "their",
		"theirs", "themselves", "what", "which", "who", "whom", "this",
		"that", "thatll", "these", "those", "am", "is", "are", "was", "were",
		"be", "been", "being", "have", "has", "had", "having", "do", "does",
		"did", "doing", "a", "an", "the", "and", "but", "if", "or", "because",
		"as", "until", "while", "of", "at", "by", "for", "with", "about",
		"against", "between", "into", "through", "during", "before", "after",
		"above", "below", "to", "from", "up", "down", "in", "out", "on",
		"off", "over", "under", "again", "further", "then", "once", "here",
		"there", "when", "where", "why", "how", "all", "any", "both", "each",
		"few", "more", "most", "other", "some", "such", "no", "nor", "not",
		"only", "own", "same", "so", "than", "too", "very", "s", "t", "can",
		"will", "just", "don", "dont", "should", "shouldve", "now", "d",
		"ll", "m", "o", "re", "ve", "y", "ain", "aren", "arent", "couldn",
		"couldnt", "didn", "didnt", "doesn", "doesnt", "hadn", "hadnt",
		"hasn", "hasnt", "haven", "havent", "isn", "isnt", "ma", "mightn",
		"mightnt", "mustn", "mustnt", "needn", "neednt", "shan", "shant",
		"shouldn", "shouldnt", "wasn", "wasnt", "weren", "werent", "won",
		"wont", "wouldn", "wouldnt",
	} {
		english[w] = struct{}{}
	}
}

// Clean strips URL tokens, markup tags and non-alphabetic characters,
// lowercases, and drops stop words. Applying it twice is a no-op.
func Clean(text string) string {
	text = urlTokens.ReplaceAllString(text, "")
	text = markupTags.ReplaceAllString(text, "")
	text = nonAlpha.ReplaceAllString(text, "")
	text = strings.ToLower(text)

	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := english[w]; stop {
			continue
		}
		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}
