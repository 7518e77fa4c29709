// Package prompt renders the text sent around the images of a question.
package prompt

import (
	_ "embed"
	"strings"
	"text/template"
)

// QueryMarker separates the instructions shown before the images from the
// user query shown after them.
const QueryMarker = "User Query:"

//go:embed answer.txt
var answerTemplate string

var answerSuffix = template.Must(template.New("answer").Parse(querySection(answerTemplate)))

func querySection(tmpl string) string {
	_, after, _ := strings.Cut(tmpl, QueryMarker)
	return QueryMarker + after
}

// Answer returns the instruction text placed before the images and the user
// query placed after them.
func Answer(question string) (prefix, suffix string) {
	prefix, _, _ = strings.Cut(answerTemplate, QueryMarker)

	var sb strings.Builder
	// Execute only fails on writer errors; strings.Builder has none.
	_ = answerSuffix.Execute(&sb, struct{ Question string }{Question: question})
	return prefix, sb.String()
}
