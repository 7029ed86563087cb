package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/techdivision/import-app-simple/internal/store"
)

var titleCaser = cases.Title(language.Und)

// outcomeLabel renders a recorded outcome for tables, e.g. "already_running"
// becomes "Already Running". Runs still in progress show "Running".
func outcomeLabel(run *store.Run) string {
	if run == nil {
		return ""
	}
	if run.Status == store.RunStatusRunning || run.Outcome == "" {
		return "Running"
	}
	return titleCaser.String(strings.ReplaceAll(run.Outcome, "_", " "))
}
