// Package promptdata embeds the default Promela template and the preambles
// that open each collaborator conversation.
package promptdata

import (
	"embed"
	"strings"
)

//go:embed data/*
var FS embed.FS

func mustRead(name string) string {
	data, err := FS.ReadFile("data/" + name)
	if err != nil {
		panic("promptdata: missing embedded file " + name)
	}
	return string(data)
}

// Template returns the default Promela model prefix.
func Template() string { return mustRead("template.pml") }

// PlannerPreamble opens the plan generator conversation.
func PlannerPreamble() string { return strings.TrimSpace(mustRead("planner.md")) }

// LogicPreamble opens the logic generator conversation. template is the
// Promela prefix the formula will be checked against.
func LogicPreamble(template string) string {
	return strings.TrimSpace(strings.ReplaceAll(mustRead("logic.md"), "{{template}}", strings.TrimSpace(template)))
}

// ArbiterPreamble opens the arbiter conversation.
func ArbiterPreamble() string { return strings.TrimSpace(mustRead("arbiter.md")) }
