package config

import (
	"fmt"
	"slices"
	"strings"
)

// ConfigError collects every problem found in one config file.
type ConfigError struct {
	Path string
	// Missing holds unresolved references as NAME, or NAME: message for
	// the ${NAME:?message} form. A name referenced twice appears twice.
	Missing []string
	// Errors holds validation problems as "table.key: problem".
	Errors []string
}

// Section is the validation problems of one TOML table.
type Section struct {
	Table    string
	Problems []string
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "config %s:", e.Path)
	if vars := e.MissingVars(); len(vars) > 0 {
		fmt.Fprintf(&b, " missing environment variables: %s", strings.Join(vars, ", "))
	}
	if len(e.Errors) > 0 {
		b.WriteString(" validation failed:")
		for _, s := range e.Sections() {
			for _, p := range s.Problems {
				fmt.Fprintf(&b, "\n  - [%s] %s", s.Table, p)
			}
		}
	}
	return b.String()
}

// HasErrors reports whether anything was recorded.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}

// MissingVars returns the distinct entries of Missing in first-seen order.
func (e *ConfigError) MissingVars() []string {
	var out []string
	for _, m := range e.Missing {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// Sections groups Errors by table, in the order tables first appear.
func (e *ConfigError) Sections() []Section {
	var out []Section
	for _, msg := range e.Errors {
		table, problem := splitProblem(msg)
		i := slices.IndexFunc(out, func(s Section) bool { return s.Table == table })
		if i < 0 {
			out = append(out, Section{Table: table})
			i = len(out) - 1
		}
		out[i].Problems = append(out[i].Problems, problem)
	}
	return out
}

// splitProblem turns "remote.token: required" into ("remote", "token: required")
// and "log: negative" into ("log", "negative").
func splitProblem(msg string) (table, problem string) {
	i := strings.IndexAny(msg, ".:")
	if i < 0 {
		return "config", msg
	}
	return msg[:i], strings.TrimSpace(msg[i+1:])
}
