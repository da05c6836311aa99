package validator

import (
	"fmt"
	"strings"
)

// Level selects which groups of checks run.
type Level string

const (
	LevelDirectory Level = "directory"
	LevelFile      Level = "file"
	LevelReference Level = "reference"
	LevelFull      Level = "full"
)

// ParseLevel accepts a level name; the empty string means LevelFull.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "", LevelFull:
		return LevelFull, nil
	case LevelDirectory:
		return LevelDirectory, nil
	case LevelFile:
		return LevelFile, nil
	case LevelReference:
		return LevelReference, nil
	default:
		return "", fmt.Errorf("unknown validation level %q (want directory, file, reference or full)", s)
	}
}

func (l Level) includes(other Level) bool {
	return l == LevelFull || l == other
}

// Category groups checks by what they look at.
type Category string

const (
	CategoryDirectory Category = "directory"
	CategoryFile      Category = "file"
	CategoryFormat    Category = "format"
	CategoryReference Category = "reference"
)

// Severity decides whether a failing check invalidates the card.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// CheckItem is the outcome of a single check.
type CheckItem struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Report collects every check of one validation run in execution order.
type Report struct {
	Source       string      `json:"source"`
	Level        Level       `json:"level"`
	Valid        bool        `json:"valid"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	InfoCount    int         `json:"info_count"`
	Checks       []CheckItem `json:"checks"`
}

func (r *Report) add(item CheckItem) {
	if item.Severity == "" {
		item.Severity = SeverityError
	}
	r.Checks = append(r.Checks, item)
}

func (r *Report) pass(name string, category Category, path string) {
	r.add(CheckItem{Name: name, Passed: true, Category: category, Path: path})
}

func (r *Report) fail(name string, category Category, severity Severity, path, format string, args ...any) {
	r.add(CheckItem{
		Name:     name,
		Category: category,
		Severity: severity,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

// finish derives the counts and the valid flag.
func (r *Report) finish() {
	r.ErrorCount, r.WarningCount, r.InfoCount = 0, 0, 0
	for _, c := range r.Checks {
		if c.Passed {
			continue
		}
		switch c.Severity {
		case SeverityError:
			r.ErrorCount++
		case SeverityWarning:
			r.WarningCount++
		default:
			r.InfoCount++
		}
	}
	r.Valid = r.ErrorCount == 0
}

// Failures returns the failing checks, optionally limited to severities.
func (r *Report) Failures(severities ...Severity) []CheckItem {
	var out []CheckItem
	for _, c := range r.Checks {
		if c.Passed {
			continue
		}
		if len(severities) > 0 && !containsSeverity(severities, c.Severity) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Messages renders failing checks as "name: message" lines.
func Messages(items []CheckItem) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		if c.Path != "" {
			out = append(out, fmt.Sprintf("%s (%s): %s", c.Name, c.Path, c.Message))
		} else {
			out = append(out, fmt.Sprintf("%s: %s", c.Name, c.Message))
		}
	}
	return out
}

// Find returns the first check with the given name.
func (r *Report) Find(name string) (CheckItem, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckItem{}, false
}

func containsSeverity(list []Severity, s Severity) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Failed builds a finished report holding a single failing check, for
// sources that could not be opened at all.
func Failed(source string, level Level, name, message string) Report {
	if level == "" {
		level = LevelFull
	}
	r := Report{Source: source, Level: level}
	r.add(CheckItem{Name: name, Category: CategoryFile, Severity: SeverityError, Message: message})
	r.finish()
	return r
}
