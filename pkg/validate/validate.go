// Package validate performs command shape validation at the dispatch
// boundary: field presence, lengths and formats. Business rules live in
// the bounded contexts' invariants, not here.
package validate

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

// Issue describes one invalid field.
type Issue struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// Issues is the set of problems found in one command.
type Issues []Issue

// HasErrors reports whether any issue was recorded.
func (is Issues) HasErrors() bool { return len(is) > 0 }

func (is Issues) Error() string {
	parts := make([]string, len(is))
	for i, issue := range is {
		parts[i] = issue.Error()
	}
	return strings.Join(parts, "; ")
}

// FriendlyName converts snake_case field names to user-facing names:
// "code_name" -> "Code name".
func FriendlyName(field string) string {
	parts := strings.Split(field, "_")
	for i, part := range parts {
		if i == 0 && len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
			continue
		}
		parts[i] = strings.ToLower(part)
	}
	return strings.Join(parts, " ")
}

// Checker accumulates issues across a command's fields.
type Checker struct {
	issues Issues
}

// NewChecker creates an empty checker.
func NewChecker() *Checker { return &Checker{} }

// Require records an issue when value is blank.
func (c *Checker) Require(field, value string) *Checker {
	if strings.TrimSpace(value) == "" {
		name := FriendlyName(field)
		c.issues = append(c.issues, Issue{
			Field:      field,
			Message:    fmt.Sprintf("%s is required", name),
			Suggestion: fmt.Sprintf("provide a non-empty %s", strings.ToLower(name)),
		})
	}
	return c
}

// MaxLength records an issue when value exceeds max bytes.
func (c *Checker) MaxLength(field, value string, max int) *Checker {
	if !govalidator.MaxStringLength(value, fmt.Sprint(max)) {
		name := FriendlyName(field)
		c.issues = append(c.issues, Issue{
			Field:      field,
			Message:    fmt.Sprintf("%s must be at most %d characters", name, max),
			Suggestion: fmt.Sprintf("shorten the %s", strings.ToLower(name)),
		})
	}
	return c
}

// HexColor records an issue when value is set but not a hex color.
func (c *Checker) HexColor(field, value string) *Checker {
	if value != "" && !govalidator.IsHexcolor(value) {
		name := FriendlyName(field)
		c.issues = append(c.issues, Issue{
			Field:      field,
			Message:    fmt.Sprintf("%s must be a hex color", name),
			Suggestion: "use a value like #1F77B4",
		})
	}
	return c
}

// Printable records an issue when value contains control characters.
func (c *Checker) Printable(field, value string) *Checker {
	if govalidator.HasWhitespaceOnly(value) {
		return c
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			c.issues = append(c.issues, Issue{
				Field:      field,
				Message:    fmt.Sprintf("%s contains control characters", FriendlyName(field)),
				Suggestion: "remove non-printable characters",
			})
			break
		}
	}
	return c
}

// Result returns nil when everything checked out, the issues otherwise.
func (c *Checker) Result() Issues {
	if len(c.issues) == 0 {
		return nil
	}
	return c.issues
}
