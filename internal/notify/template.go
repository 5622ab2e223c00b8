package notify

import (
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/breach"
)

// Renderer produces the notification body for one user.
type Renderer interface {
	Render(firstName string, breaches []breach.Record) (string, error)
}

// Template renders the notification mail by substituting placeholders in an
// HTML document: {{firstName}}, {{breach}} (singular/plural token) and
// {{tablerows}} (one row per breach).
type Template struct {
	body string
}

func LoadTemplate(path string) (*Template, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading notification template: %w", err)
	}
	return NewTemplate(string(body)), nil
}

func NewTemplate(body string) *Template {
	return &Template{body: body}
}

func (t *Template) Render(firstName string, breaches []breach.Record) (string, error) {
	if len(breaches) == 0 {
		return "", fmt.Errorf("nothing to render: empty breach list")
	}

	noun := "breach"
	if len(breaches) > 1 {
		noun = "breaches"
	}

	var rows strings.Builder
	for _, rec := range breaches {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(rec.Title),
			html.EscapeString(strings.Join(rec.DataClasses, ", ")),
			html.EscapeString(rec.BreachDate),
			rec.Description, // already an HTML fragment upstream
		)
	}

	r := strings.NewReplacer(
		"{{firstName}}", html.EscapeString(firstName),
		"{{breach}}", noun,
		"{{tablerows}}", rows.String(),
	)
	return r.Replace(t.body), nil
}
