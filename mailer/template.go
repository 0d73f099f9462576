package mailer

import (
	"context"
	"html"
	"strings"

	"nongxian/apperr"
	"nongxian/defaults"
	"nongxian/models"
	"nongxian/store"
)

// Render replaces every {{name}} in s with vars[name]. Unknown
// placeholders are left as they are.
func Render(s string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Rendered is a template with its placeholders filled in.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// RenderTemplate fills the subject and text body with vars as given. The
// HTML body gets escaped values, except for keys ending in "Html", which
// already hold markup.
func RenderTemplate(t models.EmailTemplate, vars map[string]string) Rendered {
	escaped := make(map[string]string, len(vars))
	for k, v := range vars {
		if strings.HasSuffix(k, "Html") {
			escaped[k] = v
			continue
		}
		escaped[k] = html.EscapeString(v)
	}
	return Rendered{
		Subject: Render(t.Subject, vars),
		HTML:    Render(t.HTMLContent, escaped),
		Text:    Render(t.TextContent, vars),
	}
}

// Templates resolves templates from the store, falling back to the
// built-in ones when the stored template is missing or inactive.
type Templates struct {
	repo store.Repository[models.EmailTemplate]
}

func NewTemplates(repo store.Repository[models.EmailTemplate]) *Templates {
	return &Templates{repo: repo}
}

func (t *Templates) Get(ctx context.Context, id string) (models.EmailTemplate, error) {
	if t != nil && t.repo != nil {
		tpl, err := t.repo.GetByID(ctx, id)
		switch {
		case err == nil && tpl.IsActive:
			return tpl, nil
		case err != nil && !apperr.Is(err, apperr.NotFound):
			return models.EmailTemplate{}, err
		}
	}
	if tpl, ok := defaults.EmailTemplate(id); ok {
		return tpl, nil
	}
	return models.EmailTemplate{}, apperr.NotFoundError("找不到郵件範本", nil)
}
