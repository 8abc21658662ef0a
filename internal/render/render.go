// Package render turns view models into HTML. Fragments are swapped in by
// htmx; direct navigations get the same fragment wrapped in the page layout.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/gema-roster-web/internal/dto"
	"github.com/noah-isme/gema-roster-web/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded templates.
type Renderer struct {
	templates *template.Template
	title     string
}

// New parses the embedded templates. title is used by the page layout.
func New(title string) (*Renderer, error) {
	if title == "" {
		title = "Roster Console"
	}

	tmpl, err := template.New("roster").Funcs(template.FuncMap{
		"activityURL": activityURL,
		"add":         func(a, b int) int { return a + b },
		"entityID":    entityID,
		"rfc3339":     func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"stamp":       func(t time.Time) string { return t.Local().Format("2006-01-02 15:04:05") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{templates: tmpl, title: title}, nil
}

// Component wraps the named template as a templ component.
func (r *Renderer) Component(name string, data interface{}) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.templates.ExecuteTemplate(w, name, data)
	})
}

// Layout wraps content in the full HTML document. Each document gets its own
// client id, sent with every htmx request and the event stream.
func (r *Renderer) Layout(content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var body bytes.Buffer
		if err := content.Render(ctx, &body); err != nil {
			return err
		}
		return r.templates.ExecuteTemplate(w, "layout", struct {
			Title    string
			ClientID string
			Body     template.HTML
		}{
			Title:    r.title,
			ClientID: uuid.NewString(),
			// Body was produced by our own escaped templates.
			Body: template.HTML(body.String()),
		})
	})
}

func (r *Renderer) Page(page view.Page) templ.Component {
	return r.Component("page", page)
}

func (r *Renderer) StudentPanel(panel view.StudentPanel) templ.Component {
	return r.Component("students_panel", panel)
}

func (r *Renderer) StudentRow(row view.StudentRow) templ.Component {
	return r.Component("student_row", row)
}

func (r *Renderer) AssignmentPanel(panel view.AssignmentPanel) templ.Component {
	return r.Component("assignments_panel", panel)
}

func (r *Renderer) AssignmentProgress(progress view.AssignmentProgress) templ.Component {
	return r.Component("assignment_progress", progress)
}

func (r *Renderer) Matrix(matrix view.Matrix) templ.Component {
	return r.Component("matrix_panel", matrix)
}

func (r *Renderer) MatrixCell(cell view.Cell) templ.Component {
	return r.Component("matrix_cell", cell)
}

func (r *Renderer) ActivityPanel(panel view.ActivityPanel) templ.Component {
	return r.Component("activity_panel", panel)
}

// InTable wraps table rows so they stay valid markup outside their panel.
func InTable(content templ.Component) templ.Component {
	return enclose("<table><tbody>", content, "</tbody></table>")
}

// InTableRow wraps a single cell the same way.
func InTableRow(content templ.Component) templ.Component {
	return enclose("<table><tbody><tr>", content, "</tr></tbody></table>")
}

func enclose(head string, content templ.Component, tail string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, tail)
		return err
	})
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *fiber.Ctx) bool {
	return c.Get("HX-Request") == "true"
}

// Respond renders content as a bare fragment for htmx requests and inside the
// layout otherwise. Wrappers are applied to the content before the layout.
func (r *Renderer) Respond(c *fiber.Ctx, status int, content templ.Component, wrappers ...func(templ.Component) templ.Component) error {
	if !IsHTMX(c) {
		for _, wrap := range wrappers {
			content = wrap(content)
		}
		content = r.Layout(content)
	}

	var buf bytes.Buffer
	if err := content.Render(c.UserContext(), &buf); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// String renders a component to a string.
func String(ctx context.Context, component templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func activityURL(filter dto.ActivityListRequest, page int) string {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if filter.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(filter.PageSize))
	}
	if filter.Action != "" {
		query.Set("action", filter.Action)
	}
	if filter.EntityType != "" {
		query.Set("entity_type", filter.EntityType)
	}
	if len(query) == 0 {
		return "/ui/activity"
	}
	return "/ui/activity?" + query.Encode()
}

func entityID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}
