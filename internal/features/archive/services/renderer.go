package services

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"chatarchive/internal/features/archive/models"
	"chatarchive/internal/features/archive/templates"
)

// Template names. Navigation templates have a "-new-on-top" variant
// picked by VariantName.
const (
	TemplatePage          = "template.html"
	TemplateRSS           = "rss_template.html"
	TemplateDayCounter    = "day-counter-template.js"
	TemplateDayline       = "dayline-template.js"
	TemplateTimelineIndex = "timeline-index-template.js"
	TemplatePagination    = "pagination-template.js"
)

// Renderer turns a named template and its context into text
type Renderer interface {
	Render(name string, data any) ([]byte, error)
	Has(name string) bool
}

// VariantName returns the template name for the traversal direction
func VariantName(name string, order models.SortOrder) string {
	if order != models.NewestFirst || name == TemplatePage || name == TemplateRSS || name == TemplateDayCounter {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-new-on-top" + ext
}

var nl2brPattern = regexp.MustCompile(`\n\n+`)

// nl2br collapses blank-line runs and turns newlines into <br />. The
// newline is kept before each <br /> so auto-linking in templates still
// sees word boundaries.
func nl2br(s string) string {
	return strings.ReplaceAll(nl2brPattern.ReplaceAllString(s, "\n\n"), "\n", "\n<br />")
}

func funcMap() map[string]any {
	return map[string]any{
		"date": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"add": func(a, b int) int {
			return a + b
		},
	}
}

type executor interface {
	Execute(w *bytes.Buffer, data any) error
}

type htmlExecutor struct{ t *htmltemplate.Template }

func (e htmlExecutor) Execute(w *bytes.Buffer, data any) error { return e.t.Execute(w, data) }

type textExecutor struct{ t *texttemplate.Template }

func (e textExecutor) Execute(w *bytes.Buffer, data any) error { return e.t.Execute(w, data) }

// TemplateRenderer renders the site templates. Files in the template
// directory take precedence over the built-in defaults; the RSS abstract
// template is only used when the directory provides one.
type TemplateRenderer struct {
	templates map[string]executor
}

// NewTemplateRenderer loads templates from dir, which may be empty
func NewTemplateRenderer(dir string) (*TemplateRenderer, error) {
	r := &TemplateRenderer{templates: make(map[string]executor)}

	names := []string{TemplatePage, TemplateRSS, TemplateDayCounter}
	for _, name := range []string{TemplateDayline, TemplateTimelineIndex, TemplatePagination} {
		names = append(names, name, VariantName(name, models.NewestFirst))
	}

	for _, name := range names {
		source, err := readTemplate(dir, name)
		if err != nil {
			return nil, err
		}
		if source == "" {
			continue
		}
		if err := r.add(name, source); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func readTemplate(dir, name string) (string, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read template %s: %w", name, err)
		}
	}

	if name == TemplateRSS {
		return "", nil
	}

	data, err := fs.ReadFile(templates.FS, name)
	if err != nil {
		return "", fmt.Errorf("failed to read built-in template %s: %w", name, err)
	}
	return string(data), nil
}

func (r *TemplateRenderer) add(name, source string) error {
	if strings.HasSuffix(name, ".html") {
		funcs := htmltemplate.FuncMap(funcMap())
		funcs["nl2br"] = func(s string) htmltemplate.HTML {
			return htmltemplate.HTML(nl2br(htmltemplate.HTMLEscapeString(s)))
		}
		t, err := htmltemplate.New(name).Funcs(funcs).Parse(source)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = htmlExecutor{t}
		return nil
	}

	funcs := texttemplate.FuncMap(funcMap())
	funcs["nl2br"] = nl2br
	t, err := texttemplate.New(name).Funcs(funcs).Parse(source)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	r.templates[name] = textExecutor{t}
	return nil
}

// Has reports whether a template is loaded
func (r *TemplateRenderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Render executes the named template with data
func (r *TemplateRenderer) Render(name string, data any) ([]byte, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %s is not loaded", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// MonthPages gives templates the page filenames of one month
type MonthPages struct {
	Month      models.Month
	TotalPages int
	Order      models.SortOrder
}

// Filename returns the published name of page
func (m MonthPages) Filename(page int) string {
	return PageFilename(m.Month.Slug, page, m.TotalPages, m.Order)
}

// Pages returns the page numbers 1..TotalPages
func (m MonthPages) Pages() []int {
	pages := make([]int, m.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// ReversedPages returns the page numbers TotalPages..1
func (m MonthPages) ReversedPages() []int {
	pages := m.Pages()
	for i, j := 0, len(pages)-1; i < j; i, j = i+1, j-1 {
		pages[i], pages[j] = pages[j], pages[i]
	}
	return pages
}

// PageContext is the data of a message page
type PageContext struct {
	MonthPages
	Site     models.SiteConfig
	Title    string
	Timeline []models.YearGroup
	Dayline  []models.Day
	Page     models.Page
	Registry *PageIDRegistry
}

// ReplyLink returns the href of a replied-to message, or "" when its page
// has not been produced in this build.
func (c PageContext) ReplyLink(id int64) string {
	if c.Registry == nil || id == 0 {
		return ""
	}
	return c.Registry.Link(id)
}

// MediaPath returns the site-relative path of a media file
func (c PageContext) MediaPath(url string) string {
	return filepath.ToSlash(filepath.Join(filepath.Base(c.Site.MediaDir), url))
}

// DayAnchor returns the day slug when m is the first message of its day
// on the page, or "" otherwise.
func (c PageContext) DayAnchor(index int) string {
	messages := c.Page.Messages
	if index < 0 || index >= len(messages) {
		return ""
	}
	day := messages[index].Date.UTC().Format("2006-01-02")
	if index > 0 && messages[index-1].Date.UTC().Format("2006-01-02") == day {
		return ""
	}
	return day
}

// DayCounterContext is the data of day-counter-<day>.js
type DayCounterContext struct {
	Day models.Day
}

// DaylineContext is the data of dayline-<month>.js
type DaylineContext struct {
	MonthPages
	Days []models.Day
}

// Reversed returns the days in the opposite of traversal order
func (c DaylineContext) Reversed() []models.Day {
	days := make([]models.Day, len(c.Days))
	for i, d := range c.Days {
		days[len(days)-1-i] = d
	}
	return days
}

// TimelineContext is the data of timeline-index.js
type TimelineContext struct {
	Timeline []models.YearGroup
}

// Reversed returns the years, and the months within each year, in the
// opposite of traversal order
func (c TimelineContext) Reversed() []models.YearGroup {
	groups := make([]models.YearGroup, len(c.Timeline))
	for i, g := range c.Timeline {
		months := make([]models.Month, len(g.Months))
		for j, m := range g.Months {
			months[len(months)-1-j] = m
		}
		groups[len(groups)-1-i] = models.YearGroup{Year: g.Year, Months: months}
	}
	return groups
}

// PaginationContext is the data of pagination-<month>.js
type PaginationContext struct {
	MonthPages
}

// AbstractContext is the data of the RSS abstract template
type AbstractContext struct {
	Site      models.SiteConfig
	Message   models.Message
	MediaMIME string
	Registry  *PageIDRegistry
}
