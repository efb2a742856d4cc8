package services

import (
	"context"
	"fmt"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/models"
)

// newestFirstCursor sits above every message id so the first descending
// window starts at the newest message.
const newestFirstCursor int64 = 1_000_000_000_000_000_000

// TotalPages returns ceil(count / perPage)
func TotalPages(count, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 0
	}
	return (count + perPage - 1) / perPage
}

// IsTopPage reports whether page is the month's unsuffixed page: the
// first page oldest-first, the last page newest-first
func IsTopPage(page, total int, order models.SortOrder) bool {
	if order == models.NewestFirst {
		return page == total
	}
	return page == 1
}

// PageFilename returns the published name of a month page. The top page
// is the bare month slug, every other page carries a _<page> suffix.
func PageFilename(slug string, page, total int, order models.SortOrder) string {
	if IsTopPage(page, total, order) {
		return slug + ".html"
	}
	return fmt.Sprintf("%s_%d.html", slug, page)
}

// PaginateResult summarises one month's pagination
type PaginateResult struct {
	TotalPages int
	Pages      int
	Messages   int
	// TopPage is the filename of the unsuffixed page.
	TopPage string
}

// Paginator walks a month's messages in fixed-size windows
type Paginator struct {
	source   Source
	registry *PageIDRegistry
	feed     *FeedWindow
	order    models.SortOrder
	perPage  int
	logger   *core.Logger
}

// NewPaginator creates a paginator. feed may be nil when feeds are not published.
func NewPaginator(source Source, registry *PageIDRegistry, feed *FeedWindow, order models.SortOrder, perPage int, logger *core.Logger) *Paginator {
	return &Paginator{
		source:   source,
		registry: registry,
		feed:     feed,
		order:    order,
		perPage:  perPage,
		logger:   logger,
	}
}

// Paginate fetches the month window by window and hands every page to
// emit. Registry entries for a page are recorded before emit runs, so a
// page can link to itself and to the pages before it. A month without
// messages produces no pages.
func (p *Paginator) Paginate(ctx context.Context, month models.Month, emit func(models.Page) error) (*PaginateResult, error) {
	if p.perPage < 1 {
		return nil, core.NewValidationError("per_page must be at least 1", nil)
	}

	count, err := p.source.CountMessages(ctx, month.Year(), month.MonthNum())
	if err != nil {
		return nil, err
	}

	result := &PaginateResult{TotalPages: TotalPages(count, p.perPage)}

	cursor := int64(0)
	page := 0
	if p.order == models.NewestFirst {
		cursor = newestFirstCursor
		page = result.TotalPages + 1
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		messages, err := p.source.ListMessages(ctx, month.Year(), month.MonthNum(), p.order, cursor, p.perPage)
		if err != nil {
			return result, err
		}
		if len(messages) == 0 {
			break
		}
		cursor = messages[len(messages)-1].ID

		if p.order == models.NewestFirst {
			page--
		} else {
			page++
		}

		current := models.Page{
			Month:    month,
			Filename: PageFilename(month.Slug, page, result.TotalPages, p.order),
			Number:   page,
			Total:    result.TotalPages,
			Top:      IsTopPage(page, result.TotalPages, p.order),
			Messages: messages,
		}

		for _, m := range messages {
			if err := p.registry.Record(m.ID, current.Filename); err != nil {
				return result, err
			}
		}

		if p.feed != nil {
			p.feed.Append(messages...)
		}

		if current.Top {
			result.TopPage = current.Filename
		}
		result.Pages++
		result.Messages += len(messages)

		if err := emit(current); err != nil {
			return result, err
		}
	}

	if result.Messages != count {
		p.logger.Warn("Message count changed during pagination",
			"month", month.Slug, "counted", count, "paginated", result.Messages)
	}

	return result, nil
}
