package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/models"
)

var (
	// ErrNoData is returned by Build when the archive holds no messages
	ErrNoData = core.NewAppError(core.ErrCodeNoData, "no data found to publish site", nil)
	// ErrBuildRunning is returned by TryBuild while another build holds the
	// publish directory
	ErrBuildRunning = core.NewAppError(core.ErrCodeBuildRunning, "a build is already running", nil)
)

const timelineIndexFilename = "timeline-index.js"

// BuildResult summarises one build run
type BuildResult struct {
	ID        string        `json:"id"`
	Months    int           `json:"months"`
	Pages     int           `json:"pages"`
	Skipped   int           `json:"skipped"`
	Feed      int           `json:"feed_entries"`
	IndexPage string        `json:"index_page"`
	Warnings  []string      `json:"warnings,omitempty"`
	Duration  time.Duration `json:"duration"`
	NoData    bool          `json:"no_data"`
}

// Builder turns the archive into the published site
type Builder struct {
	site      models.SiteConfig
	title     string
	source    Source
	renderer  Renderer
	publisher *Publisher
	media     MediaResolver
	generator string
	logger    *core.Logger

	// mu makes the builder the only writer of the publish directory
	mu sync.Mutex
}

// NewBuilder creates a builder. A nil media resolver sniffs files on disk.
func NewBuilder(
	site models.SiteConfig,
	title string,
	source Source,
	renderer Renderer,
	publisher *Publisher,
	media MediaResolver,
	generator string,
	logger *core.Logger,
) *Builder {
	if media == nil {
		media = FileMediaResolver{}
	}
	return &Builder{
		site:      site,
		title:     title,
		source:    source,
		renderer:  renderer,
		publisher: publisher,
		media:     media,
		generator: generator,
		logger:    logger,
	}
}

// run holds the state of a single build
type run struct {
	*Builder
	ctx       context.Context
	logger    *core.Logger
	result    *BuildResult
	order     models.SortOrder
	timeline  []models.YearGroup
	registry  *PageIDRegistry
	feed      *FeedWindow
	paginator *Paginator
	policy    SkipPolicy
	recent    models.Month
}

// Build runs a full or incremental build, waiting for a running build to
// finish first. Artifacts are produced month by month in traversal order;
// feeds and the entry point follow once every month is done.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.build(ctx)
}

// TryBuild runs a build unless one is already running, in which case it
// returns ErrBuildRunning without touching the publish directory.
func (b *Builder) TryBuild(ctx context.Context) (*BuildResult, error) {
	if !b.mu.TryLock() {
		return nil, ErrBuildRunning
	}
	defer b.mu.Unlock()
	return b.build(ctx)
}

func (b *Builder) build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{ID: uuid.NewString()}
	defer func() { result.Duration = time.Since(start) }()

	if err := b.site.Validate(); err != nil {
		return result, core.NewValidationError("invalid build configuration", err)
	}

	r := &run{
		Builder:  b,
		ctx:      ctx,
		logger:   b.logger.WithBuild(result.ID),
		result:   result,
		order:    b.site.Order(),
		registry: NewPageIDRegistry(),
		policy: SkipPolicy{
			Incremental: b.site.IncrementalBuilds,
			PerPage:     b.site.PerPage,
			Exists:      b.publisher.Exists,
		},
	}

	r.logger.Info("Start building", "publish_dir", b.publisher.Dir(), "incremental", b.site.IncrementalBuilds)

	if err := b.publisher.Prepare(!b.site.IncrementalBuilds); err != nil {
		return result, err
	}
	result.Warnings = append(result.Warnings,
		b.publisher.LinkAssets(ctx, []string{b.site.StaticDir, b.site.MediaDir}, b.site.Symlink)...)

	months, err := b.source.ListMonths(ctx, r.order)
	if err != nil {
		return result, err
	}
	if len(months) == 0 {
		r.logger.Info("No data found to publish site")
		result.NoData = true
		return result, ErrNoData
	}
	r.recent, _ = MostRecentMonth(months, r.order)
	r.timeline = GroupByYear(months)

	if b.site.PublishRSSFeed {
		r.feed = NewFeedWindow(b.site.RSSFeedEntries, r.order)
	}
	r.paginator = NewPaginator(b.source, r.registry, r.feed, r.order, b.site.PerPage, r.logger)

	if err := r.write(timelineIndexFilename, VariantName(TemplateTimelineIndex, r.order), TimelineContext{Timeline: r.timeline}); err != nil {
		return result, err
	}

	for _, month := range months {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := r.buildMonth(month); err != nil {
			return result, err
		}
		result.Months++
	}

	if r.feed != nil {
		if err := r.buildFeeds(); err != nil {
			return result, err
		}
	}

	if result.IndexPage != "" {
		if err := b.publisher.PublishIndex(result.IndexPage, b.site.Symlink); err != nil {
			return result, err
		}
	}

	r.logger.Info("Build completed",
		"months", result.Months,
		"pages", result.Pages,
		"skipped", result.Skipped,
		"index", result.IndexPage,
		"warnings", len(result.Warnings),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

func (r *run) buildMonth(month models.Month) error {
	days, err := r.source.ListDays(r.ctx, month.Year(), month.MonthNum(), r.order, r.site.PerPage)
	if err != nil {
		return err
	}

	frontier := ""
	if month.Slug == r.recent.Slug {
		frontier = MostRecentDay(days)
	}
	counters, skipped := PlanDayCounters(days, frontier, r.policy)
	if skipped > 0 {
		r.logger.Info("Incremental build: day counters exist, skipped rendering", "month", month.Slug, "skipped", skipped)
	}
	r.result.Skipped += skipped
	for _, day := range counters {
		if err := r.write(DayCounterFilename(day), TemplateDayCounter, DayCounterContext{Day: day}); err != nil {
			return err
		}
	}

	count, err := r.source.CountMessages(r.ctx, month.Year(), month.MonthNum())
	if err != nil {
		return err
	}
	pages := MonthPages{Month: month, TotalPages: TotalPages(count, r.site.PerPage), Order: r.order}

	if r.site.ShowDayIndex {
		name := fmt.Sprintf("dayline-%s.js", month.Slug)
		if err := r.write(name, VariantName(TemplateDayline, r.order), DaylineContext{MonthPages: pages, Days: days}); err != nil {
			return err
		}
	}

	name := fmt.Sprintf("pagination-%s.js", month.Slug)
	if err := r.write(name, VariantName(TemplatePagination, r.order), PaginationContext{MonthPages: pages}); err != nil {
		return err
	}

	_, err = r.paginator.Paginate(r.ctx, month, func(page models.Page) error {
		if r.order == models.NewestFirst {
			if r.result.IndexPage == "" {
				r.result.IndexPage = page.Filename
			}
		} else {
			r.result.IndexPage = page.Filename
		}

		if r.policy.ShouldSkip(SkipInput{Kind: KindPage, Filename: page.Filename, Frontier: page.Top, Messages: len(page.Messages)}) {
			r.logger.Info("Incremental build: file exists, skipped rendering", "file", page.Filename)
			r.result.Skipped++
			return nil
		}

		pages.TotalPages = page.Total
		err := r.write(page.Filename, TemplatePage, PageContext{
			MonthPages: pages,
			Site:       r.site,
			Title:      r.title,
			Timeline:   r.timeline,
			Dayline:    days,
			Page:       page,
			Registry:   r.registry,
		})
		if err != nil {
			return err
		}
		r.result.Pages++
		return nil
	})
	return err
}

func (r *run) buildFeeds() error {
	entries := r.feed.Entries()
	r.logger.Info("Building feeds", "entries", len(entries))

	var abstract AbstractFunc = DefaultAbstract
	if r.renderer.Has(TemplateRSS) {
		abstract = func(m models.Message, mediaMIME string) (string, error) {
			out, err := r.renderer.Render(TemplateRSS, AbstractContext{
				Site:      r.site,
				Message:   m,
				MediaMIME: mediaMIME,
				Registry:  r.registry,
			})
			return string(out), err
		}
	}

	assembler := NewFeedAssembler(r.site, r.title, r.registry, r.media, abstract, r.generator, r.logger)
	docs, err := assembler.Render(entries)
	if err != nil {
		return err
	}
	r.result.Warnings = append(r.result.Warnings, docs.Warnings...)
	r.result.Feed = len(entries)

	if err := r.publisher.Write(RSSFilename, docs.RSS); err != nil {
		return err
	}
	return r.publisher.Write(AtomFilename, docs.Atom)
}

func (r *run) write(filename, template string, data any) error {
	out, err := r.renderer.Render(template, data)
	if err != nil {
		return core.NewRenderError(filename, err)
	}
	if err := r.publisher.Write(filename, out); err != nil {
		return err
	}
	r.logger.Debug("Rendered", "file", filename, "size", humanize.Bytes(uint64(len(out))))
	return nil
}
