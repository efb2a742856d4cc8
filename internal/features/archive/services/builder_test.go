package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/models"
)

func testSite(t *testing.T) models.SiteConfig {
	t.Helper()
	return models.SiteConfig{
		PerPage:         10,
		ShowDayIndex:    true,
		PublishRSSFeed:  true,
		RSSFeedEntries:  5,
		PublishDir:      filepath.Join(t.TempDir(), "site"),
		SiteURL:         "https://example.com",
		SiteName:        "Test archive",
		SiteDescription: "Messages",
	}
}

func newTestBuilder(t *testing.T, site models.SiteConfig, source Source) (*Builder, *Publisher) {
	t.Helper()
	renderer, err := NewTemplateRenderer(site.TemplateDir)
	require.NoError(t, err)
	publisher := NewPublisher(site.PublishDir, testLogger(t))
	return NewBuilder(site, site.SiteName, source, renderer, publisher, nil, "chatarchive test", testLogger(t)), publisher
}

func readPublished(t *testing.T, p *Publisher, name string) string {
	t.Helper()
	data, err := os.ReadFile(p.Path(name))
	require.NoError(t, err)
	return string(data)
}

func TestBuildFullSite(t *testing.T) {
	source := newMemSource(monthMessages(2023, time.January, 1, 25)...)
	source.add(monthMessages(2023, time.February, 26, 15)...)

	builder, publisher := newTestBuilder(t, testSite(t), source)
	result, err := builder.Build(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 2, result.Months)
	assert.Equal(t, 5, result.Pages)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, 5, result.Feed)
	assert.Equal(t, "2023-02_2.html", result.IndexPage)

	for _, name := range []string{
		"timeline-index.js",
		"2023-01.html", "2023-01_2.html", "2023-01_3.html",
		"2023-02.html", "2023-02_2.html",
		"pagination-2023-01.js", "pagination-2023-02.js",
		"dayline-2023-01.js", "dayline-2023-02.js",
		"day-counter-2023-01-01.js", "day-counter-2023-01-02.js", "day-counter-2023-02-01.js",
		RSSFilename, AtomFilename, IndexFilename,
	} {
		assert.True(t, publisher.Exists(name), "expected %s to be published", name)
	}

	assert.Equal(t, readPublished(t, publisher, "2023-02_2.html"), readPublished(t, publisher, IndexFilename))

	feed, err := gofeed.NewParser().ParseString(readPublished(t, publisher, RSSFilename))
	require.NoError(t, err)
	require.Len(t, feed.Items, 5)
	assert.Equal(t, "https://example.com/2023-02_2.html#40", feed.Items[0].Link)
	assert.Equal(t, "https://example.com/2023-02_2.html#36", feed.Items[4].Link)
}

func TestBuildNewestFirst(t *testing.T) {
	source := newMemSource(monthMessages(2023, time.January, 1, 25)...)
	source.add(monthMessages(2023, time.February, 26, 15)...)

	site := testSite(t)
	site.NewOnTop = true
	builder, publisher := newTestBuilder(t, site, source)

	result, err := builder.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2023-02.html", result.IndexPage)
	assert.True(t, publisher.Exists("2023-01_1.html"))
	assert.False(t, publisher.Exists("2023-01_3.html"))
	assert.Contains(t, readPublished(t, publisher, "2023-02.html"), `id="40"`)

	feed, err := gofeed.NewParser().ParseString(readPublished(t, publisher, RSSFilename))
	require.NoError(t, err)
	require.Len(t, feed.Items, 5)
	assert.Equal(t, "https://example.com/2023-02.html#40", feed.Items[0].Link)
	assert.Equal(t, "https://example.com/2023-02.html#36", feed.Items[4].Link)
}

func TestBuildIncrementalSkipsFinishedPages(t *testing.T) {
	source := newMemSource(monthMessages(2023, time.January, 1, 20)...)
	source.add(monthMessages(2023, time.February, 21, 5)...)

	site := testSite(t)
	builder, publisher := newTestBuilder(t, site, source)
	_, err := builder.Build(context.Background())
	require.NoError(t, err)

	require.NoError(t, publisher.Write("2023-01_2.html", []byte("STALE")))
	require.NoError(t, publisher.Write("2023-02.html", []byte("STALE")))
	require.NoError(t, publisher.Write("day-counter-2023-01-01.js", []byte("STALE")))

	source.add(models.Message{
		ID:      26,
		Date:    time.Date(2023, time.February, 3, 9, 0, 0, 0, time.UTC),
		Content: "late arrival",
		User:    models.User{ID: 1, Username: "ann"},
	})

	site.IncrementalBuilds = true
	builder, publisher = newTestBuilder(t, site, source)
	result, err := builder.Build(context.Background())
	require.NoError(t, err)

	// A full, unchanged page of a past month is left as is.
	assert.Equal(t, "STALE", readPublished(t, publisher, "2023-01_2.html"))
	assert.Equal(t, "STALE", readPublished(t, publisher, "day-counter-2023-01-01.js"))

	// The current month's top page is always rewritten.
	assert.Contains(t, readPublished(t, publisher, "2023-02.html"), "late arrival")
	assert.True(t, publisher.Exists("day-counter-2023-02-03.js"))

	assert.Positive(t, result.Skipped)
	assert.Equal(t, "2023-02.html", result.IndexPage)
}

func TestBuildFullRebuildClearsOutput(t *testing.T) {
	source := newMemSource(monthMessages(2023, time.January, 1, 5)...)
	site := testSite(t)
	builder, publisher := newTestBuilder(t, site, source)

	require.NoError(t, publisher.Prepare(false))
	require.NoError(t, publisher.Write("leftover.html", []byte("old")))

	_, err := builder.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, publisher.Exists("leftover.html"))
}

func TestBuildNoData(t *testing.T) {
	builder, publisher := newTestBuilder(t, testSite(t), newMemSource())

	result, err := builder.Build(context.Background())
	require.ErrorIs(t, err, ErrNoData)
	assert.True(t, core.HasCode(err, core.ErrCodeNoData))
	assert.True(t, result.NoData)
	assert.False(t, publisher.Exists(IndexFilename))
}

func TestBuildInvalidConfig(t *testing.T) {
	site := testSite(t)
	site.PerPage = 0
	builder, _ := newTestBuilder(t, site, newMemSource())

	_, err := builder.Build(context.Background())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.ErrCodeValidation))
}

func TestBuildWithoutFeeds(t *testing.T) {
	source := newMemSource(monthMessages(2023, time.January, 1, 3)...)
	site := testSite(t)
	site.PublishRSSFeed = false
	site.SiteURL = ""
	builder, publisher := newTestBuilder(t, site, source)

	_, err := builder.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, publisher.Exists(RSSFilename))
	assert.False(t, publisher.Exists(AtomFilename))
}

func TestBuildCollectsAssetWarnings(t *testing.T) {
	source := newMemSource(monthMessages(2023, time.January, 1, 3)...)
	site := testSite(t)
	site.StaticDir = filepath.Join(t.TempDir(), "missing-static")
	builder, _ := newTestBuilder(t, site, source)

	result, err := builder.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "missing-static")
}

type failingSource struct{ *memSource }

func (failingSource) ListMessages(context.Context, int, int, models.SortOrder, int64, int) ([]models.Message, error) {
	return nil, errors.New("database is locked")
}

func TestBuildPropagatesSourceErrors(t *testing.T) {
	source := failingSource{newMemSource(monthMessages(2023, time.January, 1, 3)...)}
	builder, _ := newTestBuilder(t, testSite(t), source)

	_, err := builder.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestBuildCancelled(t *testing.T) {
	source := newMemSource(monthMessages(2023, time.January, 1, 3)...)
	builder, _ := newTestBuilder(t, testSite(t), source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := builder.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

type gatedSource struct {
	*memSource
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSource) ListMonths(ctx context.Context, order models.SortOrder) ([]models.Month, error) {
	close(s.entered)
	<-s.release
	return s.memSource.ListMonths(ctx, order)
}

func TestBuildIsSingleWriter(t *testing.T) {
	source := &gatedSource{
		memSource: newMemSource(monthMessages(2023, time.January, 1, 3)...),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	builder, _ := newTestBuilder(t, testSite(t), source)

	done := make(chan error, 1)
	go func() {
		_, err := builder.Build(context.Background())
		done <- err
	}()
	<-source.entered

	result, err := builder.TryBuild(context.Background())
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrBuildRunning)
	assert.True(t, core.HasCode(err, core.ErrCodeBuildRunning))

	close(source.release)
	require.NoError(t, <-done)

	// the lock is released once the build finishes
	source.entered = make(chan struct{})
	source.release = make(chan struct{})
	close(source.release)
	result, err = builder.TryBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pages)
}
