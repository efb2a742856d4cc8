package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/migrations"
	"chatarchive/internal/features/archive/models"
)

func newTestMessageService(t *testing.T) *MessageService {
	t.Helper()

	logger := core.NewNopLogger()
	db, err := core.OpenDatabase(filepath.Join(t.TempDir(), "archive.sqlite"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.NewManager(db, logger).Migrate(context.Background()))
	return NewMessageService(db, logger)
}

func seedMessages(t *testing.T, s *MessageService) {
	t.Helper()

	edited := time.Date(2023, time.January, 2, 8, 0, 0, 0, time.UTC)
	messages := monthMessages(2023, time.January, 1, 25)
	messages[0].User = models.User{ID: 7, Username: "bob", FirstName: "Bob", LastName: "Ray", Tags: []string{"admin"}}
	messages[1].Media = &models.Media{ID: 3, Type: "photo", URL: "p.jpg", Title: "pic", Thumb: "p_thumb.jpg"}
	messages[2].ReplyTo = 1
	messages[2].EditDate = &edited
	messages = append(messages, monthMessages(2023, time.March, 26, 4)...)

	require.NoError(t, s.SaveMessages(context.Background(), messages))
}

func TestMessageServiceMonths(t *testing.T) {
	s := newTestMessageService(t)
	seedMessages(t, s)
	ctx := context.Background()

	months, err := s.ListMonths(ctx, models.OldestFirst)
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, "2023-01", months[0].Slug)
	assert.Equal(t, 25, months[0].Count)
	assert.Equal(t, "Jan", months[0].Label)
	assert.Equal(t, "2023-03", months[1].Slug)

	months, err = s.ListMonths(ctx, models.NewestFirst)
	require.NoError(t, err)
	assert.Equal(t, "2023-03", months[0].Slug)

	count, err := s.CountMessages(ctx, 2023, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, count)

	count, err = s.CountMessages(ctx, 2023, 2)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMessageServiceDays(t *testing.T) {
	s := newTestMessageService(t)
	seedMessages(t, s)
	ctx := context.Background()

	days, err := s.ListDays(ctx, 2023, 1, models.OldestFirst, 10)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2023-01-01", days[0].Slug)
	assert.Equal(t, 24, days[0].Count)
	assert.Equal(t, 1, days[0].Page)
	assert.Equal(t, "2023-01-02", days[1].Slug)
	assert.Equal(t, 3, days[1].Page)

	days, err = s.ListDays(ctx, 2023, 1, models.NewestFirst, 10)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-02", days[0].Slug)
	assert.Equal(t, 3, days[0].Page)
	assert.Equal(t, 3, days[1].Page)

	_, err = s.ListDays(ctx, 2023, 1, models.OldestFirst, 0)
	assert.Error(t, err)
}

func TestMessageServiceListMessages(t *testing.T) {
	s := newTestMessageService(t)
	seedMessages(t, s)
	ctx := context.Background()

	page, err := s.ListMessages(ctx, 2023, 1, models.OldestFirst, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ids(page))

	first := page[0]
	assert.Equal(t, "bob", first.User.Username)
	assert.Equal(t, "Bob Ray", first.User.DisplayName())
	assert.Equal(t, []string{"admin"}, first.User.Tags)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Nil(t, first.Media)

	require.NotNil(t, page[1].Media)
	assert.Equal(t, "p.jpg", page[1].Media.URL)
	assert.Equal(t, "p_thumb.jpg", page[1].Media.Thumb)

	assert.Equal(t, int64(1), page[2].ReplyTo)
	require.NotNil(t, page[2].EditDate)

	next, err := s.ListMessages(ctx, 2023, 1, models.OldestFirst, page[len(page)-1].ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), next[0].ID)

	desc, err := s.ListMessages(ctx, 2023, 1, models.NewestFirst, newestFirstCursor, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{25, 24, 23}, ids(desc))

	none, err := s.ListMessages(ctx, 2023, 1, models.OldestFirst, 25, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMessageServiceMonthBoundaries(t *testing.T) {
	s := newTestMessageService(t)
	ctx := context.Background()

	user := models.User{ID: 1, Username: "ann"}
	require.NoError(t, s.SaveMessages(ctx, []models.Message{
		{ID: 1, Date: time.Date(2023, time.January, 31, 23, 59, 59, 0, time.UTC), Content: "last of jan", User: user},
		{ID: 2, Date: time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), Content: "first of feb", User: user},
		{ID: 3, Date: time.Date(2023, time.December, 31, 12, 0, 0, 0, time.UTC), Content: "end of year", User: user},
		{ID: 4, Date: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Content: "new year", User: user},
	}))

	jan, err := s.ListMessages(ctx, 2023, 1, models.OldestFirst, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(jan))

	feb, err := s.ListMessages(ctx, 2023, 2, models.NewestFirst, newestFirstCursor, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(feb))

	count, err := s.CountMessages(ctx, 2023, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	days, err := s.ListDays(ctx, 2024, 1, models.OldestFirst, 10)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-01-01", days[0].Slug)
}

func TestMessageServiceMonthFilterUsesDateIndex(t *testing.T) {
	s := newTestMessageService(t)
	from, to := monthBounds(2023, 1)

	var plan []string
	err := s.db.QueryEach(context.Background(), func(rows *sql.Rows) error {
		var id, parent, notused int
		var detail string
		if err := rows.Scan(&id, &parent, &notused, &detail); err != nil {
			return err
		}
		plan = append(plan, detail)
		return nil
	}, `EXPLAIN QUERY PLAN SELECT COUNT(*) FROM messages WHERE date >= ? AND date < ?`, from, to)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(plan, "\n"), "idx_messages_date")
}

func TestMessageServiceUpsert(t *testing.T) {
	s := newTestMessageService(t)
	ctx := context.Background()

	m := monthMessages(2023, time.May, 1, 1)[0]
	require.NoError(t, s.SaveMessages(ctx, []models.Message{m}))

	m.Content = "edited"
	m.User.Username = "ann2"
	require.NoError(t, s.SaveMessages(ctx, []models.Message{m}))

	got, err := s.ListMessages(ctx, 2023, 5, models.OldestFirst, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "edited", got[0].Content)
	assert.Equal(t, "ann2", got[0].User.Username)
}

func TestMessageServiceDrivesPaginator(t *testing.T) {
	s := newTestMessageService(t)
	seedMessages(t, s)

	registry := NewPageIDRegistry()
	p := NewPaginator(s, registry, nil, models.NewestFirst, 10, testLogger(t))
	pages, result := collectPages(t, p, models.NewMonth(2023, time.January, 25))

	require.Len(t, pages, 3)
	assert.Equal(t, "2023-01.html", pages[0].Filename)
	assert.Equal(t, "2023-01_1.html", pages[2].Filename)
	assert.Equal(t, 25, result.Messages)
	assert.Equal(t, 25, registry.Len())
}
