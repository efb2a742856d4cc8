package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/models"
)

// sqlDateLayout is the UTC text encoding of message dates in the messages table
const sqlDateLayout = "2006-01-02 15:04:05"

// Source is the ordered-query capability the build pipeline reads from
type Source interface {
	ListMonths(ctx context.Context, order models.SortOrder) ([]models.Month, error)
	ListDays(ctx context.Context, year, month int, order models.SortOrder, perPage int) ([]models.Day, error)
	CountMessages(ctx context.Context, year, month int) (int, error)
	ListMessages(ctx context.Context, year, month int, order models.SortOrder, cursor int64, limit int) ([]models.Message, error)
}

// MessageService reads and writes the message archive in SQLite
type MessageService struct {
	db     *core.Database
	logger *core.Logger
}

// NewMessageService creates a new message service
func NewMessageService(db *core.Database, logger *core.Logger) *MessageService {
	return &MessageService{
		db:     db,
		logger: logger,
	}
}

var _ Source = (*MessageService)(nil)

// monthBounds returns the half-open [start, end) date range of a month in
// the stored text encoding, so month filters can use idx_messages_date.
func monthBounds(year, month int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format(sqlDateLayout), start.AddDate(0, 1, 0).Format(sqlDateLayout)
}

// ListMonths returns every month holding at least one message
func (s *MessageService) ListMonths(ctx context.Context, order models.SortOrder) ([]models.Month, error) {
	query := `
		SELECT strftime('%Y', date) AS y, strftime('%m', date) AS m, COUNT(*)
		FROM messages
		GROUP BY y, m
		ORDER BY y ` + order.String() + `, m ` + order.String()

	var months []models.Month
	err := s.db.QueryEach(ctx, func(rows *sql.Rows) error {
		var year, month, count int
		if err := rows.Scan(&year, &month, &count); err != nil {
			return fmt.Errorf("failed to scan month: %w", err)
		}
		months = append(months, models.NewMonth(year, time.Month(month), count))
		return nil
	}, query)
	if err != nil {
		return nil, core.NewDatabaseError("failed to list months", err)
	}

	return months, nil
}

// ListDays returns the days of a month with message counts. Each day's
// Page is the page number the paginator assigns to the window holding
// the day's first message in traversal order.
func (s *MessageService) ListDays(ctx context.Context, year, month int, order models.SortOrder, perPage int) ([]models.Day, error) {
	if perPage < 1 {
		return nil, core.NewValidationError("per_page must be at least 1", nil)
	}

	from, to := monthBounds(year, month)
	query := `
		SELECT strftime('%Y-%m-%d', date) AS day, COUNT(*)
		FROM messages
		WHERE date >= ? AND date < ?
		GROUP BY day
		ORDER BY day ` + order.String()

	var days []models.Day
	total := 0
	err := s.db.QueryEach(ctx, func(rows *sql.Rows) error {
		var slug string
		var count int
		if err := rows.Scan(&slug, &count); err != nil {
			return fmt.Errorf("failed to scan day: %w", err)
		}
		date, err := time.Parse("2006-01-02", slug)
		if err != nil {
			return fmt.Errorf("failed to parse day %q: %w", slug, err)
		}
		days = append(days, models.Day{Date: date, Slug: slug, Count: count})
		total += count
		return nil
	}, query, from, to)
	if err != nil {
		return nil, core.NewDatabaseError("failed to list days", err)
	}

	totalPages := TotalPages(total, perPage)
	seen := 0
	for i := range days {
		window := seen/perPage + 1
		if order == models.NewestFirst {
			days[i].Page = totalPages + 1 - window
		} else {
			days[i].Page = window
		}
		seen += days[i].Count
	}

	return days, nil
}

// CountMessages returns the number of messages in a month
func (s *MessageService) CountMessages(ctx context.Context, year, month int) (int, error) {
	from, to := monthBounds(year, month)
	var count int
	err := s.db.QueryRowScan(ctx,
		`SELECT COUNT(*) FROM messages WHERE date >= ? AND date < ?`,
		[]any{from, to}, &count)
	if err != nil {
		return 0, core.NewDatabaseError("failed to count messages", err)
	}
	return count, nil
}

// ListMessages returns up to limit messages of a month strictly beyond
// cursor in the given direction
func (s *MessageService) ListMessages(ctx context.Context, year, month int, order models.SortOrder, cursor int64, limit int) ([]models.Message, error) {
	cmp := ">"
	if order == models.NewestFirst {
		cmp = "<"
	}
	from, to := monthBounds(year, month)

	query := `
		SELECT m.id, m.type, m.date, m.edit_date, m.content, COALESCE(m.reply_to, 0),
		       COALESCE(u.id, 0), COALESCE(u.username, ''), COALESCE(u.first_name, ''),
		       COALESCE(u.last_name, ''), COALESCE(u.tags, '[]'), COALESCE(u.avatar, ''),
		       md.id, md.type, md.url, md.title, md.description, md.thumb
		FROM messages m
		LEFT JOIN users u ON u.id = m.user_id
		LEFT JOIN media md ON md.id = m.media_id
		WHERE m.date >= ? AND m.date < ? AND m.id ` + cmp + ` ?
		ORDER BY m.id ` + order.String() + `
		LIMIT ?`

	var messages []models.Message
	err := s.db.QueryEach(ctx, func(rows *sql.Rows) error {
		message, err := scanMessage(rows)
		if err != nil {
			return err
		}
		messages = append(messages, message)
		return nil
	}, query, from, to, cursor, limit)
	if err != nil {
		return nil, core.NewDatabaseError("failed to list messages", err)
	}

	return messages, nil
}

func scanMessage(rows *sql.Rows) (models.Message, error) {
	var (
		m        models.Message
		date     string
		editDate sql.NullString
		tags     string

		mediaID                                   sql.NullInt64
		mediaType, mediaURL, mediaTitle, mediaDsc sql.NullString
		mediaThumb                                sql.NullString
	)

	err := rows.Scan(
		&m.ID, &m.Type, &date, &editDate, &m.Content, &m.ReplyTo,
		&m.User.ID, &m.User.Username, &m.User.FirstName,
		&m.User.LastName, &tags, &m.User.Avatar,
		&mediaID, &mediaType, &mediaURL, &mediaTitle, &mediaDsc, &mediaThumb,
	)
	if err != nil {
		return m, fmt.Errorf("failed to scan message: %w", err)
	}

	if m.Date, err = time.ParseInLocation(sqlDateLayout, date, time.UTC); err != nil {
		return m, fmt.Errorf("failed to parse date of message %d: %w", m.ID, err)
	}
	if editDate.Valid && editDate.String != "" {
		if t, err := time.ParseInLocation(sqlDateLayout, editDate.String, time.UTC); err == nil {
			m.EditDate = &t
		}
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &m.User.Tags); err != nil {
			return m, fmt.Errorf("failed to decode tags of user %d: %w", m.User.ID, err)
		}
	}
	if mediaID.Valid {
		m.Media = &models.Media{
			ID:          mediaID.Int64,
			Type:        mediaType.String,
			URL:         mediaURL.String,
			Title:       mediaTitle.String,
			Description: mediaDsc.String,
			Thumb:       mediaThumb.String,
		}
	}

	return m, nil
}

// SaveMessages upserts messages together with their users and media in
// one transaction
func (s *MessageService) SaveMessages(ctx context.Context, messages []models.Message) error {
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, m := range messages {
			if m.User.ID != 0 {
				if err := saveUser(ctx, tx, m.User); err != nil {
					return err
				}
			}
			if m.Media != nil {
				if err := saveMedia(ctx, tx, *m.Media); err != nil {
					return err
				}
			}
			if err := saveMessage(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.NewDatabaseError("failed to save messages", err)
	}

	s.logger.Debug("Saved messages", "count", len(messages))
	return nil
}

func saveUser(ctx context.Context, tx *sql.Tx, u models.User) error {
	tags, err := json.Marshal(u.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags of user %d: %w", u.ID, err)
	}
	if u.Tags == nil {
		tags = []byte("[]")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, tags, avatar)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			tags = excluded.tags,
			avatar = excluded.avatar,
			last_updated = strftime('%Y-%m-%d %H:%M:%S', 'now')`,
		u.ID, u.Username, u.FirstName, u.LastName, string(tags), u.Avatar)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", u.ID, err)
	}
	return nil
}

func saveMedia(ctx context.Context, tx *sql.Tx, md models.Media) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO media (id, type, url, title, description, thumb)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			url = excluded.url,
			title = excluded.title,
			description = excluded.description,
			thumb = excluded.thumb`,
		md.ID, md.Type, md.URL, md.Title, md.Description, md.Thumb)
	if err != nil {
		return fmt.Errorf("failed to save media %d: %w", md.ID, err)
	}
	return nil
}

func saveMessage(ctx context.Context, tx *sql.Tx, m models.Message) error {
	var userID, mediaID, replyTo, editDate any
	if m.User.ID != 0 {
		userID = m.User.ID
	}
	if m.Media != nil {
		mediaID = m.Media.ID
	}
	if m.ReplyTo != 0 {
		replyTo = m.ReplyTo
	}
	if m.EditDate != nil {
		editDate = m.EditDate.UTC().Format(sqlDateLayout)
	}
	msgType := m.Type
	if msgType == "" {
		msgType = "message"
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, type, date, edit_date, content, reply_to, user_id, media_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			date = excluded.date,
			edit_date = excluded.edit_date,
			content = excluded.content,
			reply_to = excluded.reply_to,
			user_id = excluded.user_id,
			media_id = excluded.media_id`,
		m.ID, msgType, m.Date.UTC().Format(sqlDateLayout), editDate, m.Content, replyTo, userID, mediaID)
	if err != nil {
		return fmt.Errorf("failed to save message %d: %w", m.ID, err)
	}
	return nil
}
