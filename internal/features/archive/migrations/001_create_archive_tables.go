package migrations

import (
	"chatarchive/internal/core"
)

// Migration001CreateArchiveTables creates the message archive tables
var Migration001CreateArchiveTables = core.Migration{
	Version:     1,
	Name:        "create_archive_tables",
	Description: "Create users, media and messages tables",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			avatar TEXT NOT NULL DEFAULT '',
			last_updated TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%S', 'now'))
		);

		CREATE TABLE IF NOT EXISTS media (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			thumb TEXT NOT NULL DEFAULT ''
		);

		-- Dates are stored as UTC 'YYYY-MM-DD HH:MM:SS' text so strftime
		-- grouping is independent of the driver's time encoding.
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL DEFAULT 'message',
			date TEXT NOT NULL,
			edit_date TEXT,
			content TEXT NOT NULL DEFAULT '',
			reply_to INTEGER,
			user_id INTEGER REFERENCES users(id),
			media_id INTEGER REFERENCES media(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);
	`,
	DownSQL: `
		DROP INDEX IF EXISTS idx_messages_date;
		DROP TABLE IF EXISTS messages;
		DROP TABLE IF EXISTS media;
		DROP TABLE IF EXISTS users;
	`,
}
