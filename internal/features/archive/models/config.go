package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// SiteConfig is the immutable build configuration handed to every service
type SiteConfig struct {
	NewOnTop          bool
	PerPage           int
	IncrementalBuilds bool
	ShowDayIndex      bool
	PublishRSSFeed    bool
	RSSFeedEntries    int
	Symlink           bool

	PublishDir  string
	StaticDir   string
	MediaDir    string
	TemplateDir string

	SiteURL         string
	SiteName        string
	SiteDescription string
	Group           string
}

// Order returns the traversal direction for the configuration
func (c SiteConfig) Order() SortOrder {
	if c.NewOnTop {
		return NewestFirst
	}
	return OldestFirst
}

// Validate checks option ranges
func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PerPage,
			validation.Required.Error("per_page is required"),
			validation.Min(1).Error("per_page must be at least 1"),
		),
		validation.Field(&c.RSSFeedEntries,
			validation.Min(0).Error("rss_feed_entries must not be negative"),
		),
		validation.Field(&c.PublishDir,
			validation.Required.Error("publish_dir is required"),
		),
		validation.Field(&c.SiteURL,
			validation.When(c.PublishRSSFeed,
				validation.Required.Error("site_url is required when publishing feeds"),
				is.URL.Error("site_url must be a URL"),
			),
		),
	)
}
