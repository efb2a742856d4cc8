package archive

import (
	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/models"
)

// Config represents archive feature configuration
type Config struct {
	Site     models.SiteConfig
	Title    string
	Database string
}

// NewConfig creates archive config from core config
func NewConfig(coreConfig *core.Config) *Config {
	return &Config{
		Site: models.SiteConfig{
			NewOnTop:          coreConfig.Build.NewOnTop,
			PerPage:           coreConfig.Build.PerPage,
			IncrementalBuilds: coreConfig.Build.IncrementalBuilds,
			ShowDayIndex:      coreConfig.Build.ShowDayIndex,
			PublishRSSFeed:    coreConfig.Build.PublishRSSFeed,
			RSSFeedEntries:    coreConfig.Build.RSSFeedEntries,
			Symlink:           coreConfig.Build.Symlink,
			PublishDir:        coreConfig.Paths.PublishDir,
			StaticDir:         coreConfig.Paths.StaticDir,
			MediaDir:          coreConfig.Paths.MediaDir,
			TemplateDir:       coreConfig.Paths.TemplateDir,
			SiteURL:           coreConfig.Site.SiteURL,
			SiteName:          coreConfig.Site.SiteName,
			SiteDescription:   coreConfig.Site.SiteDescription,
			Group:             coreConfig.Site.Group,
		},
		Title:    coreConfig.SiteTitle(),
		Database: coreConfig.Database.Path,
	}
}

// Validate validates the archive configuration
func (c *Config) Validate() error {
	if err := c.Site.Validate(); err != nil {
		return core.NewConfigurationError("invalid archive configuration", err)
	}
	return nil
}
