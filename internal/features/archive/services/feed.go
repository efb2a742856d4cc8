package services

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/models"
)

const (
	// RSSFilename and AtomFilename are the published feed names
	RSSFilename  = "index.xml"
	AtomFilename = "index.atom"

	// FallbackMIME is used when a media file cannot be inspected
	FallbackMIME = "application/octet-stream"
)

// rssDocument is an RSS 2.0 document
type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Generator     string    `xml:"generator"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	Author      string        `xml:"author,omitempty"`
	PubDate     string        `xml:"pubDate"`
	GUID        rssGUID       `xml:"guid"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// atomDocument is an Atom 1.0 document
type atomDocument struct {
	XMLName   xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	ID        string      `xml:"id"`
	Title     string      `xml:"title"`
	Subtitle  string      `xml:"subtitle,omitempty"`
	Updated   string      `xml:"updated"`
	Generator string      `xml:"generator"`
	Links     []atomLink  `xml:"link"`
	Entries   []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href   string `xml:"href,attr"`
	Rel    string `xml:"rel,attr,omitempty"`
	Type   string `xml:"type,attr,omitempty"`
	Length int64  `xml:"length,attr,omitempty"`
}

type atomEntry struct {
	ID        string      `xml:"id"`
	Title     string      `xml:"title"`
	Updated   string      `xml:"updated"`
	Published string      `xml:"published"`
	Author    *atomAuthor `xml:"author,omitempty"`
	Links     []atomLink  `xml:"link"`
	Content   atomContent `xml:"content"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

// MediaResolver inspects a local media file
type MediaResolver interface {
	Resolve(path string) (mime string, size int64, err error)
}

// FileMediaResolver sniffs MIME types from file content
type FileMediaResolver struct{}

// Resolve returns the detected MIME type and size of the file at path
func (FileMediaResolver) Resolve(path string) (string, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", 0, err
	}
	return mtype.String(), info.Size(), nil
}

// AbstractFunc produces the HTML summary of a feed entry
type AbstractFunc func(m models.Message, mediaMIME string) (string, error)

// DefaultAbstract uses the message text, else the media title, else nothing
func DefaultAbstract(m models.Message, _ string) (string, error) {
	if m.Content != "" {
		return m.Content, nil
	}
	if m.Media != nil {
		return m.Media.Title, nil
	}
	return "", nil
}

// FeedDocuments holds the rendered feeds and the problems met while
// building them
type FeedDocuments struct {
	RSS      []byte
	Atom     []byte
	Warnings []string
}

// FeedAssembler renders the feed window into RSS and Atom documents
type FeedAssembler struct {
	site      models.SiteConfig
	title     string
	registry  *PageIDRegistry
	media     MediaResolver
	abstract  AbstractFunc
	generator string
	logger    *core.Logger
}

// NewFeedAssembler creates an assembler. A nil abstract uses DefaultAbstract
// and a nil media resolver uses FileMediaResolver.
func NewFeedAssembler(site models.SiteConfig, title string, registry *PageIDRegistry, media MediaResolver, abstract AbstractFunc, generator string, logger *core.Logger) *FeedAssembler {
	if media == nil {
		media = FileMediaResolver{}
	}
	if abstract == nil {
		abstract = DefaultAbstract
	}
	return &FeedAssembler{
		site:      site,
		title:     title,
		registry:  registry,
		media:     media,
		abstract:  abstract,
		generator: generator,
		logger:    logger,
	}
}

type feedEntry struct {
	message   models.Message
	permalink string
	title     string
	abstract  string
	mediaURL  string
	mediaMIME string
	mediaSize int64
}

// Render builds both feeds from entries given oldest first. Entries are
// published newest first. The registry must already hold every entry.
func (a *FeedAssembler) Render(entries []models.Message) (*FeedDocuments, error) {
	docs := &FeedDocuments{}
	siteURL := strings.TrimRight(a.site.SiteURL, "/")

	prepared := make([]feedEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		m := entries[i]
		entry := feedEntry{
			message: m,
			title:   fmt.Sprintf("@%s on %s (#%d)", m.User.Username, m.Date.UTC().Format(sqlDateLayout), m.ID),
		}

		if filename, ok := a.registry.Resolve(m.ID); ok {
			entry.permalink = fmt.Sprintf("%s/%s#%d", siteURL, filename, m.ID)
		} else {
			entry.permalink = fmt.Sprintf("%s/#%d", siteURL, m.ID)
			docs.Warnings = append(docs.Warnings, fmt.Sprintf("feed entry %d has no page", m.ID))
		}

		if m.HasMedia() {
			entry.mediaURL = fmt.Sprintf("%s/%s/%s", siteURL, filepath.Base(a.site.MediaDir), path.Clean(m.Media.URL))
			mediaPath := filepath.Join(a.site.MediaDir, filepath.FromSlash(m.Media.URL))

			mime, size, err := a.media.Resolve(mediaPath)
			if err != nil {
				mime, size = FallbackMIME, 0
				docs.Warnings = append(docs.Warnings, fmt.Sprintf("media %s of message %d: %v", m.Media.URL, m.ID, err))
				a.logger.Warn("Media not resolvable, using fallback type", "message_id", m.ID, "path", mediaPath, "error", err)
			} else {
				a.logger.Debug("Resolved media", "message_id", m.ID, "mime", mime, "size", humanize.Bytes(uint64(size)))
			}
			entry.mediaMIME, entry.mediaSize = mime, size
		}

		abstract, err := a.abstract(m, entry.mediaMIME)
		if err != nil {
			return nil, core.NewRenderError(fmt.Sprintf("feed abstract of message %d", m.ID), err)
		}
		entry.abstract = abstract

		prepared = append(prepared, entry)
	}

	var updated time.Time
	if len(entries) > 0 {
		updated = entries[len(entries)-1].Date.UTC()
	}

	var err error
	if docs.RSS, err = a.renderRSS(siteURL, updated, prepared); err != nil {
		return nil, core.NewRenderError(RSSFilename, err)
	}
	if docs.Atom, err = a.renderAtom(siteURL, updated, prepared); err != nil {
		return nil, core.NewRenderError(AtomFilename, err)
	}

	return docs, nil
}

func (a *FeedAssembler) renderRSS(siteURL string, updated time.Time, entries []feedEntry) ([]byte, error) {
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.title,
			Link:        siteURL,
			Description: a.site.SiteDescription,
			Generator:   a.generator,
			Items:       make([]rssItem, 0, len(entries)),
		},
	}
	if !updated.IsZero() {
		doc.Channel.LastBuildDate = updated.Format(time.RFC1123Z)
	}

	for _, e := range entries {
		item := rssItem{
			Title:       e.title,
			Link:        e.permalink,
			Description: e.abstract,
			PubDate:     e.message.Date.UTC().Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: "true", Value: e.permalink},
		}
		if e.mediaURL != "" {
			item.Enclosure = &rssEnclosure{URL: e.mediaURL, Length: e.mediaSize, Type: e.mediaMIME}
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	return marshalXML(doc)
}

func (a *FeedAssembler) renderAtom(siteURL string, updated time.Time, entries []feedEntry) ([]byte, error) {
	doc := atomDocument{
		ID:        siteURL,
		Title:     a.title,
		Subtitle:  a.site.SiteDescription,
		Updated:   updated.Format(time.RFC3339),
		Generator: a.generator,
		Links:     []atomLink{{Href: siteURL, Rel: "alternate"}},
		Entries:   make([]atomEntry, 0, len(entries)),
	}

	for _, e := range entries {
		date := e.message.Date.UTC().Format(time.RFC3339)
		entry := atomEntry{
			ID:        e.permalink,
			Title:     e.title,
			Updated:   date,
			Published: date,
			Links:     []atomLink{{Href: e.permalink, Rel: "alternate"}},
			Content:   atomContent{Type: "html", Body: e.abstract},
		}
		if e.message.User.Username != "" {
			entry.Author = &atomAuthor{Name: e.message.User.Username}
		}
		if e.mediaURL != "" {
			entry.Links = append(entry.Links, atomLink{Href: e.mediaURL, Rel: "enclosure", Type: e.mediaMIME, Length: e.mediaSize})
		}
		doc.Entries = append(doc.Entries, entry)
	}

	return marshalXML(doc)
}

func marshalXML(doc any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
