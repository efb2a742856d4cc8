package models

// Page is one window of a month's messages
type Page struct {
	Month    Month  `json:"month"`
	Filename string `json:"filename"`
	Number   int    `json:"number"`
	Total    int    `json:"total"`
	// Top marks the unsuffixed page, <slug>.html
	Top      bool      `json:"top"`
	Messages []Message `json:"messages"`
}
