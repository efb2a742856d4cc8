// Package templates holds the built-in site templates. A site's
// template_dir overrides any of them by file name.
package templates

import "embed"

//go:embed *.html *.js *.css
var FS embed.FS
