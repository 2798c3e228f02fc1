// Package web carries the dashboard templates and stylesheet inside the binary.
package web

import "embed"

// TemplatesFS holds the dashboard page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet served under /static/.
//
//go:embed static/*.css
var StaticFS embed.FS
