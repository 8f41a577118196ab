// Package web embeds the dashboard page and its browser assets.
package web

import "embed"

// TemplatesFS holds the dashboard page template.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds dashboard.js and style.css, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
