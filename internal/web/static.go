package web

import "embed"

// StaticFS holds the built dashboard bundle.
//
//go:embed all:dist
var StaticFS embed.FS
