// Package assets embeds the dashboard front end.
package assets

import _ "embed"

// Template is the HTML page template.
//
//go:embed index.html.tpl
var Template string

// CSS is the page stylesheet.
//
//go:embed style.css
var CSS string

// JS drives the map, dropdowns and statistics panel.
//
//go:embed script.js
var JS string

// Icon is the SVG favicon, also inlined into the page header.
//
//go:embed icon.svg
var Icon string
