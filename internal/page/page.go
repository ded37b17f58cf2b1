// Package page renders the single-page dashboard with inlined, minified assets.
package page

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"

	"github.com/woozymasta/cngmap/assets"
	"github.com/woozymasta/cngmap/internal/config"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

// Settings is handed to the front end as JSON.
type Settings struct {
	View     config.View      `json:"view"`
	Basemaps []config.Basemap `json:"basemaps"`
	Layers   config.Layers    `json:"layers"`
}

type pageData struct {
	Title    string
	CSS      template.CSS
	JS       template.JS
	Icon     template.HTML
	Settings template.JS
}

// NewMinifier returns a minifier for the asset types used by the page.
func NewMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	return m
}

// Build renders the page for cfg.
func Build(cfg *config.Config) ([]byte, error) {
	m := NewMinifier()

	cssMin, err := m.String("text/css", assets.CSS)
	if err != nil {
		return nil, fmt.Errorf("minify CSS: %w", err)
	}
	jsMin, err := m.String("text/javascript", assets.JS)
	if err != nil {
		return nil, fmt.Errorf("minify JS: %w", err)
	}
	svgMin, err := m.String("image/svg+xml", assets.Icon)
	if err != nil {
		return nil, fmt.Errorf("minify SVG: %w", err)
	}

	settings, err := json.Marshal(Settings{
		View:     cfg.View,
		Basemaps: cfg.Basemaps,
		Layers:   cfg.Layers,
	})
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	tmpl, err := template.New("index").Parse(assets.Template)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, pageData{
		Title:    cfg.Title,
		CSS:      template.CSS(cssMin),
		JS:       template.JS(jsMin),
		Icon:     template.HTML(svgMin),
		Settings: template.JS(settings),
	})
	if err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	out, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify HTML: %w", err)
	}

	return out, nil
}
