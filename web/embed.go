package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// TemplatesFS embeds HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static/*
var StaticFS embed.FS

// Funcs are the helpers every page template may call.
var Funcs = template.FuncMap{
	"money": models.FormatMoney,
	"input": models.FormatInput,
	"inc":   func(i int) int { return i + 1 },
}

// Templates parses every page template.
func Templates() (*template.Template, error) {
	t, err := template.New("pages").Funcs(Funcs).ParseFS(TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Static returns the asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
