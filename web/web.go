// Package web はHTMLテンプレートをバイナリに埋め込んで提供します。
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates は埋め込み済みのテンプレート一式を返します。
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}
