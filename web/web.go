// Package web embeds the HTML templates and builds the Fiber view engine.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFS embed.FS

// BaseLayout wraps every page.
const BaseLayout = "layouts/base"

// NewEngine returns the template engine over the embedded templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(Funcs())
	return engine
}

// Funcs are the helpers available in every template.
func Funcs() map[string]interface{} {
	return map[string]interface{}{
		"mediaURL": func(name string) string {
			return "/media/" + name
		},
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("2 January 2006 15:04")
		},
		"selected": func(current string, id uint) bool {
			return current != "" && current == strconv.FormatUint(uint64(id), 10)
		},
	}
}
