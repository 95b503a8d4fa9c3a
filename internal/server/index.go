package server

import (
	_ "embed"
	"html/template"
	"log/slog"
	"strings"

	"github.com/valyala/fasthttp"
)

//go:embed index.html.tmpl
var indexSource string

var indexTemplate = template.Must(template.New("index").Parse(indexSource))

type indexData struct {
	ShowInstall bool
}

// handleIndex renders the landing page. Apple devices get the shortcut
// install prompt since that's the only platform the shortcut runs on.
func (s *Server) handleIndex(ctx *fasthttp.RequestCtx) {
	ua := string(ctx.UserAgent())
	data := indexData{
		ShowInstall: strings.Contains(ua, "Mac OS X") ||
			strings.Contains(ua, "iPhone") ||
			strings.Contains(ua, "iPad"),
	}

	ctx.SetContentType("text/html; charset=utf-8")
	if err := indexTemplate.Execute(ctx, data); err != nil {
		slog.Error("Failed to render index page",
			"error", err.Error())
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}
