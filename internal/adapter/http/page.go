package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
)

//go:embed static/index.html
var staticFS embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

type pageData struct {
	From     string
	To       string
	TopN     int
	Band     string
	Bands    []string
	Fetch    bool
	Mode     string
	Prefix   string
	TextName string
	CSVName  string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	def := s.opts.Defaults
	data := pageData{
		From:     def.From.Format(domain.DayLayout),
		To:       def.To.Format(domain.DayLayout),
		TopN:     def.TopN,
		Band:     s.opts.Filter.Band,
		Bands:    domain.Bands,
		Fetch:    def.Fetch,
		Mode:     s.opts.Filter.Mode,
		Prefix:   s.opts.Filter.Prefix,
		TextName: s.opts.TextName,
		CSVName:  s.opts.CSVName,
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render index", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
