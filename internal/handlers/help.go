package handlers

import (
	"bytes"
	"embed"
	"net/http"
	"strings"
	"sync"

	"AccessDeck/internal/i18n"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/version"
	"AccessDeck/internal/web"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed content/*.md
var helpContent embed.FS

// HelpHandler serves the static help pages, rendered once from markdown.
type HelpHandler struct {
	md   goldmark.Markdown
	once sync.Once
	html map[string]string
	err  error
}

func NewHelpHandler() *HelpHandler {
	return &HelpHandler{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type unblockResponse struct {
	Title   string `json:"title"`
	Banner  string `json:"banner"`
	Command string `json:"command"`
	HTML    string `json:"html"`
}

// Unblock returns the Protected View help for ?file=.
func (h *HelpHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	html, err := h.page("unblock")
	if err != nil {
		web.FailErr(w, r, web.ErrInternal)
		return
	}
	web.OK(w, r, unblockResponse{
		Title:   web.T(r, i18n.MsgHelpUnblockTitle),
		Banner:  web.T(r, i18n.MsgHelpProtectedBanner),
		Command: remediation.UnblockCommand(strings.TrimSpace(r.URL.Query().Get("file"))),
		HTML:    html,
	})
}

func (h *HelpHandler) About(w http.ResponseWriter, r *http.Request) {
	html, err := h.page("about")
	if err != nil {
		web.FailErr(w, r, web.ErrInternal)
		return
	}
	web.OK(w, r, map[string]string{
		"version": version.Version,
		"html":    html,
	})
}

func (h *HelpHandler) page(name string) (string, error) {
	h.once.Do(func() {
		h.html = make(map[string]string)
		entries, err := helpContent.ReadDir("content")
		if err != nil {
			h.err = err
			return
		}
		for _, e := range entries {
			src, err := helpContent.ReadFile("content/" + e.Name())
			if err != nil {
				h.err = err
				return
			}
			var buf bytes.Buffer
			if err := h.md.Convert(src, &buf); err != nil {
				h.err = err
				return
			}
			h.html[strings.TrimSuffix(e.Name(), ".md")] = buf.String()
		}
	})
	return h.html[name], h.err
}
