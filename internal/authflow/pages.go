// ABOUTME: Renders the embedded callback pages shown in the user's browser.
// ABOUTME: Markdown sources are converted to HTML and wrapped in a small shell.

package authflow

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"net/http"
	"text/template"

	"github.com/yuin/goldmark"
)

//go:embed pages/*.md
var pagesFS embed.FS

const pageShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Lawmatics Authorization</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 36rem; margin: 4rem auto; padding: 0 1rem; color: #1a1a2e; }
h1 { font-size: 1.4rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

func renderPage(name string, data any) ([]byte, error) {
	source, err := pagesFS.ReadFile("pages/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading page %s: %w", name, err)
	}

	if data != nil {
		tmpl, err := template.New(name).Parse(string(source))
		if err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", name, err)
		}
		var filled bytes.Buffer
		if err := tmpl.Execute(&filled, data); err != nil {
			return nil, fmt.Errorf("rendering page %s: %w", name, err)
		}
		source = filled.Bytes()
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert(source, &htmlBuf); err != nil {
		return nil, fmt.Errorf("converting page %s: %w", name, err)
	}

	return []byte(fmt.Sprintf(pageShell, htmlBuf.String())), nil
}

func writeSuccessPage(w http.ResponseWriter) {
	page, err := renderPage("success.md", nil)
	if err != nil {
		http.Error(w, "Authorization complete. You can close this window.", http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func writeErrorPage(w http.ResponseWriter, reason string) {
	page, err := renderPage("error.md", struct{ Reason string }{Reason: html.EscapeString(reason)})
	if err != nil {
		http.Error(w, "Authorization failed: "+reason, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write(page)
}
