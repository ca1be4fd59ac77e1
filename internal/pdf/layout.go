package pdf

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"resumeBuilder/internal/document"
)

//go:embed templates/*.html
var templateFS embed.FS

var resumeTemplate = template.Must(
	template.New("resume.html").
		Funcs(template.FuncMap{
			"dateRange": dateRange,
			"lines":     lines,
		}).
		ParseFS(templateFS, "templates/resume.html"),
)

// RenderResume 用统一的朴素版式生成可打印的 HTML。
func RenderResume(r *document.Resume) (string, error) {
	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render resume html: %w", err)
	}
	return buf.String(), nil
}

func dateRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " – present"
	case start == "":
		return end
	default:
		return start + " – " + end
	}
}

// lines splits free text into paragraphs, dropping blank lines.
func lines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
