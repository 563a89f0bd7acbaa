package view

import (
	"bytes"
	"html/template"
)

// NotFoundPageData provides the dynamic fields for the friendly 404 page.
type NotFoundPageData struct {
	Path        string
	Suggestions []string
}

var notFoundPageTmpl = template.Must(template.New("not_found_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<meta name="robots" content="noindex, nofollow" />
	<title>Link not found</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(520px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
			backdrop-filter: blur(18px);
		}
		h1 { font-size: 1.5rem; margin-bottom: 6px; }
		p { color: var(--muted); margin: 0 0 18px; }
		code {
			background: rgba(255,255,255,0.08);
			border-radius: 6px;
			padding: 2px 6px;
		}
		ul { list-style: none; margin: 0; padding: 0; }
		li { margin: 8px 0; }
		a { color: var(--accent); text-decoration: none; }
		a:hover { text-decoration: underline; }
	</style>
</head>
<body>
	<div class="card">
		<h1>Link not found</h1>
		<p>Nothing lives at <code>{{.Path}}</code>.</p>
		{{if .Suggestions}}
		<p>Maybe you meant one of these:</p>
		<ul>
			{{range .Suggestions}}<li><a href="{{.}}">{{.}}</a></li>{{end}}
		</ul>
		{{end}}
	</div>
</body>
</html>
`))

// RenderNotFoundPage renders the friendly 404 page with optional suggestions.
func RenderNotFoundPage(data NotFoundPageData) (string, error) {
	var buf bytes.Buffer
	if err := notFoundPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
