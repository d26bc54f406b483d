package handlers

const layoutHTML = `<!doctype html>
<html lang="{{.Locale}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | {{t .Locale "app.name"}}</title>
<style>
body{font-family:system-ui,-apple-system,"Segoe UI",sans-serif;margin:0;background:#f6f7f9;color:#1d2330}
header{background:#1d2330;padding:.75rem 1.5rem}
nav a{color:#d6dbe6;margin-right:1.25rem;text-decoration:none}
nav a[aria-current=page]{color:#fff;font-weight:600}
main{max-width:760px;margin:2rem auto;padding:0 1.5rem}
form{display:flex;flex-direction:column;gap:.75rem;background:#fff;padding:1.25rem;border-radius:8px}
textarea{min-height:6rem;font:inherit}
button{align-self:flex-start;padding:.5rem 1.25rem;border:0;border-radius:6px;background:#3867d6;color:#fff;font:inherit;cursor:pointer}
img.result{max-width:100%;border-radius:8px;background:repeating-conic-gradient(#ddd 0 25%,#fff 0 50%) 0 0/20px 20px}
.hint{color:#6b7385;font-size:.9rem}
.error{background:#fdecea;color:#8a1c12;padding:1rem;border-radius:8px}
table{width:100%;border-collapse:collapse;background:#fff}
th,td{padding:.5rem;border-bottom:1px solid #e3e6ec;text-align:left;font-size:.9rem}
</style>
</head>
<body>
<header><nav>{{range .NavItems}}<a href="{{.Href}}"{{if .Active}} aria-current="page"{{end}}>{{.Label}}</a>{{end}}</nav></header>
<main>
{{.Body}}
</main>
</body>
</html>`

const bodiesHTML = `
{{define "home"}}
<h1>{{t .Locale "app.name"}}</h1>
<p>{{t .Locale "home.intro"}}</p>
<ul>
<li><a href="/generate">{{t .Locale "nav.generate"}}</a></li>
<li><a href="/remove">{{t .Locale "nav.remove"}}</a></li>
</ul>
{{end}}

{{define "generate"}}
<h1>{{t .Locale "generate.title"}}</h1>
<form method="post" action="/generate">
<label for="prompt">{{t .Locale "generate.label"}}</label>
<textarea id="prompt" name="prompt" maxlength="{{.Page.MaxPromptLength}}" required></textarea>
<span class="hint">{{t .Locale "generate.hint" .Page.MaxPromptLength}}</span>
<button type="submit">{{t .Locale "generate.submit"}}</button>
</form>
{{end}}

{{define "remove"}}
<h1>{{t .Locale "remove.title"}}</h1>
<form method="post" action="/remove" enctype="multipart/form-data">
<label for="image">{{t .Locale "remove.label"}}</label>
<input id="image" type="file" name="image" accept="image/*" required>
<span class="hint">{{t .Locale "remove.hint" .Page.MaxUpload}}</span>
<button type="submit">{{t .Locale "remove.submit"}}</button>
</form>
{{end}}

{{define "result"}}
<h1>{{.Page.Heading}}</h1>
{{if .Page.Prompt}}<p class="prompt">{{.Page.Prompt}}</p>{{end}}
<img class="result" src="{{.Page.DataURI}}" alt="{{.Page.Heading}}">
<p><a href="{{.Page.DownloadURL}}" download="{{.Page.Filename}}">{{t .Locale "result.download"}}</a> | <a href="{{.Page.Back}}">{{t .Locale "result.again"}}</a></p>
{{end}}

{{define "error"}}
<h1>{{.Page.Heading}}</h1>
<p class="error">{{.Page.Message}}</p>
{{if .Page.Back}}<p><a href="{{.Page.Back}}">{{t .Locale "result.again"}}</a></p>{{end}}
{{end}}

{{define "history"}}
<h1>{{t .Locale "history.title"}}</h1>
{{if .Page.Entries}}
<table>
<thead><tr><th>{{t .Locale "history.when"}}</th><th>{{t .Locale "history.kind"}}</th><th>{{t .Locale "history.provider"}}</th><th>{{t .Locale "history.status"}}</th><th>{{t .Locale "history.duration"}}</th><th></th></tr></thead>
<tbody>
{{range .Page.Entries}}<tr>
<td>{{.CreatedAt.UTC.Format "2006-01-02 15:04:05"}}</td>
<td>{{.Kind}}</td>
<td>{{.Provider}}</td>
<td title="{{.Error}}">{{.Status}}</td>
<td>{{.DurationMS}} ms</td>
<td>{{if .StorageKey}}<a href="/outputs/{{.StorageKey}}">{{.StorageKey}}</a>{{end}}</td>
</tr>{{end}}
</tbody>
</table>
{{else}}
<p>{{t .Locale "history.empty"}}</p>
{{end}}
{{end}}
`
