package web

import "html/template"

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>AI Meme Genius</title></head>
<body>
<h1>AI Meme Generator</h1>
<form action="/meme" method="post" enctype="multipart/form-data">
  <p><label>Upload an image <input type="file" name="image" accept="image/png,image/jpeg,image/gif,image/webp" required></label></p>
  <p><label>Humor
    <select name="humor">
    {{- range .Humors}}
      <option value="{{.}}"{{if eq . $.Humor}} selected{{end}}>{{.}}</option>
    {{- end}}
    </select>
  </label></p>
  <p><label>Top text (optional) <input type="text" name="top"></label></p>
  <p><label>Bottom text (optional) <input type="text" name="bottom"></label></p>
  <p><label>Format
    <select name="format">
    {{- range .Formats}}
      <option value="{{.}}"{{if eq . $.Format}} selected{{end}}>{{.}}</option>
    {{- end}}
    </select>
  </label></p>
  <p><button type="submit">Generate Meme</button></p>
</form>
</body>
</html>
`))

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>AI Meme Genius</title></head>
<body>
<h2>Resulting Meme:</h2>
{{- if .Inline}}
<img src="{{.DataURI}}" alt="meme" style="max-width:100%">
{{- else}}
<object data="{{.DataURI}}" type="{{.ContentType}}" width="100%" height="600"></object>
{{- end}}
<p><a href="{{.DataURI}}" download="{{.Filename}}">Download Meme</a></p>
<p><strong>AI suggested:</strong> {{.Suggested.Top}} | {{.Suggested.Bottom}}</p>
<p><a href="/">Make another</a></p>
</body>
</html>
`))
