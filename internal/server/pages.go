package server

import "fmt"

// indexPageHTML renders the static landing page named by spec §4.9 ("GET /
// — static HTML index"). No templating library is pulled in for two
// small, mostly-static pages; html/template buys nothing here since none
// of this content is built from untrusted input.
func indexPageHTML(modelFamily string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Blue Onyx</title><link rel="icon" href="/favicon.ico"><link rel="stylesheet" href="/static/style.css"></head>
<body>
<h1>Blue Onyx object detection server</h1>
<p>Model family: %s</p>
<ul>
<li><a href="/test">Try the detection endpoint</a></li>
<li><a href="/stats">Statistics (JSON)</a></li>
<li><a href="/metrics">Prometheus metrics</a></li>
</ul>
</body>
</html>`, modelFamily)
}

// testPageHTML is a plain HTML form posting a file straight to
// /v1/vision/detection, letting an operator exercise the endpoint from a
// browser (§4.9).
const testPageHTML = `<!DOCTYPE html>
<html>
<head><title>Blue Onyx — test detection</title><link rel="stylesheet" href="/static/style.css"></head>
<body>
<h1>Test detection</h1>
<form action="/v1/vision/detection" method="post" enctype="multipart/form-data">
  <label>JPEG image: <input type="file" name="image" accept="image/jpeg" required></label><br>
  <label>Min confidence override: <input type="number" name="min_confidence" min="0" max="1" step="0.01"></label><br>
  <button type="submit">Detect</button>
</form>
</body>
</html>`
