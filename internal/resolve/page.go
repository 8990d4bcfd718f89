package resolve

import (
	"bytes"
	"html/template"
)

// QR codes are scanned by humans, so the terminal "gone" signal is a
// self-contained HTML page rather than a JSON error.
var expiredTmpl = template.Must(template.New("expired").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>QR Code Expired</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
      body {
        font-family: system-ui, -apple-system, sans-serif;
        display: flex;
        align-items: center;
        justify-content: center;
        min-height: 100vh;
        margin: 0;
        background: linear-gradient(to bottom, #f8fafc, #e2e8f0);
      }
      .container {
        text-align: center;
        padding: 2rem;
        max-width: 500px;
      }
      h1 { color: #1e293b; margin-bottom: 1rem; }
      p { color: #64748b; line-height: 1.6; }
      .status {
        display: inline-block;
        padding: 0.5rem 1rem;
        background: #fee2e2;
        color: #991b1b;
        border-radius: 0.5rem;
        margin-top: 1rem;
        font-weight: 500;
      }
    </style>
  </head>
  <body>
    <div class="container">
      <h1>&#9888; QR Code Expired</h1>
      <p>This QR code is no longer active. The owner needs to renew their subscription to reactivate it.</p>
      <span class="status">Status: {{.Status}}</span>
    </div>
  </body>
</html>
`))

// ExpiredPage renders the 410 body naming the record's current status.
func ExpiredPage(status string) string {
	var buf bytes.Buffer
	if err := expiredTmpl.Execute(&buf, struct{ Status string }{Status: status}); err != nil {
		// Static template over a single string field: execution cannot
		// fail at runtime, but keep a usable body just in case.
		return "<!DOCTYPE html><html><body><h1>QR Code Expired</h1></body></html>"
	}
	return buf.String()
}
