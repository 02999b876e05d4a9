package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/operation-engine/pkg/registry"
)

// catalogView is the registry surface the HTTP endpoints read.
type catalogView interface {
	Health(ctx context.Context) *registry.HealthOutput
	Describe(name string) []registry.OperationInfo
}

// NewHTTPHandler serves the home page, operation detail pages, the JSON
// operation listing, health, readiness and Prometheus metrics.
func NewHTTPHandler(reg catalogView, healthTimeout time.Duration) http.Handler {
	s := &httpHandlers{reg: reg, healthTimeout: healthTimeout}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/operation/", s.handleOperationDetail())
	mux.HandleFunc("/operations", s.handleOperations)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type httpHandlers struct {
	reg           catalogView
	healthTimeout time.Duration
}

func (s *httpHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.healthTimeout)
	defer cancel()

	h := s.reg.Health(ctx)
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *httpHandlers) handleOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Describe(r.URL.Query().Get("name")))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", logPrefix, err))
	}
}

// homePageTemplate is the HTML for the engine home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Operation Engine</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    code { font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>Operation Engine</h1>
  <p class="meta">Engine health and registered operations.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Discovered: <span class="stat">{{.Health.Checks.Discovered}}</span></p>
    {{if .Health.Checks.Database}}<p>Database: <span class="stat">{{deref .Health.Checks.Database}}</span></p>{{end}}
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Operations</h2>
    <p>Registered overloads: <span class="stat">{{len .Operations}}</span></p>
    {{if not .Operations}}
    <p>No operations registered.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Operation</th><th>Signature</th><th>Returns</th><th>Description</th></tr>
      </thead>
      <tbody>
        {{range .Operations}}
        <tr>
          <td><a href="/operation/{{.Name}}">{{.Name}}</a></td>
          <td><code>{{.Signature}}</code></td>
          <td>{{.Return}}</td>
          <td>{{.Description}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// operationDetailPageTemplate lists every overload registered under one name.
const operationDetailPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Name}} – Operation Engine</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; width: 160px; }
    section { margin-bottom: 2rem; }
    .back { margin-bottom: 1rem; }
  </style>
</head>
<body>
  <p class="back"><a href="/">← Back to engine</a></p>
  <h1>{{.Name}}</h1>
  {{range .Overloads}}
  <section>
    <h2><code>{{.Signature}}</code></h2>
    {{if .Description}}<p>{{.Description}}</p>{{end}}
    <table>
      <tr><th>Declared name</th><td>{{.DeclaredName}}</td></tr>
      <tr><th>Returns</th><td>{{.Return}}</td></tr>
      {{if .ContentTypes}}<tr><th>Content types</th><td>{{join .ContentTypes}}</td></tr>{{end}}
      {{if .Roles}}<tr><th>Roles</th><td>{{join .Roles}}</td></tr>{{end}}
      {{if .Permissions}}<tr><th>Permissions</th><td>{{join .Permissions}}</td></tr>{{end}}
      {{if .Policies}}<tr><th>Policies</th><td>{{join .Policies}}</td></tr>{{end}}
      {{if .Scenarios}}<tr><th>Scenarios</th><td>{{join .Scenarios}}</td></tr>{{end}}
    </table>
  </section>
  {{end}}
</body>
</html>
`

var templateFuncs = template.FuncMap{
	"join":  func(s []string) string { return strings.Join(s, ", ") },
	"deref": func(b *bool) bool { return b != nil && *b },
}

// homeData is the data passed to the home page template.
type homeData struct {
	Health     *registry.HealthOutput
	Operations []registry.OperationInfo
}

func (s *httpHandlers) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Funcs(templateFuncs).Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.healthTimeout)
		defer cancel()

		data := homeData{Health: s.reg.Health(ctx), Operations: s.reg.Describe("")}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// operationDetailData is the data passed to the operation detail template.
type operationDetailData struct {
	Name      string
	Overloads []registry.OperationInfo
}

func (s *httpHandlers) handleOperationDetail() http.HandlerFunc {
	tmpl := template.Must(template.New("operationDetail").Funcs(templateFuncs).Parse(operationDetailPageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/operation/"))
		if err != nil || name == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		overloads := s.reg.Describe(name)
		if len(overloads) == 0 {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, operationDetailData{Name: overloads[0].Name, Overloads: overloads}); err != nil {
			slog.Error(fmt.Sprintf("%s - operation detail template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
