package handler

import (
	"encoding/hex"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"
)

const specPath = "/swagger/spec"

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: {{.SpecURL}}, dom_id: '#swagger-ui', layout: 'BaseLayout',
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset]});
  </script>
</body>
</html>`))

// DocsHandler serves the OpenAPI document and a Swagger UI page that loads it.
type DocsHandler struct {
	spec []byte
	etag string
}

// NewDocsHandler wraps an OpenAPI document. An empty spec disables both routes.
func NewDocsHandler(spec []byte) *DocsHandler {
	h := &DocsHandler{spec: spec}
	if len(spec) > 0 {
		sum := blake2b.Sum256(spec)
		h.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
	}
	return h
}

// Spec handles GET /swagger/spec.
func (h *DocsHandler) Spec(c *gin.Context) {
	if len(h.spec) == 0 {
		c.String(http.StatusNotFound, "OpenAPI spec not available")
		return
	}
	c.Header("ETag", h.etag)
	if c.GetHeader("If-None-Match") == h.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/yaml", h.spec)
}

// UI handles GET /swagger.
func (h *DocsHandler) UI(c *gin.Context) {
	if len(h.spec) == 0 {
		c.String(http.StatusNotFound, "OpenAPI spec not available")
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = docsPage.Execute(c.Writer, struct{ Title, SpecURL string }{"Settlement Gateway API", specPath})
}
