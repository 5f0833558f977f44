package docs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/markdown-dms/backend/config"
)

var swaggerTemplate = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}} - Swagger UI</title>
<meta charset="utf-8">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: {{.SpecURL}}, dom_id: "#swagger-ui", deepLinking: true});
</script>
</body>
</html>
`))

var redocTemplate = template.Must(template.New("redoc").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}} - ReDoc</title>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<redoc spec-url="{{.SpecURL}}"></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2/bundles/redoc.standalone.js"></script>
</body>
</html>
`))

type page struct {
	Title   string
	SpecURL string
}

// Docs holds the rendered OpenAPI document and viewer pages.
type Docs struct {
	jsonDoc []byte
	yamlDoc []byte
	swagger []byte
	redoc   []byte
}

func New(cfg *config.Config) (*Docs, error) {
	doc := Document(cfg)

	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode openapi json: %w", err)
	}

	yamlDoc, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode openapi yaml: %w", err)
	}

	p := page{Title: cfg.App.Name, SpecURL: JSONPath}

	var swagger, redoc bytes.Buffer
	if err := swaggerTemplate.Execute(&swagger, p); err != nil {
		return nil, fmt.Errorf("render swagger ui: %w", err)
	}
	if err := redocTemplate.Execute(&redoc, p); err != nil {
		return nil, fmt.Errorf("render redoc: %w", err)
	}

	return &Docs{
		jsonDoc: jsonDoc,
		yamlDoc: yamlDoc,
		swagger: swagger.Bytes(),
		redoc:   redoc.Bytes(),
	}, nil
}

func (d *Docs) OpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	write(w, "application/json", d.jsonDoc)
}

func (d *Docs) OpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	write(w, "application/yaml", d.yamlDoc)
}

func (d *Docs) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	write(w, "text/html; charset=utf-8", d.swagger)
}

func (d *Docs) ReDoc(w http.ResponseWriter, r *http.Request) {
	write(w, "text/html; charset=utf-8", d.redoc)
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
