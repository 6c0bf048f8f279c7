// Package docs renders the OpenAPI description of the catalog API and serves
// it together with a Swagger UI page.
package docs

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

type Document struct {
	OpenAPI    string              `yaml:"openapi" json:"openapi"`
	Info       Info                `yaml:"info" json:"info"`
	Paths      map[string]PathItem `yaml:"paths" json:"paths"`
	Components Components          `yaml:"components" json:"components"`
	Security   []Requirement       `yaml:"security" json:"security"`
}

type Info struct {
	Title   string `yaml:"title" json:"title"`
	Version string `yaml:"version" json:"version"`
}

type PathItem map[string]Operation

type Operation struct {
	Summary     string              `yaml:"summary" json:"summary"`
	Tags        []string            `yaml:"tags,omitempty" json:"tags,omitempty"`
	Parameters  []Parameter         `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	RequestBody *RequestBody        `yaml:"requestBody,omitempty" json:"requestBody,omitempty"`
	Responses   map[string]Response `yaml:"responses" json:"responses"`
	// Security overrides the document default; an empty list means public.
	Security *[]Requirement `yaml:"security,omitempty" json:"security,omitempty"`
}

type Parameter struct {
	Name     string `yaml:"name" json:"name"`
	In       string `yaml:"in" json:"in"`
	Required bool   `yaml:"required" json:"required"`
	Schema   Schema `yaml:"schema" json:"schema"`
}

type RequestBody struct {
	Required bool                 `yaml:"required" json:"required"`
	Content  map[string]MediaType `yaml:"content" json:"content"`
}

type Response struct {
	Description string               `yaml:"description" json:"description"`
	Content     map[string]MediaType `yaml:"content,omitempty" json:"content,omitempty"`
}

type MediaType struct {
	Schema Schema `yaml:"schema" json:"schema"`
}

type Schema struct {
	Ref        string            `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Type       string            `yaml:"type,omitempty" json:"type,omitempty"`
	Format     string            `yaml:"format,omitempty" json:"format,omitempty"`
	Properties map[string]Schema `yaml:"properties,omitempty" json:"properties,omitempty"`
	Items      *Schema           `yaml:"items,omitempty" json:"items,omitempty"`
	Required   []string          `yaml:"required,omitempty" json:"required,omitempty"`
}

type Components struct {
	Schemas         map[string]Schema         `yaml:"schemas" json:"schemas"`
	SecuritySchemes map[string]SecurityScheme `yaml:"securitySchemes" json:"securitySchemes"`
}

type SecurityScheme struct {
	Type         string `yaml:"type" json:"type"`
	Scheme       string `yaml:"scheme" json:"scheme"`
	BearerFormat string `yaml:"bearerFormat" json:"bearerFormat"`
	Description  string `yaml:"description" json:"description"`
}

type Requirement map[string][]string

const jsonMedia = "application/json"

func ref(name string) Schema { return Schema{Ref: "#/components/schemas/" + name} }

func jsonBody(s Schema) map[string]MediaType {
	return map[string]MediaType{jsonMedia: {Schema: s}}
}

var idParam = Parameter{Name: "id", In: "path", Required: true, Schema: Schema{Type: "integer", Format: "int64"}}

var (
	respUnauthorized = Response{Description: "Missing, invalid or expired token", Content: jsonBody(ref("Error"))}
	respNotFound     = Response{Description: "Product not found", Content: jsonBody(ref("Error"))}
	respBadRequest   = Response{Description: "Malformed body or id", Content: jsonBody(ref("Error"))}
)

// Catalog describes every public route of the service.
func Catalog(version string) Document {
	public := []Requirement{}

	return Document{
		OpenAPI: "3.0.3",
		Info:    Info{Title: "Catalog API", Version: version},
		Security: []Requirement{
			{"bearerAuth": {}},
		},
		Components: Components{
			SecuritySchemes: map[string]SecurityScheme{
				"bearerAuth": {
					Type:         "http",
					Scheme:       "bearer",
					BearerFormat: "JWT",
					Description:  "Token returned by POST /login, sent as Authorization: Bearer <token>",
				},
			},
			Schemas: map[string]Schema{
				"Product": {
					Type: "object",
					Properties: map[string]Schema{
						"id":          {Type: "integer", Format: "int64"},
						"name":        {Type: "string"},
						"description": {Type: "string"},
						"brand":       {Type: "string"},
						"price":       {Type: "number", Format: "double"},
					},
				},
				"LoginRequest": {
					Type:     "object",
					Required: []string{"username", "password"},
					Properties: map[string]Schema{
						"username": {Type: "string"},
						"password": {Type: "string"},
					},
				},
				"LoginResponse": {
					Type:       "object",
					Properties: map[string]Schema{"token": {Type: "string"}},
				},
				"Error": {
					Type: "object",
					Properties: map[string]Schema{
						"error":      {Type: "string"},
						"details":    {Type: "object"},
						"request_id": {Type: "string"},
					},
				},
			},
		},
		Paths: map[string]PathItem{
			"/login": {
				"post": {
					Summary:     "Exchange the credential for an access token",
					Tags:        []string{"auth"},
					Security:    &public,
					RequestBody: &RequestBody{Required: true, Content: jsonBody(ref("LoginRequest"))},
					Responses: map[string]Response{
						"200": {Description: "Token issued", Content: jsonBody(ref("LoginResponse"))},
						"400": respBadRequest,
						"401": {Description: "Bad credentials", Content: jsonBody(ref("Error"))},
					},
				},
			},
			"/products": {
				"get": {
					Summary: "List products",
					Tags:    []string{"products"},
					Responses: map[string]Response{
						"200": {Description: "All products", Content: jsonBody(Schema{Type: "array", Items: &Schema{Ref: "#/components/schemas/Product"}})},
						"401": respUnauthorized,
					},
				},
				"post": {
					Summary:     "Create a product",
					Tags:        []string{"products"},
					RequestBody: &RequestBody{Required: true, Content: jsonBody(ref("Product"))},
					Responses: map[string]Response{
						"201": {Description: "Created; Location points at the new product", Content: jsonBody(ref("Product"))},
						"400": respBadRequest,
						"401": respUnauthorized,
					},
				},
			},
			"/products/{id}": {
				"get": {
					Summary:    "Get one product",
					Tags:       []string{"products"},
					Parameters: []Parameter{idParam},
					Responses: map[string]Response{
						"200": {Description: "The product", Content: jsonBody(ref("Product"))},
						"400": respBadRequest,
						"401": respUnauthorized,
						"404": respNotFound,
					},
				},
				"put": {
					Summary:     "Replace a product; body id must equal the path id",
					Tags:        []string{"products"},
					Parameters:  []Parameter{idParam},
					RequestBody: &RequestBody{Required: true, Content: jsonBody(ref("Product"))},
					Responses: map[string]Response{
						"204": {Description: "Updated"},
						"400": respBadRequest,
						"401": respUnauthorized,
						"404": respNotFound,
					},
				},
				"delete": {
					Summary:    "Delete a product",
					Tags:       []string{"products"},
					Parameters: []Parameter{idParam},
					Responses: map[string]Response{
						"204": {Description: "Deleted"},
						"400": respBadRequest,
						"401": respUnauthorized,
						"404": respNotFound,
					},
				},
			},
		},
	}
}

// Register serves /openapi.yaml, /openapi.json and /swagger. The document is
// rendered once.
func Register(r chi.Router, doc Document) error {
	y, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	j, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(y)
	})
	r.Get("/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(j)
	})
	r.Get("/swagger", swaggerUI)
	r.Get("/swagger/index.html", swaggerUI)
	return nil
}

func swaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https://validator.swagger.io")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(swaggerPage))
}

const swaggerPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Catalog API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.json',
        dom_id: '#swagger-ui',
        persistAuthorization: true
      });
    </script>
  </body>
</html>`
