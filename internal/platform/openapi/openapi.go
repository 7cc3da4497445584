package openapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meddx/meddx/internal/domain/diagnosis"
)

// Generator builds an OpenAPI 3.0 document from the disease catalogue.
type Generator struct {
	catalog *diagnosis.Catalog
	version string
	baseURL string
}

// NewGenerator creates a new OpenAPI spec generator.
func NewGenerator(catalog *diagnosis.Catalog, version, baseURL string) *Generator {
	return &Generator{catalog: catalog, version: version, baseURL: baseURL}
}

// GenerateSpec produces the OpenAPI 3.0 document as a map. Every disease
// gets its own diagnose path with a request schema built from its fields.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := map[string]interface{}{
		"/api/v1/diseases": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List diseases",
				"operationId": "listDiseases",
				"tags":        []string{"catalogue"},
				"responses": map[string]interface{}{
					"200": jsonResponse("Disease catalogue", map[string]interface{}{"type": "object"}),
				},
			},
		},
		"/api/v1/diseases/{disease}": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Describe a disease form",
				"operationId": "getDisease",
				"tags":        []string{"catalogue"},
				"parameters": []map[string]interface{}{
					{"name": "disease", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("Form schema", map[string]interface{}{"type": "object"}),
					"404": jsonResponse("Unknown disease", ref("Error")),
				},
			},
		},
		"/api/v1/auth/register": credentialsPath("register", "Register an account", "201"),
		"/api/v1/auth/login":    credentialsPath("login", "Log in and obtain a session token", "200"),
	}

	schemas := map[string]interface{}{
		"DiagnosisResult": resultSchema(),
		"Error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]string{"type": "string"},
			},
		},
		"Credentials": map[string]interface{}{
			"type":     "object",
			"required": []string{"username", "password"},
			"properties": map[string]interface{}{
				"username":     map[string]string{"type": "string"},
				"password":     map[string]interface{}{"type": "string", "format": "password"},
				"display_name": map[string]string{"type": "string"},
			},
		},
	}

	for _, s := range g.catalog.Schemas() {
		inputs := inputsName(s.Key())
		schemas[inputs] = inputsSchema(s)
		paths["/api/v1/diseases/"+s.Key()+"/diagnose"] = map[string]interface{}{
			"post": map[string]interface{}{
				"summary":     s.Title(),
				"operationId": "diagnose_" + s.Key(),
				"tags":        []string{"diagnosis"},
				"security":    []map[string][]string{{"bearer": {}}},
				"requestBody": map[string]interface{}{
					"required": true,
					"content": map[string]interface{}{
						echo.MIMEApplicationJSON: map[string]interface{}{
							"schema": map[string]interface{}{
								"type":       "object",
								"required":   []string{"inputs"},
								"properties": map[string]interface{}{"inputs": ref(inputs)},
							},
						},
					},
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("Diagnosis result", ref("DiagnosisResult")),
					"401": jsonResponse("Login required", ref("Error")),
					"422": jsonResponse("Missing or invalid fields", map[string]interface{}{"type": "object"}),
					"502": jsonResponse("Prediction failed; override holds any matched rule's result", map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"message":  map[string]string{"type": "string"},
							"override": ref("DiagnosisResult"),
						},
					}),
					"503": jsonResponse("Model unavailable", ref("Error")),
				},
			},
		}
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "meddx diagnosis API",
			"version":     g.version,
			"description": "Per-disease clinical risk screening",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": schemas,
			"securitySchemes": map[string]interface{}{
				"bearer": map[string]string{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
	}
}

func inputsName(key string) string {
	return key + "_inputs"
}

// inputsSchema maps form fields onto JSON schema. Conditionally required
// fields are left optional since OpenAPI 3.0 cannot express the condition.
func inputsSchema(s *diagnosis.Schema) map[string]interface{} {
	props := make(map[string]interface{})
	var required []string
	for _, f := range s.Fields() {
		p := map[string]interface{}{"description": f.Label}
		switch f.Kind {
		case diagnosis.KindNumeric:
			p["type"] = "number"
			p["minimum"] = f.Min
			p["maximum"] = f.Max
			if f.Unit != "" {
				p["description"] = f.Label + " (" + f.Unit + ")"
			}
		case diagnosis.KindBoolean:
			p["type"] = "string"
			p["enum"] = []string{"Yes", "No"}
		case diagnosis.KindCategorical:
			labels := make([]string, len(f.Options))
			for i, o := range f.Options {
				labels[i] = o.Label
			}
			p["type"] = "string"
			p["enum"] = labels
		}
		props[f.Name] = p
		if f.Required && f.DependsOn == nil {
			required = append(required, f.Name)
		}
	}

	out := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func resultSchema() map[string]interface{} {
	str := map[string]string{"type": "string"}
	strs := map[string]interface{}{"type": "array", "items": str}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"disease":         str,
			"tier":            map[string]interface{}{"type": "string", "enum": []string{"low", "high", "emergency"}},
			"verdict_source":  map[string]interface{}{"type": "string", "enum": []string{"model", "override"}},
			"rule":            str,
			"reason":          str,
			"model_verdict":   map[string]interface{}{"type": "integer", "enum": []int{0, 1}},
			"headline":        str,
			"recommendations": strs,
			"notes":           strs,
			"metrics": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name":      str,
						"value":     map[string]string{"type": "number"},
						"display":   str,
						"unit":      str,
						"flag":      str,
						"reference": str,
					},
				},
			},
		},
	}
}

func credentialsPath(op, summary, okCode string) map[string]interface{} {
	return map[string]interface{}{
		"post": map[string]interface{}{
			"summary":     summary,
			"operationId": op,
			"tags":        []string{"auth"},
			"requestBody": map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					echo.MIMEApplicationJSON: map[string]interface{}{"schema": ref("Credentials")},
				},
			},
			"responses": map[string]interface{}{
				okCode: jsonResponse("Success", map[string]interface{}{"type": "object"}),
				"400":  jsonResponse("Invalid input", ref("Error")),
			},
		},
	}
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			echo.MIMEApplicationJSON: map[string]interface{}{"schema": schema},
		},
	}
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>meddx API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: "openapi.json", dom_id: "#swagger-ui" });
  </script>
</body>
</html>`

// RegisterRoutes registers the OpenAPI endpoints.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	spec := g.GenerateSpec()
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, spec)
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
