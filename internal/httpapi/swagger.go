//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// swaggerTemplate is the route index served at /swagger/doc.json. Regenerate
// the full schema with `swag init -g cmd/ggufd/docs.go`.
const swaggerTemplate = `{
    "swagger": "2.0",
    "info": {"title": "{{.Title}}", "description": "{{escape .Description}}", "version": "{{.Version}}"},
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/load": {"post": {"tags": ["lifecycle"], "summary": "Load a model", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "503": {"description": "Backend unavailable"}}}},
        "/unload": {"post": {"tags": ["lifecycle"], "summary": "Unload the model", "parameters": [{"name": "full", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}}},
        "/generate": {"post": {"tags": ["inference"], "summary": "Generate text", "consumes": ["application/json"], "produces": ["application/json", "application/x-ndjson"], "responses": {"200": {"description": "OK"}, "409": {"description": "Model not loaded"}, "413": {"description": "Prompt too long"}}}},
        "/generate/vision": {"post": {"tags": ["inference"], "summary": "Generate text with image attachments", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad image"}, "409": {"description": "Model not loaded"}}}},
        "/status": {"get": {"tags": ["lifecycle"], "summary": "Engine status", "responses": {"200": {"description": "OK"}}}},
        "/memory": {"get": {"tags": ["lifecycle"], "summary": "Estimated VRAM usage", "responses": {"200": {"description": "OK"}}}},
        "/backend": {"get": {"tags": ["lifecycle"], "summary": "Compiled backend capabilities", "responses": {"200": {"description": "OK"}}}},
        "/metadata": {"get": {"tags": ["models"], "summary": "Inspect a model file", "parameters": [{"name": "path", "in": "query", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/models": {"get": {"tags": ["models"], "summary": "Models found in the models directory", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "ggufd API",
	Description:      "HTTP API for a local GGUF inference engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the Swagger UI at /swagger/*.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
