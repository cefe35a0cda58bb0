// Package apidocs registers the OpenAPI document served by the swagger UI.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/models": {"get": {"produces": ["application/json"], "summary": "List registry models",
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}}},
        "/status": {"get": {"produces": ["application/json"], "summary": "Session and process status",
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}}},
        "/v1/session": {"get": {"produces": ["application/json"], "summary": "Current session state",
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SessionResponse"}}}}},
        "/v1/session/ensure": {"post": {"consumes": ["application/json"], "produces": ["application/x-ndjson"],
            "summary": "Bind the session to a model",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.EnsureRequest"}}],
            "responses": {
                "200": {"description": "NDJSON progress lines", "schema": {"$ref": "#/definitions/types.ProgressLine"}},
                "404": {"description": "Unknown model", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                "503": {"description": "No backend could initialize", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/v1/session/generate": {"post": {"consumes": ["application/json"], "produces": ["application/x-ndjson"],
            "summary": "Stream a reply on the ready session",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.GenerateRequest"}}],
            "responses": {
                "200": {"description": "NDJSON token lines then a done line", "schema": {"$ref": "#/definitions/types.DoneLine"}},
                "409": {"description": "Session not ready", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}}},
        "/v1/session/cancel": {"post": {"summary": "Stop the in-flight generation", "responses": {"204": {"description": "No Content"}}}},
        "/v1/session/reset": {"post": {"summary": "Tear down the session", "responses": {"204": {"description": "No Content"}}}},
        "/v1/session/switch": {"post": {"consumes": ["application/json"], "produces": ["application/json"],
            "summary": "Load another model in the background",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.EnsureRequest"}}],
            "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.SwitchResponse"}}}}}
    },
    "definitions": {
        "types.EnsureRequest": {"type": "object", "properties": {"model": {"type": "string"}}},
        "types.ProgressLine": {"type": "object", "properties": {"progress": {"type": "number"}, "error": {"type": "string"}}},
        "types.GenerateRequest": {"type": "object", "properties": {"messages": {"type": "array", "items": {"$ref": "#/definitions/types.Message"}}}},
        "types.Message": {"type": "object", "properties": {"role": {"type": "string"}, "content": {"type": "string"}}},
        "types.DoneLine": {"type": "object", "properties": {"done": {"type": "boolean"}, "content": {"type": "string"}, "finish_reason": {"type": "string"}}},
        "types.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}},
        "types.ModelsResponse": {"type": "object", "properties": {"default": {"type": "string"}, "models": {"type": "array", "items": {"type": "object"}}}},
        "types.SessionResponse": {"type": "object", "properties": {"state": {"type": "string"}, "backend": {"type": "string"}, "model": {"type": "string"}, "progress": {"type": "number"}, "error": {"type": "string"}}},
        "types.StatusResponse": {"type": "object", "properties": {"state": {"type": "string"}, "backend": {"type": "string"}, "model": {"type": "string"}, "uptime_seconds": {"type": "integer"}}},
        "types.SwitchResponse": {"type": "object", "properties": {"op": {"type": "string"}, "model": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "vynel API",
	Description:      "HTTP API for the local inference session manager.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
