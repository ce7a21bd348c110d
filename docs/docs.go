// Package docs registers the OpenAPI document for the JSON API with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/devices": {
            "get": {
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "List devices",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/srv.DeviceSummary"}
                        }
                    }
                }
            }
        },
        "/api/devices/{codename}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Get a device",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Device codename",
                        "name": "codename",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/catalog.Device"}
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {"type": "string"}
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "catalog.Device": {
            "type": "object",
            "properties": {
                "codename": {"type": "string"},
                "name": {"type": "string"},
                "systems": {"type": "array", "items": {"$ref": "#/definitions/catalog.System"}}
            }
        },
        "catalog.System": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "versions": {"type": "array", "items": {"$ref": "#/definitions/catalog.Version"}}
            }
        },
        "catalog.Version": {
            "type": "object",
            "properties": {
                "version": {"type": "string"},
                "label": {"type": "string"},
                "releases": {"type": "array", "items": {"$ref": "#/definitions/catalog.Release"}}
            }
        },
        "catalog.Release": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "version": {"type": "string"},
                "changes": {"type": "array", "items": {"type": "string"}}
            }
        },
        "srv.DeviceSummary": {
            "type": "object",
            "properties": {
                "codename": {"type": "string"},
                "name": {"type": "string"},
                "systems": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "OTA Changelog API",
	Description:      "Read-only access to the device catalog and release history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
