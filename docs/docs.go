// Package docs registers the swagger documentation of the books api.
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
        "/books": {
            "get": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "List all books ordered by id",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Book"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Create a book",
                "parameters": [{"name": "book", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Book"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/books/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Get one book",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Book"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Replace a book. A non zero version must match the stored one",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "book", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Book"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Merge the non empty fields into a book",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "book", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Book"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "Delete a book",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        }
    },
    "definitions": {
        "Book": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "description": {"type": "string", "x-nullable": true},
                "version": {"type": "integer"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "BookInput": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "x-nullable": true},
                "title": {"type": "string"},
                "author": {"type": "string"},
                "description": {"type": "string", "x-nullable": true},
                "version": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "requestid": {"type": "string"},
                "status": {"type": "integer"},
                "message": {"type": "string"},
                "data": {}
            }
        },
        "APIResponse": {
            "type": "object",
            "properties": {
                "requestid": {"type": "string"},
                "status": {"type": "integer"},
                "message": {"type": "string"},
                "data": {"$ref": "#/definitions/Book"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Books Catalog API",
	Description:      "Rest api of the books collection used by the catalog pages.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
