package docs

import "github.com/swaggo/swag"

// docTemplate mirrors the swag annotations on the handlers.
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
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate a user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/auth/verify": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["auth"],
                "summary": "Verify a session token",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["auth"],
                "summary": "Get current user",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/auth/update-profile": {
            "put": {
                "security": [{"Bearer": []}],
                "tags": ["auth"],
                "summary": "Update profile",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/auth/change-password": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["auth"],
                "summary": "Change password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/notes": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "List visible notes",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            },
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "Create a new note",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/notes/nearby": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "Find nearby notes",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/notes/{id}": {
            "put": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "Update a note",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            },
            "delete": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "Delete a note",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/notes/{id}/owner": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "Get note owner",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/notes/{id}/add-collaborator": {
            "put": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "Add a collaborator",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        },
        "/notes/{id}/remove-collaborator": {
            "put": {
                "security": [{"Bearer": []}],
                "tags": ["notes"],
                "summary": "Remove a collaborator",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}}}
            }
        }
    },
    "definitions": {
        "httperr.E": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:4000",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "MindScribe API",
	Description:      "Shared, geotagged notes with live collaborator updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
