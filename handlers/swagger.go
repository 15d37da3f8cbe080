package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves a minimal OpenAPI description of the public API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>mutsasns API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "mutsasns", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "string" } } },
      "Image": { "type": "object", "properties": { "id": { "type": "integer" }, "url": { "type": "string" } } },
      "Article": {
        "type": "object",
        "properties": {
          "id": { "type": "integer" },
          "username": { "type": "string" },
          "title": { "type": "string" },
          "content": { "type": "string" },
          "images": { "type": "array", "items": { "$ref": "#/components/schemas/Image" } },
          "createdAt": { "type": "string", "format": "date-time" },
          "updatedAt": { "type": "string", "format": "date-time" }
        }
      },
      "ArticleForm": {
        "type": "object",
        "properties": {
          "title": { "type": "string" },
          "content": { "type": "string" },
          "images": { "type": "array", "items": { "type": "string", "format": "binary" } }
        }
      },
      "Comment": {
        "type": "object",
        "properties": {
          "id": { "type": "integer" },
          "articleId": { "type": "integer" },
          "username": { "type": "string" },
          "content": { "type": "string" },
          "createdAt": { "type": "string", "format": "date-time" }
        }
      }
    }
  },
  "paths": {
    "/auth/register": {
      "post": {
        "summary": "Create a local account",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"password":{"type":"string"},"email":{"type":"string"}}}}}},
        "responses": { "201": { "description": "user created" }, "400": { "description": "invalid input" }, "409": { "description": "username taken" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Password login or Keycloak authorization-code exchange",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string"},"username":{"type":"string"},"password":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Invalidate refresh token and revoke the bearer", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Current user", "security": [{"bearer": []}], "responses": { "200": { "description": "user" } } }
    },
    "/api/articles": {
      "get": {
        "summary": "Page the caller's articles, newest first",
        "security": [{"bearer": []}],
        "parameters": [
          { "name": "page", "in": "query", "schema": { "type": "integer", "minimum": 0 } },
          { "name": "size", "in": "query", "schema": { "type": "integer", "minimum": 1 } }
        ],
        "responses": { "200": { "description": "page of article summaries" }, "400": { "description": "bad paging" } }
      },
      "post": {
        "summary": "Create an article with optional images",
        "security": [{"bearer": []}],
        "requestBody": { "content": { "multipart/form-data": { "schema": { "$ref": "#/components/schemas/ArticleForm" } } } },
        "responses": { "201": { "description": "created", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Article" } } } }, "404": { "description": "unknown user" }, "413": { "description": "upload too large" }, "500": { "description": "storage failure" } }
      }
    },
    "/api/articles/{id}": {
      "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
      "get": { "summary": "Read an article", "security": [{"bearer": []}], "responses": { "200": { "description": "article" }, "404": { "description": "missing or deleted" } } },
      "put": {
        "summary": "Replace title and content, append images",
        "security": [{"bearer": []}],
        "requestBody": { "content": { "multipart/form-data": { "schema": { "$ref": "#/components/schemas/ArticleForm" } } } },
        "responses": { "200": { "description": "updated article" }, "404": { "description": "missing or not owned" } }
      },
      "delete": { "summary": "Soft-delete an article", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "404": { "description": "missing or not owned" } } }
    },
    "/api/articles/{id}/images/{imageId}": {
      "parameters": [
        { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } },
        { "name": "imageId", "in": "path", "required": true, "schema": { "type": "integer" } }
      ],
      "delete": { "summary": "Delete one image and its file", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "400": { "description": "image belongs to another article" }, "404": { "description": "missing" } } }
    },
    "/api/articles/{id}/comments": {
      "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "integer" } } ],
      "get": { "summary": "List comments, oldest first", "security": [{"bearer": []}], "responses": { "200": { "description": "comments" } } },
      "post": {
        "summary": "Add a comment",
        "security": [{"bearer": []}],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"content":{"type":"string"}}}}}},
        "responses": { "201": { "description": "created", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Comment" } } } }, "400": { "description": "empty or too long" } }
      }
    },
    "/api/articles/{id}/comments/{commentId}": {
      "delete": { "summary": "Soft-delete own comment", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "404": { "description": "missing or not owned" } } }
    },
    "/static/{path}": { "get": { "summary": "Uploaded image files (filesystem storage only)", "responses": { "200": { "description": "file" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
