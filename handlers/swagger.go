package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the collaboration service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>sheetsync — Swagger</title>
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

// Minimal OpenAPI document describing the document API and operational endpoints.
// The websocket endpoint (/ws) is listed for discoverability even though
// OpenAPI cannot describe its message protocol.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "sheetsync", "version": "v0.1.0" },
  "paths": {
    "/api/document/GetAll": {
      "get": { "summary": "List documents owned by the caller", "responses": { "200": { "description": "array of documents" } } }
    },
    "/api/document/ChangeViewMode": {
      "post": {
        "summary": "Change a document's privacy mode (owner only)",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"documentId":{"type":"string"},"viewMode":{"type":"string","enum":["private","view","edit"]}}}}}},
        "responses": { "200": { "description": "updated document" }, "400": { "description": "invalid view mode" }, "403": { "description": "not the owner" }, "404": { "description": "document not found" } }
      }
    },
    "/api/document/RequestAccess": {
      "post": { "summary": "Request access to a document", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"documentId":{"type":"string"}}}}}}, "responses": { "200": { "description": "request recorded (idempotent)" }, "404": { "description": "document not found" } } }
    },
    "/api/document/GetRequests": {
      "get": { "summary": "List pending access requests (owner only, documentId header)", "responses": { "200": { "description": "requester ids" }, "403": { "description": "not the owner" } } }
    },
    "/api/document/AddEditor": {
      "post": { "summary": "Grant edit access (owner only)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"documentId":{"type":"string"},"userIdToAdd":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated document" }, "403": { "description": "not the owner" } } }
    },
    "/api/document/AddViewer": {
      "post": { "summary": "Grant view access (owner only)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"documentId":{"type":"string"},"userIdToAdd":{"type":"string"}}}}}}, "responses": { "200": { "description": "updated document" }, "403": { "description": "not the owner" } } }
    },
    "/api/document/{id}/presence": {
      "get": { "summary": "List users currently attached to a document", "parameters": [{"name":"id","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "user ids" }, "503": { "description": "presence store not configured" } } }
    },
    "/ws": {
      "get": { "summary": "Collaboration websocket (token query parameter)", "responses": { "101": { "description": "switching protocols" }, "401": { "description": "missing or invalid token" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get user info", "responses": { "200": { "description": "user or claims" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
