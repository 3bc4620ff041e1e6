// Package openapi exposes a generated OpenAPI schema and its Swagger UI
// through a gin engine. Schema generation itself is out of scope: the
// document comes either from the swag registry (populated by importing the
// application's generated docs package) or from an explicitly supplied
// JSON document.
package openapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// SchemaPath is where the raw OpenAPI document is served.
const SchemaPath = "/openapi"

// UIPath is the Swagger UI mount point. The trailing wildcard covers the
// UI's static assets.
const UIPath = "/webjars/swagger-ui"

// Enabled decides whether docs are exposed for the given settings: docs must
// be switched on, and production requires the explicit override.
func Enabled(openAPI, allowInProd, production bool) bool {
	if !openAPI {
		return false
	}
	if production && !allowInProd {
		return false
	}
	return true
}

// Mount registers the schema and UI routes on the engine.
// doc is the OpenAPI document JSON; when empty the swag registry is consulted
// on each request, so docs packages registered after Mount still resolve.
func Mount(e *gin.Engine, doc string) {
	e.GET(SchemaPath, schemaHandler(doc))
	e.GET(UIPath+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(SchemaPath)))

	// Root serves the documentation UI, matching the original behavior of
	// the Java webjars layout.
	e.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, UIPath+"/index.html")
	})
}

func schemaHandler(doc string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := doc
		if body == "" {
			registered, err := swag.ReadDoc()
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "no OpenAPI document registered"})
				return
			}
			body = registered
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(body))
	}
}
