package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/database"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/document/handler"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/document/service"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/oidc"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/tokens"
	"github.com/sheetsync/sheetsync/backend/go-services/pkg/middleware"
)

// Standalone document API without the websocket layer. Useful for running
// the permission workflow against a test frontend or in integration suites.
func main() {
	port := os.Getenv("DOC_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Prefer a Mongo-backed service when MONGODB_URI is provided.
	var svc *service.Service
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI != "" {
		client, err := database.ConnectMongo(context.Background(), mongoURI, 10*time.Second)
		if err != nil {
			log.Printf("warning: cannot connect to MongoDB (%v), using memory-backed repo", err)
			svc = service.NewMemoryService()
		} else {
			db := os.Getenv("MONGODB_DATABASE")
			if db == "" {
				db = "sheetsync"
			}
			svc = service.NewMongoService(client.Database(db).Collection("documents"))
		}
	} else {
		svc = service.NewMemoryService()
	}

	var verifier middleware.Verifier
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		verifier = tokens.NewVerifier(secret)
	} else {
		log.Printf("warning: JWT_SECRET not set, accepting unsigned tokens")
		verifier = oidc.NewInsecureVerifier()
	}

	api := r.Group("/api/document", middleware.AuthMiddleware(verifier))
	handler.RegisterDocumentRoutes(api, svc, nil)

	log.Printf("document service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
