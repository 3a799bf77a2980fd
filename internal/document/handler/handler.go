package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document"
	"github.com/sheetsync/sheetsync/backend/go-services/internal/document/service"
)

// PresenceLister exposes who is currently attached to a document. Optional;
// the presence route returns 503 when no store is configured.
type PresenceLister interface {
	List(ctx context.Context, docID string) ([]string, error)
}

// RegisterDocumentRoutes mounts the document API. The group is expected to
// run behind the auth middleware, which provides `userId`.
func RegisterDocumentRoutes(rg gin.IRouter, svc *service.Service, presence PresenceLister) {
	rg.GET("/GetAll", func(c *gin.Context) {
		userID := mustUserID(c)
		if userID == "" {
			return
		}
		docs, err := svc.ListOwned(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "DB Error"})
			return
		}
		c.JSON(http.StatusOK, docs)
	})

	rg.POST("/ChangeViewMode", func(c *gin.Context) {
		userID := mustUserID(c)
		if userID == "" {
			return
		}
		var req struct {
			DocumentID string `json:"documentId"`
			ViewMode   string `json:"viewMode"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.SetPrivacyMode(c.Request.Context(), req.DocumentID, userID, document.PrivacyMode(req.ViewMode))
		if errors.Is(err, service.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view mode"})
			return
		}
		if !respondErr(c, err, "Unauthorized to edit this document") {
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "View mode updated successfully", "document": d})
	})

	rg.POST("/RequestAccess", func(c *gin.Context) {
		userID := mustUserID(c)
		if userID == "" {
			return
		}
		var req struct {
			DocumentID string `json:"documentId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := svc.RequestAccess(c.Request.Context(), req.DocumentID, userID)
		if !respondErr(c, err, "") {
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Access request submitted successfully"})
	})

	rg.GET("/GetRequests", func(c *gin.Context) {
		userID := mustUserID(c)
		if userID == "" {
			return
		}
		docID := c.GetHeader("documentId")
		reqs, err := svc.Requests(c.Request.Context(), docID, userID)
		if !respondErr(c, err, "Unauthorized to view requests for this document") {
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": reqs})
	})

	rg.POST("/AddEditor", grantRoute(svc.GrantEditor, "User added as editor successfully"))
	rg.POST("/AddViewer", grantRoute(svc.GrantViewer, "User added as viewer successfully"))

	rg.GET("/:id/presence", func(c *gin.Context) {
		if presence == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "presence not available"})
			return
		}
		users, err := presence.List(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "presence lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	})
}

type grantFunc func(ctx context.Context, docID, userID, targetID string) (*document.Document, error)

func grantRoute(grant grantFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := mustUserID(c)
		if userID == "" {
			return
		}
		var req struct {
			DocumentID  string `json:"documentId"`
			UserIDToAdd string `json:"userIdToAdd"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := grant(c.Request.Context(), req.DocumentID, userID, req.UserIDToAdd)
		if !respondErr(c, err, "Unauthorized to modify permissions for this document") {
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": message, "document": d})
	}
}

// respondErr maps service errors to responses. Returns true when the caller
// may proceed with its success response.
func respondErr(c *gin.Context, err error, unauthorizedMsg string) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case errors.Is(err, service.ErrUnauthorized):
		if unauthorizedMsg == "" {
			unauthorizedMsg = "Unauthorized"
		}
		c.JSON(http.StatusForbidden, gin.H{"error": unauthorizedMsg})
	default:
		// store failures stay opaque to the caller
		c.JSON(http.StatusInternalServerError, gin.H{"error": "DB Error"})
	}
	return false
}

func mustUserID(c *gin.Context) string {
	userID := c.GetString("userId")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please enter a valid token"})
	}
	return userID
}
