package web

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Stas733/digital-shop/internal/metrics"
	"github.com/Stas733/digital-shop/internal/storage"
)

const maxUploadSize = 100 << 20 // 100MB

// tokenPrefix keeps full single-use credentials out of the logs; a
// prefix is enough to correlate with the ledger.
func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8] + "..."
	}
	return token
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handleDeliver resolves a delivery code for an item. For file items
// every call mints a fresh download token, so this endpoint is not safe
// to call speculatively.
func (s *Server) handleDeliver(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	d, err := s.resolver.Resolve(id)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		log.Printf("deliver failed for item %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delivery failed"})
		return
	}

	c.JSON(http.StatusOK, d)
}

// handleDownload redeems a single-use token and streams the artifact.
// A token grants one attempt: once redeemed it never works again, even
// if the artifact turns out to be missing.
func (s *Server) handleDownload(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.String(http.StatusBadRequest, "token required")
		return
	}

	item, err := s.tokens.RedeemToken(token)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTokenNotFound):
			metrics.RedemptionsRejectedTotal.WithLabelValues("not_found").Inc()
			c.String(http.StatusNotFound, "link not found")
		case errors.Is(err, storage.ErrTokenUsed):
			metrics.RedemptionsRejectedTotal.WithLabelValues("already_used").Inc()
			c.String(http.StatusGone, "link already used")
		default:
			log.Printf("redeem failed for token %s: %v", tokenPrefix(token), err)
			c.String(http.StatusInternalServerError, "redemption failed")
		}
		return
	}

	if _, err := os.Stat(item.FilePath); err != nil {
		// The token is already consumed at this point and stays that
		// way; the buyer gets an explicit loss message rather than a
		// reusable link.
		log.Printf("artifact missing for item %d (token %s): %v", item.ID, tokenPrefix(token), err)
		metrics.RedemptionsRejectedTotal.WithLabelValues("artifact_missing").Inc()
		c.String(http.StatusInternalServerError, "file removed from storage")
		return
	}

	metrics.TokensRedeemedTotal.Inc()
	c.FileAttachment(item.FilePath, filepath.Base(item.FilePath))
}

func (s *Server) handleListItems(c *gin.Context) {
	items, err := s.catalog.ListItems()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, gin.H{
			"id":          item.ID,
			"name":        item.Name,
			"type":        item.Kind,
			"instruction": item.Instruction,
			"created_at":  item.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "items": out, "count": len(out)})
}

type addKeyRequest struct {
	Name        string `json:"name" binding:"required"`
	KeyValue    string `json:"key_value" binding:"required"`
	Instruction string `json:"instruction"`
}

func (s *Server) handleAddKey(c *gin.Context) {
	var req addKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	id, err := s.catalog.CreateKeyItem(req.Name, req.KeyValue, req.Instruction)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

// handleAddFile accepts a multipart upload and stores the artifact
// under a random filename, keeping the original extension.
func (s *Server) handleAddFile(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "name required"})
		return
	}
	instruction := c.PostForm("instruction")

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file required"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file too large"})
		return
	}

	ext := filepath.Ext(file.Filename)
	dest := filepath.Join(s.filesDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	id, err := s.catalog.CreateFileItem(name, dest, instruction)
	if err != nil {
		os.Remove(dest)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}
