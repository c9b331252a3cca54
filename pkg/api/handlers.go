package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxrbv/audio-stereo-split-service/pkg/ingest"
)

// ShowFileID is the response body carrying the id of an accepted upload, and
// the request body for result lookups.
type ShowFileID struct {
	ID int64 `json:"id"`
}

// ShowSplitURL carries the storage locations of the two mono channels.
type ShowSplitURL struct {
	S3URL1 string `json:"s3_url_1"`
	S3URL2 string `json:"s3_url_2"`
}

// Handlers exposes the ingestion service over HTTP.
type Handlers struct {
	service *ingest.Service
}

func NewHandlers(service *ingest.Service) *Handlers {
	return &Handlers{service: service}
}

// SplitAudio accepts a multipart audio upload and returns the file id to
// poll for the split result.
func (h *Handlers) SplitAudio(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "missing file field"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read uploaded file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")

	id, err := h.service.Submit(c.Request.Context(), data, fileHeader.Filename, contentType)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNotAudio):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Uploaded file is not an audio file."})
		case errors.Is(err, ingest.ErrEmptyFile):
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Uploaded file is empty."})
		default:
			log.Printf("[✗] Submit failed: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, ShowFileID{ID: id})
}

// ShowURLs returns the two channel locations for a file id, 202 while the
// split is still pending, or 404 for an unknown id.
func (h *Handlers) ShowURLs(c *gin.Context) {
	var req ShowFileID
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	urls, err := h.service.Resolve(c.Request.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": "File not found."})
		case errors.Is(err, ingest.ErrNotReady):
			c.JSON(http.StatusAccepted, gin.H{"detail": "Split not ready yet."})
		default:
			log.Printf("[✗] Resolve failed: %v\n", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, ShowSplitURL{S3URL1: urls.S3URL1, S3URL2: urls.S3URL2})
}
