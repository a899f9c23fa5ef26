package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kendall-kelly/home-services-api/apperrors"
	"github.com/kendall-kelly/home-services-api/utils"
)

// UploadDocument handles POST /api/providers/me/documents/:kind - stores an
// idProof, addressProof or certificate for the calling provider
func (h *ProviderController) UploadDocument(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	// Reject oversized bodies before the multipart parser buffers them
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxFileSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.New("FILE_REQUIRED", http.StatusBadRequest, "A file is required in the 'file' form field"))
		return
	}

	provider, url, err := h.providers.UploadDocument(c.Request.Context(), identity, c.Param("kind"), fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"provider": provider,
		"key":      provider.Documents.Key(c.Param("kind")),
		"url":      url,
	}, "Document uploaded successfully")
}
