package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/storage"
)

// 10 MiB upload cap, before transcoding.
const maxUploadBytes = 10 << 20

type UploadHandler struct {
	store storage.Store
}

func NewUploadHandler(store storage.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload accepts a multipart "file" field, transcodes it to webp and
// returns the public URL to store as image_url / profile_image_url.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.store == nil {
		httperr.Internal(c, "uploads_disabled", "Le stockage de fichiers n'est pas configuré.")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httperr.BadRequest(c, "missing_file", "Aucun fichier reçu.")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		httperr.BadRequest(c, "file_too_large", "Fichier trop volumineux (10 Mo max).")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		httperr.Internal(c, "failed_to_read_file", "Erreur de lecture du fichier.")
		return
	}
	defer f.Close()

	folder := c.DefaultPostForm("folder", "products")

	url, err := h.store.PutImage(c.Request.Context(), f, folder)
	if err != nil {
		httperr.BadRequest(c, "invalid_image", "Le fichier n'est pas une image valide.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}
