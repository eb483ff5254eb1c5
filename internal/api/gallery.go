package api

import (
	"errors"   // Matching service errors
	"mime"     // Content-Disposition formatting
	"net/http" // HTTP status codes
	"strconv"  // Photo id parsing
	"strings"  // Content type checks

	"photo_share/internal/middleware" // Current user lookup
	"photo_share/internal/service"    // Gallery logic
	"photo_share/internal/storage"    // Photo bytes

	"github.com/gin-gonic/gin" // Gin web framework
)

// GalleryHandler renders the photos owned by the signed-in user
func GalleryHandler(gallery *service.GalleryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			return
		}
		photos, err := gallery.ListPhotos(c.Request.Context(), user)
		if err != nil {
			internalError(c, "Gallery listing failed", err)
			return
		}
		render(c, http.StatusOK, "home.html", "Gallery", gin.H{"User": user, "Photos": photos})
	}
}

// PhotoHandler streams the bytes of a photo owned by the signed-in user
func PhotoHandler(gallery *service.GalleryService, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			c.String(http.StatusNotFound, "Photo not found")
			return
		}
		photo, err := gallery.GetPhoto(c.Request.Context(), user, uint(id))
		if errors.Is(err, service.ErrPhotoNotFound) {
			c.String(http.StatusNotFound, "Photo not found") // Other users' photos look missing too
			return
		}
		if err != nil {
			internalError(c, "Photo lookup failed", err)
			return
		}
		body, err := store.Open(c.Request.Context(), photo.StorageKey)
		if errors.Is(err, storage.ErrNotFound) {
			c.String(http.StatusNotFound, "Photo not found")
			return
		}
		if err != nil {
			internalError(c, "Photo read failed", err)
			return
		}
		defer body.Close()

		c.DataFromReader(http.StatusOK, photo.Size, servedContentType(photo.ContentType), body, map[string]string{
			"Content-Disposition":    mime.FormatMediaType("inline", map[string]string{"filename": photo.Filename}),
			"X-Content-Type-Options": "nosniff",
			"Cache-Control":          "private, max-age=3600",
		})
	}
}

// servedContentType only echoes image types; anything else is sent as a download
func servedContentType(declared string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || !strings.HasPrefix(mediaType, "image/") || mediaType == "image/svg+xml" {
		return "application/octet-stream"
	}
	return mediaType
}
