package api

import (
	"errors"   // Matching service errors
	"fmt"      // Size message
	"net/http" // HTTP status codes
	"strings"  // Empty file part body

	"photo_share/internal/middleware" // Current user lookup
	"photo_share/internal/service"    // Upload logic

	"github.com/gin-gonic/gin" // Gin web framework
)

const formOverhead = 64 << 10

// UploadPageHandler renders the upload form
func UploadPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, http.StatusOK, "upload.html", "Upload", nil)
	}
}

// UploadHandler accepts a multipart "file" part and an optional "caption" field
func UploadHandler(uploads *service.UploadService, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			return
		}

		// The limit applies to the file; leave room for the caption and multipart framing
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)
		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				redirectWithFlash(c, FlashError, fmt.Sprintf("File is too large (limit %d MB).", maxBytes>>20), "/upload")
				return
			}
			// Not multipart at all: no file part was sent
			redirectWithFlash(c, FlashError, "No file selected!", "/upload")
			return
		}

		in := service.UploadInput{}
		if captions := form.Value["caption"]; len(captions) > 0 {
			in.Caption = captions[0]
		}
		if files := form.File["file"]; len(files) > 0 {
			fh := files[0]
			f, err := fh.Open()
			if err != nil {
				internalError(c, "Upload open failed", err)
				return
			}
			defer f.Close()
			in.Filename = fh.Filename
			in.ContentType = fh.Header.Get("Content-Type")
			in.Content = f
		} else if _, present := form.Value["file"]; present {
			// A file input submitted without choosing a file arrives as a plain
			// field with an empty filename.
			in.Content = strings.NewReader("")
		}

		_, err = uploads.Upload(c.Request.Context(), user, in)
		switch {
		case err == nil:
			redirectWithFlash(c, FlashSuccess, "Photo uploaded.", "/home")
		case errors.Is(err, service.ErrMissingFile):
			redirectWithFlash(c, FlashError, "No file selected!", "/upload")
		case errors.Is(err, service.ErrEmptyFilename):
			redirectWithFlash(c, FlashError, "File name is empty!", "/upload")
		case isInvalidInput(err):
			redirectWithFlash(c, FlashError, inputMessage(err), "/upload")
		default:
			internalError(c, "Upload failed", err)
		}
	}
}
