package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type formUpload struct {
	header  *multipart.FileHeader
	file    multipart.File
	content io.ReadSeeker
}

func (u *formUpload) Close() {
	if u != nil && u.file != nil {
		_ = u.file.Close()
	}
}

// openFormFile reads the multipart field, writing the error response itself on failure.
// maxBytes <= 0 disables the size check.
func openFormFile(c *gin.Context, field string, maxBytes int64) (*formUpload, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, field+" is required"))
		return nil, false
	}
	if maxBytes > 0 && header.Size > maxBytes {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, "file exceeds the allowed size"))
		return nil, false
	}
	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return nil, false
	}
	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		_ = src.Close()
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return nil, false
		}
		return &formUpload{header: header, content: bytes.NewReader(buf)}, true
	}
	return &formUpload{header: header, file: src, content: reader}, true
}
