package orchestrator

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

// imageType returns the media type of the upload: the declared one when set,
// otherwise the sniffed one. ok is false when it is not an image.
func imageType(req model.DiseaseRequest) (string, bool) {
	ct := strings.TrimSpace(req.MimeType)
	if ct == "" {
		ct = http.DetectContentType(req.Image)
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct, false
	}
	return mt, strings.HasPrefix(mt, "image/")
}

// buildUpload encodes the image as the single "file" part of a multipart body.
func buildUpload(req model.DiseaseRequest, mediaType string) ([]byte, string, error) {
	name := filepath.Base(strings.TrimSpace(req.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
		if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
			name += exts[0]
		}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", mediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("write part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
