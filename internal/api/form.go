package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"go.uber.org/zap"
)

// FormFile is one file part of a multipart upload.
type FormFile struct {
	Field   string
	Name    string
	Content io.Reader
}

// Form is a multipart/form-data body.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// PostForm issues a multipart POST. The boundary is generated per request.
func (c *Client) PostForm(ctx context.Context, path string, form Form, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form.Fields))
	for k := range form.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, form.Fields[k]); err != nil {
			return fmt.Errorf("api: form field %s: %w", k, err)
		}
	}
	for _, f := range form.Files {
		w, err := mw.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return fmt.Errorf("api: form file %s: %w", f.Field, err)
		}
		if _, err := io.Copy(w, f.Content); err != nil {
			return fmt.Errorf("api: form file %s: %w", f.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	err := c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf, out)
	if err != nil {
		c.log.Error("form post failed", zap.String("path", path), zap.Error(err))
	}
	return err
}
