package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// FilePart is an optional file attached to a multipart request
type FilePart struct {
	Field    string
	FileName string
	Content  io.Reader
}

// DoMultipart sends fields (and file, if non-nil) as multipart/form-data
func (c *Client) DoMultipart(ctx context.Context, method, path string, fields map[string]string, file *FilePart, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	if file != nil {
		part, err := w.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return fmt.Errorf("failed to copy file %s: %w", file.FileName, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.send(req, path, out)
}
