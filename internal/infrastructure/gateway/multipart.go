package gateway

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// FilePart is one file field of a multipart payload.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is a form payload that may carry files.
type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}

// NewMultipart returns an empty payload.
func NewMultipart() *Multipart {
	return &Multipart{Fields: make(map[string]string)}
}

// AddField sets a plain form value.
func (m *Multipart) AddField(name, value string) *Multipart {
	if m.Fields == nil {
		m.Fields = make(map[string]string)
	}
	m.Fields[name] = value
	return m
}

// AddFile appends a file part.
func (m *Multipart) AddFile(field, filename string, content io.Reader) *Multipart {
	m.Files = append(m.Files, FilePart{Field: field, Filename: filename, Content: content})
	return m
}

// encode buffers the payload and returns it with the boundary-bearing
// Content-Type produced by the multipart writer.
func (m *Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if m != nil {
		for name, value := range m.Fields {
			if err := w.WriteField(name, value); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", name, err)
			}
		}
		for _, f := range m.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, "", fmt.Errorf("create file part %s: %w", f.Field, err)
			}
			if f.Content != nil {
				if _, err := io.Copy(part, f.Content); err != nil {
					return nil, "", fmt.Errorf("copy file part %s: %w", f.Field, err)
				}
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
