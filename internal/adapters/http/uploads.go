package httpadapter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/kirillkom/broker-report-digest/internal/core/domain"
)

const (
	filesField        = "files"
	multipartMemoryMB = 32
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

type upload struct {
	doc         domain.Document
	contentType string
}

// parseDigestForm reads the multipart form within maxBytes.
func parseDigestForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryMB << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errUploadTooLarge
		}
		return domain.WrapError(domain.ErrInvalidInput, "parse multipart form", err)
	}
	return nil
}

// readUploads returns every file of the files field in upload order.
func readUploads(r *http.Request) ([]upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[filesField]
	out := make([]upload, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("%s: %w", header.Filename, err))
		}
		out = append(out, upload{
			doc:         domain.Document{Name: header.Filename, Data: data},
			contentType: detectContentType(header.Header.Get("Content-Type"), data),
		})
	}
	return out, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

// pageCounter reads a page count from the document structure alone.
type pageCounter func(name string, data []byte, contentType string) *int

// extractPDFPageCount counts PDF pages without decoding their text.
func extractPDFPageCount(name string, data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		slog.Warn("pdf_page_count_failed", "document", name, "error", err)
		return nil
	}
	return &count
}

func documentsOf(uploads []upload) []domain.Document {
	docs := make([]domain.Document, 0, len(uploads))
	for _, u := range uploads {
		docs = append(docs, u.doc)
	}
	return docs
}
