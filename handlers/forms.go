package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crowdfund/services"
	"crowdfund/storage"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"

	maxFormMemory = 10 << 20
)

// parseForm accepts both urlencoded and multipart bodies.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// formUpload returns the file posted as field, or nil when none was sent.
// The returned closer must be closed once the upload has been consumed.
func formUpload(r *http.Request, field string) (*storage.Upload, io.Closer, error) {
	if r.MultipartForm == nil {
		return nil, noopCloser{}, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noopCloser{}, nil
	}
	if err != nil {
		return nil, noopCloser{}, err
	}
	if header.Filename == "" && header.Size == 0 {
		file.Close()
		return nil, noopCloser{}, nil
	}
	return &storage.Upload{Filename: header.Filename, Size: header.Size, Reader: file}, file, nil
}

// parseTime returns the zero time for blank or malformed input so that the
// service validation reports it as missing.
func parseTime(layout, value string) time.Time {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOptionalUint(value string) *uint {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	id := uint(n)
	return &id
}

// errorMessages flattens a service error into lines for the form page.
func errorMessages(err error) []string {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve.Messages
	}
	return []string{err.Error()}
}
