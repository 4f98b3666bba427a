package security

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	dErrors "masthead/pkg/domain-errors"
)

// MaxUploadBytes caps any single uploaded file.
const MaxUploadBytes = 10 << 20

var allowedUploadTypes = map[string]struct{}{
	"image/jpeg":         {},
	"image/png":          {},
	"image/gif":          {},
	"image/webp":         {},
	"application/pdf":    {},
	"text/plain":         {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// Executable headers rejected regardless of declared type.
var (
	magicMZ  = []byte{0x4d, 0x5a}
	magicELF = []byte{0x7f, 0x45, 0x4c, 0x46}
)

// CheckUpload validates every file part of a multipart request:
// declared type on the allow-list, size within the cap, and no
// recognizable executable header.
func CheckUpload(r *http.Request) error {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "could not parse upload")
	}
	if r.MultipartForm == nil {
		return nil
	}
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			if err := checkFileHeader(fh); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkFileHeader(fh *multipart.FileHeader) error {
	if fh.Size > MaxUploadBytes {
		return dErrors.New(dErrors.CodeSecurityViolation, "uploaded file exceeds the size limit")
	}

	declared := fh.Header.Get("Content-Type")
	if mediaType, _, ok := strings.Cut(declared, ";"); ok {
		declared = mediaType
	}
	declared = strings.TrimSpace(strings.ToLower(declared))
	if _, ok := allowedUploadTypes[declared]; !ok {
		return dErrors.New(dErrors.CodeSecurityViolation, "file type not allowed")
	}

	f, err := fh.Open()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not open uploaded file")
	}
	defer f.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not read uploaded file")
	}
	head = head[:n]
	if bytes.HasPrefix(head, magicMZ) || bytes.HasPrefix(head, magicELF) {
		return dErrors.New(dErrors.CodeSecurityViolation, "executable content rejected")
	}
	return nil
}
