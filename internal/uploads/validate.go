package uploads

import (
	"bytes"
	"fmt"
	"strings"

	"closingbinder/internal/config"
)

var pdfMagic = []byte("%PDF-")

// ValidateFile checks a candidate upload against the document rules:
// declared PDF content type, PDF magic bytes, and the size cap.
func ValidateFile(f IncomingFile) error {
	if f.Name == "" {
		return fmt.Errorf("file has no name")
	}
	if f.ContentType != "" && f.ContentType != "application/pdf" {
		return fmt.Errorf("%s: only PDF files are allowed (got %s)", f.Name, f.ContentType)
	}
	if len(f.Data) == 0 {
		return fmt.Errorf("%s: file is empty", f.Name)
	}
	if !bytes.HasPrefix(f.Data, pdfMagic) {
		return fmt.Errorf("%s: content is not a PDF", f.Name)
	}
	if int64(len(f.Data)) > config.MaxUploadSize {
		return fmt.Errorf("%s: exceeds the %dMB size limit", f.Name, config.MaxUploadSize>>20)
	}
	return nil
}

// objectName flattens a display name into a storage-safe object key segment.
func objectName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "document.pdf"
	}
	return b.String()
}
