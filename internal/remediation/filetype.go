package remediation

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindPDF    Kind = "pdf"
	KindOffice Kind = "office"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

var kindByExt = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindOffice,
	".doc":  KindOffice,
	".pptx": KindOffice,
	".xlsx": KindOffice,
}

var kindByMIME = map[string]Kind{
	"application/pdf":    KindPDF,
	"application/msword": KindOffice,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   KindOffice,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": KindOffice,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         KindOffice,
}

// DetectKind classifies an upload by extension, falling back to the MIME
// type when the name has no extension. A known extension with a conflicting
// known MIME type is rejected.
func DetectKind(fileName, contentType string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	byExt, extOK := kindByExt[ext]

	var byMIME Kind
	mimeOK := false
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			byMIME, mimeOK = kindByMIME[strings.ToLower(mt)]
		}
	}

	switch {
	case extOK && mimeOK && byExt != byMIME:
		return "", ErrUnsupportedFile
	case extOK:
		return byExt, nil
	case ext == "" && mimeOK:
		return byMIME, nil
	}
	return "", ErrUnsupportedFile
}

// IsWord reports whether the name looks like a Word document.
func IsWord(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext == ".docx" || ext == ".doc"
}
