// Package extract converts uploaded files into model-ready entries: plain
// text, inline images, or inline documents. Dispatch is purely by lowercased
// file extension; extraction failures are isolated per file.
package extract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ErrFileTooLarge marks uploads rejected by CheckSize.
var ErrFileTooLarge = errors.New("file exceeds per-file size limit")

// imageMIME maps supported image extensions to their MIME type. Inference is
// by extension, not content sniffing.
var imageMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Adapter turns uploads into extraction entries.
type Adapter struct {
	log zerolog.Logger
}

func NewAdapter(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

// ExtractAll processes uploads in order. Unsupported extensions produce no
// entry; any extraction failure becomes an error-kind entry and processing
// continues with the next file.
func (a *Adapter) ExtractAll(uploads []Upload) []File {
	out := make([]File, 0, len(uploads))
	for _, u := range uploads {
		f, ok := a.extractOne(u)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (a *Adapter) extractOne(u Upload) (File, bool) {
	ext := strings.ToLower(filepath.Ext(u.Filename))

	fail := func(err error) (File, bool) {
		a.log.Warn().Str("file", u.Filename).Err(err).Msg("extraction failed")
		return File{Filename: u.Filename, Kind: KindError, Error: err.Error()}, true
	}

	switch ext {
	case ".pdf":
		if u.Size < PDFInlineBytes {
			data, err := os.ReadFile(u.Path)
			if err != nil {
				return fail(err)
			}
			return File{
				Filename: u.Filename,
				Kind:     KindDocument,
				Data:     base64.StdEncoding.EncodeToString(data),
				MimeType: "application/pdf",
			}, true
		}
		// Too big to send natively; degrade to server-side text extraction.
		text, err := pdfToText(u.Path)
		if err != nil {
			return fail(err)
		}
		return File{Filename: u.Filename, Kind: KindText, Content: text}, true

	case ".docx":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return fail(err)
		}
		text, err := docxToText(data)
		if err != nil {
			return fail(err)
		}
		return File{Filename: u.Filename, Kind: KindText, Content: text}, true

	case ".xlsx", ".xls":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return fail(err)
		}
		text, err := sheetToCSV(data)
		if err != nil {
			return fail(err)
		}
		return File{Filename: u.Filename, Kind: KindText, Content: text}, true

	case ".txt", ".md", ".csv":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return fail(err)
		}
		return File{Filename: u.Filename, Kind: KindText, Content: string(data)}, true

	case ".jpg", ".jpeg", ".png", ".gif":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return fail(err)
		}
		return File{
			Filename: u.Filename,
			Kind:     KindImage,
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: imageMIME[ext],
		}, true

	default:
		a.log.Warn().Str("file", u.Filename).Str("ext", ext).Msg("skipping unsupported file type")
		return File{}, false
	}
}

// CheckSize rejects uploads over the per-file ceiling before extraction runs.
func CheckSize(u Upload) error {
	if u.Size > MaxFileBytes {
		return fmt.Errorf("%s is over %d MB: %w", u.Filename, MaxFileBytes>>20, ErrFileTooLarge)
	}
	return nil
}
