package adapters

import (
	"html"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ppiankov/clearview/internal/extract"
	"github.com/ppiankov/clearview/internal/model"
)

// DefaultMaxUploadBytes caps uploaded files
const DefaultMaxUploadBytes = 5 << 20

var uploadExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".text": true,
	".csv": true, ".log": true, ".rst": true, ".html": true, ".htm": true,
}

var stripTags = bluemonday.StrictPolicy()

// FromText wraps pasted text. It never touches the network.
func FromText(text string) model.ExtractionResult {
	return model.NewExtraction(extract.Normalize(text), "", nil, model.SourceRawText, model.InputText, model.MethodRawText)
}

// FromUpload validates an uploaded text file and extracts its content.
// Rejections are returned as *model.InputError.
func FromUpload(filename, contentType string, data []byte, maxBytes int64) (model.ExtractionResult, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	name := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(name))
	mediaType, _, _ := mime.ParseMediaType(contentType)

	// A text/* type only vouches for files without an extension
	allowed := uploadExtensions[ext] || (ext == "" && strings.HasPrefix(mediaType, "text/"))
	if !allowed {
		return model.ExtractionResult{}, model.NewInputError("file", "unsupported file type "+ext+"; upload a plain text, markdown or HTML file")
	}
	if int64(len(data)) > maxBytes {
		return model.ExtractionResult{}, model.NewInputError("file", "file exceeds the upload size limit")
	}
	if !utf8.Valid(data) {
		return model.ExtractionResult{}, model.NewInputError("file", "file is not valid UTF-8 text")
	}

	text := string(data)
	if ext == ".html" || ext == ".htm" || mediaType == "text/html" {
		text = html.UnescapeString(stripTags.Sanitize(text))
	}

	content := extract.Normalize(text)
	if content == "" {
		return model.ExtractionResult{}, model.NewInputError("file", "file contains no text")
	}
	return model.NewExtraction(content, name, nil, model.SourceUploadPrefix+name, model.InputFile, model.MethodUpload), nil
}
