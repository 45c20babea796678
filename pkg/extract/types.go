package extract

// Limits enforced at the upload boundary.
const (
	// MaxFileBytes is the per-file size ceiling.
	MaxFileBytes = 50 << 20
	// PDFInlineBytes is the largest PDF submitted to the model as a native
	// document block. Bigger PDFs degrade to server-side text extraction.
	PDFInlineBytes = 32 << 20
)

// Kind classifies what an upload became after extraction.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindError    Kind = "error"
)

// File is the result of extracting one upload. Immutable once created;
// consumed once by the blob assembler.
type File struct {
	Filename string `json:"filename"`
	Kind     Kind   `json:"kind"`
	Content  string `json:"content,omitempty"`
	Data     string `json:"data,omitempty"` // base64
	MimeType string `json:"mimeType,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Upload is a handle to one uploaded file sitting in temporary storage.
type Upload struct {
	Filename string
	Size     int64
	Path     string
}
