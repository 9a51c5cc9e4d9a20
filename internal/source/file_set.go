package source

import (
	"bytes"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FileSet owns the files of one resolution and maps spans back to positions.
type FileSet struct {
	files []File
}

func NewFileSet() *FileSet {
	// id 0 stays empty so NoSpan never points into a real file
	return &FileSet{files: make([]File, 1)}
}

func (fs *FileSet) add(path string, content []byte, virtual bool) FileID {
	id := FileID(mustU32(len(fs.files)))
	fs.files = append(fs.files, newFile(id, filepath.ToSlash(filepath.Clean(path)), content, virtual))
	return id
}

// Load reads path, drops a UTF-8 BOM and folds CRLF line endings.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	if bytes.IndexByte(content, '\r') >= 0 {
		content = normalizeCRLF(content)
	}
	return fs.add(path, content, false), nil
}

// AddVirtual registers in-memory content under name.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.add(name, content, true)
}

// Get returns the file with id, or nil for NoSpan's file and unknown ids.
func (fs *FileSet) Get(id FileID) *File {
	if fs == nil || id == 0 || int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Resolve converts both ends of span to positions. Unknown files give zero
// positions.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{}, LineCol{}
	}
	return f.Position(span.Start), f.Position(span.End)
}

// normalizeCRLF folds "\r\n" to "\n"; lone carriage returns are kept.
func normalizeCRLF(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
