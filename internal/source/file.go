package source

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// File is one loaded program file. Content has CRLF already folded to LF.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	// Virtual files never existed on disk and keep their path as given.
	Virtual bool

	newlines []uint32 // offset of every '\n'
}

func newFile(id FileID, path string, content []byte, virtual bool) File {
	f := File{ID: id, Path: path, Content: content, Virtual: virtual}
	for i, b := range content {
		if b == '\n' {
			f.newlines = append(f.newlines, mustU32(i))
		}
	}
	return f
}

func mustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("source offset overflow: %w", err))
	}
	return v
}

// LineCount is the number of lines, counting a final line without '\n'.
func (f *File) LineCount() uint32 {
	return mustU32(len(f.newlines) + 1)
}

// Position converts a byte offset to a line and column.
func (f *File) Position(off uint32) LineCol {
	// number of newlines strictly before off
	before, _ := slices.BinarySearch(f.newlines, off)
	return LineCol{Line: mustU32(before + 1), Col: off - f.lineStart(before) + 1}
}

// Offset converts a position back to a byte offset, clamped to the content.
func (f *File) Offset(pos LineCol) uint32 {
	size := mustU32(len(f.Content))
	if pos.Line == 0 {
		return 0
	}
	idx := int(pos.Line) - 1
	if idx > len(f.newlines) {
		return size
	}
	off := f.lineStart(idx)
	if pos.Col > 1 {
		off += pos.Col - 1
	}
	return min(off, size)
}

// Line returns the text of a 1-based line without its newline.
func (f *File) Line(n uint32) string {
	if n == 0 || n > f.LineCount() {
		return ""
	}
	start := f.lineStart(int(n) - 1)
	end := mustU32(len(f.Content))
	if int(n)-1 < len(f.newlines) {
		end = f.newlines[n-1]
	}
	return string(f.Content[start:end])
}

// lineStart is the offset of the 0-based line idx.
func (f *File) lineStart(idx int) uint32 {
	if idx == 0 {
		return 0
	}
	return f.newlines[idx-1] + 1
}
