package media

import (
	"io"
	"mime/multipart"
)

// File is one uploaded part, independent of the transport that carried it.
type File struct {
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromFileHeader adapts a parsed multipart part.
func FromFileHeader(fh *multipart.FileHeader) File {
	return File{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromFileHeaders adapts every part of a multipart field.
func FromFileHeaders(headers []*multipart.FileHeader) []File {
	out := make([]File, 0, len(headers))
	for _, fh := range headers {
		if fh == nil {
			continue
		}
		out = append(out, FromFileHeader(fh))
	}
	return out
}

// Result lists the public paths of everything a batch stored.
type Result struct {
	Images []string
	Videos []string
	Audio  *string
	Header *string

	keys []string
}

// Empty reports whether nothing was stored.
func (r *Result) Empty() bool {
	return r == nil || len(r.keys) == 0
}
