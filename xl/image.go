package xl

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/google/uuid"
)

// Image formats tracked for the package manifest. Each format in use adds a
// content-type Default entry for its file extension.
const (
	imageFormatPNG = iota
	imageFormatJPEG
	imageFormatGIF
	numImageFormats
)

// Image is a picture that can be anchored on a worksheet or placed in a
// header/footer. The blob is written to the package as-is; decoding and
// scaling are left to the consuming application.
type Image struct {
	Extension string // ".png", ".jpg"/".jpeg" or ".gif"
	Blob      []byte
}

// format maps the image extension to its manifest slot, or -1 when the
// extension is not a supported image format.
func (im *Image) format() int {
	switch strings.ToLower(im.Extension) {
	case ".png":
		return imageFormatPNG
	case ".jpg", ".jpeg":
		return imageFormatJPEG
	case ".gif":
		return imageFormatGIF
	}
	return -1
}

func (im *Image) contentExtension() string {
	switch im.format() {
	case imageFormatPNG:
		return "png"
	case imageFormatJPEG:
		return "jpeg"
	case imageFormatGIF:
		return "gif"
	}
	return strings.TrimPrefix(strings.ToLower(im.Extension), ".")
}

func imageContentType(format int) (ext, ctype string) {
	switch format {
	case imageFormatPNG:
		return "png", "image/png"
	case imageFormatJPEG:
		return "jpeg", "image/jpeg"
	case imageFormatGIF:
		return "gif", "image/gif"
	}
	return "", ""
}

// hashKey identifies the image content so identical blobs collapse to a
// single media part regardless of how many cells or sheets use them.
func (im *Image) hashKey() string {
	return fmt.Sprintf("%s.%s", BlobHash(im.Blob), im.contentExtension())
}

// BlobHash returns a stable 128-bit content hash of a binary blob.
func BlobHash(blob []byte) uuid.UUID {
	h := fnv.New128()
	h.Write(blob)
	uid, _ := uuid.FromBytes(h.Sum([]byte{}))
	return uid
}

// imageAnchor places an image at a cell position on a sheet.
type imageAnchor struct {
	image *Image
	row   int // 1-based
	col   int
}

// chartAnchor places a chart at a cell position on a sheet.
type chartAnchor struct {
	chart *Chart
	row   int // 1-based
	col   int
}
