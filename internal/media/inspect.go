// Package media inspects and archives uploaded images.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"net/http"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/ppiankov/veritas/internal/model"
)

// ErrNotImage is returned when the payload is not a decodable image
var ErrNotImage = fmt.Errorf("%w: payload is not a supported image", model.ErrInput)

// Inspection is what could be learned from the image bytes alone
type Inspection struct {
	MimeType string
	Format   string
	Width    int
	Height   int
	EXIF     *model.EXIFData
}

// Inspect sniffs the content type, decodes the image header and reads
// provenance EXIF tags when present. declaredType is used only when
// sniffing is inconclusive.
func Inspect(data []byte, declaredType string) (*Inspection, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", model.ErrInput)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		declared := strings.ToLower(strings.TrimSpace(strings.Split(declaredType, ";")[0]))
		if !strings.HasPrefix(declared, "image/") {
			return nil, ErrNotImage
		}
		mime = declared
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	return &Inspection{
		MimeType: mime,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		EXIF:     readEXIF(data),
	}, nil
}

// readEXIF returns nil when the image carries no usable EXIF block
func readEXIF(data []byte) *model.EXIFData {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	out := &model.EXIFData{
		Make:     exifString(x, exif.Make),
		Model:    exifString(x, exif.Model),
		Software: exifString(x, exif.Software),
	}
	if t, err := x.DateTime(); err == nil {
		out.DateTime = t.Format("2006-01-02T15:04:05")
	}
	if *out == (model.EXIFData{}) {
		return nil
	}
	return out
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// Reasons renders informational findings for the record's reason log.
// They never change the score.
func (i *Inspection) Reasons() []string {
	var reasons []string
	reasons = append(reasons, fmt.Sprintf("Image format %s, %dx%d.", i.Format, i.Width, i.Height))

	if i.EXIF == nil {
		return append(reasons, "No camera EXIF metadata found.")
	}
	if camera := strings.TrimSpace(i.EXIF.Make + " " + i.EXIF.Model); camera != "" {
		reasons = append(reasons, fmt.Sprintf("EXIF camera: %s.", camera))
	}
	if i.EXIF.Software != "" {
		reasons = append(reasons, fmt.Sprintf("EXIF software: %s.", i.EXIF.Software))
	}
	if i.EXIF.DateTime != "" {
		reasons = append(reasons, fmt.Sprintf("EXIF capture time: %s.", i.EXIF.DateTime))
	}
	return reasons
}

// MediaInfo converts the inspection into the persisted record form
func (i *Inspection) MediaInfo(size int64) *model.MediaInfo {
	return &model.MediaInfo{
		MimeType:  i.MimeType,
		SizeBytes: size,
		Format:    i.Format,
		Width:     i.Width,
		Height:    i.Height,
		EXIF:      i.EXIF,
	}
}
