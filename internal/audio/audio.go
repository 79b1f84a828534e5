// Package audio inspects uploaded recordings and optionally archives them.
package audio

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	interrors "github.com/streed/study-notes/internal/errors"
)

// Upload is an inspected recording ready to be sent for transcription.
type Upload struct {
	Data      []byte
	Filename  string // carries an extension matching the detected media type
	MediaType string
	Extension string
}

// Inspect sniffs the media type of data and rejects anything that is not
// audio or video. The returned filename keeps the caller's base name but
// always ends in the detected extension, since transcription services pick
// the decoder from it.
func Inspect(data []byte, filename string) (*Upload, error) {
	if len(data) == 0 {
		return nil, interrors.ErrEmptyAudio
	}

	mtype := mimetype.Detect(data)
	mediaType := mtype.String()
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !isMedia(mtype) {
		return nil, interrors.Validation("uploaded file is not audio (detected %s)", mediaType)
	}

	ext := mtype.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(filename))
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "audio"
	}

	return &Upload{
		Data:      data,
		Filename:  base + ext,
		MediaType: mediaType,
		Extension: ext,
	}, nil
}

func isMedia(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		s := m.String()
		if strings.HasPrefix(s, "audio/") || strings.HasPrefix(s, "video/") {
			return true
		}
	}
	return false
}
