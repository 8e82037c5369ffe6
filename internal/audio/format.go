package audio

import "strings"

// Format identifies an audio container accepted or produced by the gateway.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatM4A Format = "m4a"
)

// FormatFromContentType maps an upload's declared MIME type to a Format.
func FormatFromContentType(contentType string) (Format, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV, true
	case "audio/mpeg", "audio/mp3":
		return FormatMP3, true
	case "audio/mp4", "audio/x-m4a", "audio/m4a":
		return FormatM4A, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type used when serving this format.
func (f Format) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatM4A:
		return "audio/mp4"
	default:
		return "audio/wav"
	}
}
