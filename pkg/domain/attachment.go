package domain

import (
	"path"
	"strings"
)

type AttachmentKind string

const (
	AttachmentKindImage       AttachmentKind = "image"
	AttachmentKindPDF         AttachmentKind = "pdf"
	AttachmentKindText        AttachmentKind = "text"
	AttachmentKindAudio       AttachmentKind = "audio"
	AttachmentKindVideo       AttachmentKind = "video"
	AttachmentKindUnsupported AttachmentKind = "unsupported"
)

// AttachmentRef points at a file shared in a Slack message. The URL
// requires the bot token to fetch.
type AttachmentRef struct {
	SourceURL string
	MimeType  string
	Name      string
}

func (r AttachmentRef) Kind() AttachmentKind {
	return KindForMimeType(r.MimeType, r.Name)
}

// EncodedAttachment is a model-ready content part. Text attachments are
// decoded into Text; every other supported kind keeps its raw bytes.
type EncodedAttachment struct {
	Kind     AttachmentKind
	MimeType string
	Data     []byte
	Text     string
}

func (a EncodedAttachment) Size() int {
	if a.Kind == AttachmentKindText {
		return len(a.Text)
	}
	return len(a.Data)
}

var kindByMimePrefix = map[string]AttachmentKind{
	"image/": AttachmentKindImage,
	"text/":  AttachmentKindText,
	"audio/": AttachmentKindAudio,
	"video/": AttachmentKindVideo,
}

var kindByExtension = map[string]AttachmentKind{
	".png":  AttachmentKindImage,
	".jpg":  AttachmentKindImage,
	".jpeg": AttachmentKindImage,
	".gif":  AttachmentKindImage,
	".webp": AttachmentKindImage,
	".pdf":  AttachmentKindPDF,
	".txt":  AttachmentKindText,
	".md":   AttachmentKindText,
	".csv":  AttachmentKindText,
	".log":  AttachmentKindText,
	".mp3":  AttachmentKindAudio,
	".wav":  AttachmentKindAudio,
	".ogg":  AttachmentKindAudio,
	".mp4":  AttachmentKindVideo,
	".mov":  AttachmentKindVideo,
	".webm": AttachmentKindVideo,
}

// KindForMimeType maps a declared MIME type onto a closed attachment kind,
// falling back to the filename extension when the type is missing or
// generic. Unknown types map to AttachmentKindUnsupported, never an error.
func KindForMimeType(mimeType, name string) AttachmentKind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "application/pdf" {
		return AttachmentKindPDF
	}
	for prefix, kind := range kindByMimePrefix {
		if strings.HasPrefix(mimeType, prefix) {
			return kind
		}
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		if kind, ok := kindByExtension[strings.ToLower(path.Ext(name))]; ok {
			return kind
		}
	}
	return AttachmentKindUnsupported
}
