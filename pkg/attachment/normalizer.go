package attachment

import (
	"context"
	"fmt"
	"mime"
	"path"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
)

type Downloader interface {
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

// DefaultMaxBytes holds the per-kind size ceilings. The binary ceilings
// track the model's inline-data limit; text is kept small because it is
// sent verbatim inside the prompt.
func DefaultMaxBytes() map[domain.AttachmentKind]int {
	return map[domain.AttachmentKind]int{
		domain.AttachmentKindImage: 10 << 20,
		domain.AttachmentKindPDF:   20 << 20,
		domain.AttachmentKindText:  1 << 20,
		domain.AttachmentKindAudio: 20 << 20,
		domain.AttachmentKindVideo: 20 << 20,
	}
}

type normalizer struct {
	downloader Downloader
	maxBytes   map[domain.AttachmentKind]int
}

func NewNormalizer(downloader Downloader, maxBytes map[domain.AttachmentKind]int) *normalizer {
	if maxBytes == nil {
		maxBytes = DefaultMaxBytes()
	}
	return &normalizer{
		downloader: downloader,
		maxBytes:   maxBytes,
	}
}

// Normalize fetches the referenced file and encodes it into a model-ready
// content part. Nothing is cached between calls.
func (n *normalizer) Normalize(ctx context.Context, ref domain.AttachmentRef) (domain.EncodedAttachment, error) {
	kind := ref.Kind()
	if kind == domain.AttachmentKindUnsupported {
		return domain.EncodedAttachment{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedAttachment, ref.MimeType)
	}

	data, err := n.downloader.DownloadFile(ctx, ref.SourceURL)
	if err != nil {
		return domain.EncodedAttachment{}, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}

	if ceiling, ok := n.maxBytes[kind]; ok && len(data) > ceiling {
		return domain.EncodedAttachment{}, fmt.Errorf("%w: %d bytes, limit %d", domain.ErrAttachmentTooLarge, len(data), ceiling)
	}

	if kind == domain.AttachmentKindText {
		return domain.EncodedAttachment{
			Kind:     kind,
			MimeType: effectiveMimeType(ref),
			Text:     string(data),
		}, nil
	}

	return domain.EncodedAttachment{
		Kind:     kind,
		MimeType: effectiveMimeType(ref),
		Data:     data,
	}, nil
}

// effectiveMimeType fills in a concrete type for files whose declared
// type was ambiguous but whose extension classified them.
func effectiveMimeType(ref domain.AttachmentRef) string {
	if ref.MimeType != "" && ref.MimeType != "application/octet-stream" {
		return ref.MimeType
	}
	if byExt := mime.TypeByExtension(path.Ext(ref.Name)); byExt != "" {
		return byExt
	}
	return ref.MimeType
}
