package domain

import "testing"

func TestKindForMimeType(t *testing.T) {
	tests := []struct {
		mimeType string
		name     string
		expected AttachmentKind
	}{
		{"image/png", "photo.png", AttachmentKindImage},
		{"image/jpeg", "photo.jpg", AttachmentKindImage},
		{"application/pdf", "report.pdf", AttachmentKindPDF},
		{"APPLICATION/PDF", "report.pdf", AttachmentKindPDF},
		{"text/plain", "notes.txt", AttachmentKindText},
		{"text/csv", "data.csv", AttachmentKindText},
		{"audio/mpeg", "voice.mp3", AttachmentKindAudio},
		{"video/mp4", "clip.mp4", AttachmentKindVideo},
		{"application/zip", "archive.zip", AttachmentKindUnsupported},
		{"application/vnd.ms-excel", "sheet.xls", AttachmentKindUnsupported},
		{"", "photo.png", AttachmentKindImage},
		{"", "report.PDF", AttachmentKindPDF},
		{"application/octet-stream", "clip.mov", AttachmentKindVideo},
		{"application/octet-stream", "blob.bin", AttachmentKindUnsupported},
		{"", "noextension", AttachmentKindUnsupported},
	}

	for _, test := range tests {
		if got := KindForMimeType(test.mimeType, test.name); got != test.expected {
			t.Errorf("KindForMimeType(%q, %q) = %q, want %q", test.mimeType, test.name, got, test.expected)
		}
	}
}

func TestFailureCategory(t *testing.T) {
	if got := FailureCategory(ErrModelTimeout); got != "model timeout" {
		t.Errorf("FailureCategory(ErrModelTimeout) = %q", got)
	}
	if got := UserFacingError(ErrHistoryFetch); got != "the request could not be completed: history unavailable" {
		t.Errorf("UserFacingError(ErrHistoryFetch) = %q", got)
	}
}
