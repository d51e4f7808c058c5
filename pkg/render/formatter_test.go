package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
)

func TestFormatBlockedProducesRefusal(t *testing.T) {
	f := NewFormatter(3000)

	reply, err := f.Format(domain.ModelResponse{FinishReason: domain.FinishBlocked})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if len(reply.Chunks) != 1 || reply.Chunks[0] != RefusalMessage {
		t.Errorf("reply = %+v, want the fixed refusal", reply)
	}
}

func TestFormatErrorFinish(t *testing.T) {
	f := NewFormatter(3000)

	_, err := f.Format(domain.ModelResponse{FinishReason: domain.FinishError})
	if !errors.Is(err, domain.ErrModelRejected) {
		t.Errorf("err = %v, want ErrModelRejected", err)
	}
}

func TestFormatEmptyResponse(t *testing.T) {
	f := NewFormatter(3000)

	reply, err := f.Format(domain.ModelResponse{FinishReason: domain.FinishComplete})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if len(reply.Chunks) != 1 || reply.Chunks[0] != emptyResponseText {
		t.Errorf("reply = %+v", reply)
	}
}

func TestFormatTruncatedAppendsMarker(t *testing.T) {
	f := NewFormatter(3000)

	reply, err := f.Format(domain.ModelResponse{
		Text:         "partial answer",
		FinishReason: domain.FinishTruncated,
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	last := reply.Chunks[len(reply.Chunks)-1]
	if !strings.HasSuffix(last, continuationMarker) {
		t.Errorf("last chunk = %q, want continuation marker suffix", last)
	}
}

func TestSplitChunksShortText(t *testing.T) {
	chunks, err := SplitChunks("short", 100)
	if err != nil {
		t.Fatalf("SplitChunks: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestSplitChunksAtLineBoundaries(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = strings.Repeat("x", 40)
	}
	text := strings.Join(lines, "\n")

	chunks, err := SplitChunks(text, 100)
	if err != nil {
		t.Fatalf("SplitChunks: %v", err)
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Errorf("chunk %d has %d bytes", i, len(chunk))
		}
	}
	if got := strings.Join(chunks, "\n"); got != text {
		t.Errorf("content changed by splitting:\n%q\n%q", got, text)
	}
}

func TestSplitChunksNeverSplitsCodeBlock(t *testing.T) {
	code := "```\n" + strings.Repeat("line of code\n", 10) + "```"
	text := "intro\n" + code + "\noutro"

	for _, limit := range []int{len(code), len(code) + 10, len(code) + 100} {
		chunks, err := SplitChunks(text, limit)
		if err != nil {
			t.Fatalf("SplitChunks(limit=%d): %v", limit, err)
		}
		found := false
		for _, chunk := range chunks {
			if strings.Contains(chunk, code) {
				found = true
			}
			if opened := strings.Count(chunk, "```") % 2; opened != 0 {
				t.Errorf("limit %d: chunk has an unbalanced fence: %q", limit, chunk)
			}
		}
		if !found {
			t.Errorf("limit %d: code block was split across chunks", limit)
		}
	}
}

func TestSplitChunksOversizedCodeBlock(t *testing.T) {
	code := "```\n" + strings.Repeat("line of code\n", 10) + "```"

	_, err := SplitChunks("intro\n"+code, len(code)-1)
	if !errors.Is(err, domain.ErrFormatting) {
		t.Errorf("err = %v, want ErrFormatting", err)
	}
}

func TestSplitChunksLongLineAtWordBoundaries(t *testing.T) {
	text := strings.Repeat("word ", 50) + "word"

	chunks, err := SplitChunks(text, 40)
	if err != nil {
		t.Fatalf("SplitChunks: %v", err)
	}
	for i, chunk := range chunks {
		if len(chunk) > 40 {
			t.Errorf("chunk %d has %d bytes", i, len(chunk))
		}
		for _, piece := range strings.Split(chunk, "\n") {
			for _, w := range strings.Fields(piece) {
				if w != "word" {
					t.Errorf("chunk %d split mid-word: %q", i, w)
				}
			}
		}
	}
}

func TestSplitChunksUnsplittableWord(t *testing.T) {
	_, err := SplitChunks(strings.Repeat("x", 100), 40)
	if !errors.Is(err, domain.ErrFormatting) {
		t.Errorf("err = %v, want ErrFormatting", err)
	}
}
