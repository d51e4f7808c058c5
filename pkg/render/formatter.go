package render

import (
	"fmt"
	"strings"

	"github.com/dlukyanov/gemini-slack-bot/pkg/domain"
)

const (
	// RefusalMessage replaces the model output when generation was
	// safety-blocked.
	RefusalMessage = "I can't help with that request."

	continuationMarker = "_(response truncated)_"
	emptyResponseText  = "(no response content)"
)

type formatter struct {
	chunkLimit int
}

func NewFormatter(chunkLimit int) *formatter {
	return &formatter{chunkLimit: chunkLimit}
}

// Format converts a model response into a posted-ready reply: mrkdwn
// conversion, chunk splitting, the fixed refusal for blocked output and a
// visible marker for truncated output.
func (f *formatter) Format(response domain.ModelResponse) (domain.Reply, error) {
	switch response.FinishReason {
	case domain.FinishBlocked:
		return domain.Reply{Chunks: []string{RefusalMessage}}, nil
	case domain.FinishError:
		return domain.Reply{}, fmt.Errorf("%w: model reported a generation failure", domain.ErrModelRejected)
	}

	text := ToMrkdwn(response.Text)
	if text == "" {
		text = emptyResponseText
	}

	chunks, err := SplitChunks(text, f.chunkLimit)
	if err != nil {
		return domain.Reply{}, err
	}

	if response.FinishReason == domain.FinishTruncated {
		last := chunks[len(chunks)-1]
		if f.chunkLimit > 0 && len(last)+len(continuationMarker)+1 > f.chunkLimit {
			chunks = append(chunks, continuationMarker)
		} else {
			chunks[len(chunks)-1] = last + "\n" + continuationMarker
		}
	}

	return domain.Reply{Chunks: chunks}, nil
}

// SplitChunks splits text into pieces of at most limit bytes, cutting
// only at line boundaries or, within an oversized line, at spaces. A
// fenced code block is atomic: if it cannot fit a single chunk the text
// cannot be split safely.
func SplitChunks(text string, limit int) ([]string, error) {
	if limit <= 0 || len(text) <= limit {
		return []string{text}, nil
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	add := func(block string) {
		if current.Len() > 0 && current.Len()+1+len(block) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(block)
	}

	for _, block := range atomicBlocks(text) {
		if len(block) <= limit {
			add(block)
			continue
		}
		if isFenced(block) {
			return nil, fmt.Errorf("%w: code block exceeds the message size limit", domain.ErrFormatting)
		}
		pieces, err := splitAtSpaces(block, limit)
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			add(piece)
		}
	}
	flush()

	return chunks, nil
}

// atomicBlocks splits text into lines, keeping each fenced code block
// together as a single unsplittable unit.
func atomicBlocks(text string) []string {
	lines := strings.Split(text, "\n")

	var blocks []string
	for i := 0; i < len(lines); i++ {
		if !isFenced(lines[i]) {
			blocks = append(blocks, lines[i])
			continue
		}
		j := i + 1
		for j < len(lines) && !isFenced(lines[j]) {
			j++
		}
		if j == len(lines) {
			// unterminated fence, keep the remainder intact
			blocks = append(blocks, strings.Join(lines[i:], "\n"))
			return blocks
		}
		blocks = append(blocks, strings.Join(lines[i:j+1], "\n"))
		i = j
	}
	return blocks
}

func isFenced(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

func splitAtSpaces(line string, limit int) ([]string, error) {
	var pieces []string
	for len(line) > limit {
		cut := strings.LastIndex(line[:limit+1], " ")
		if cut <= 0 {
			return nil, fmt.Errorf("%w: line cannot be split at a word boundary", domain.ErrFormatting)
		}
		pieces = append(pieces, line[:cut])
		line = line[cut+1:]
	}
	if line != "" {
		pieces = append(pieces, line)
	}
	return pieces, nil
}
