package pipeline

import (
	"fmt"
	"strings"

	"github.com/mineral-labs/lodegraph/model"
)

// SentenceChunker creates a chunker that splits by sentences
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(docID string, text string) ([]*model.Chunk, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("max sentences per chunk must be positive")
		}

		// Handle empty or whitespace-only text
		if strings.TrimSpace(text) == "" {
			return []*model.Chunk{}, nil
		}

		text = strings.ReplaceAll(text, "! ", "!|")
		text = strings.ReplaceAll(text, "? ", "?|")
		text = strings.ReplaceAll(text, ". ", ".|")

		var sentences []string
		for _, s := range strings.Split(text, "|") {
			s = strings.TrimSpace(s)
			if s != "" {
				sentences = append(sentences, s)
			}
		}

		var chunks []*model.Chunk
		var currentChunk []string
		seq := 0
		pos := 0

		flush := func() {
			content := strings.Join(currentChunk, " ")
			startPos := pos
			endPos := pos + len(content)

			chunks = append(chunks, &model.Chunk{
				ID:       model.NewChunkID(docID, seq),
				DocID:    docID,
				Seq:      seq,
				Content:  content,
				StartPos: &startPos,
				EndPos:   &endPos,
				Metadata: model.Metadata{"num_sentences": len(currentChunk)},
			})

			pos = endPos
			currentChunk = nil
			seq++
		}

		for _, sentence := range sentences {
			currentChunk = append(currentChunk, sentence)
			if len(currentChunk) >= maxSentencesPerChunk {
				flush()
			}
		}
		if len(currentChunk) > 0 {
			flush()
		}

		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits by paragraphs
func ParagraphChunker() ChunkFunc {
	return func(docID string, text string) ([]*model.Chunk, error) {
		paragraphs := strings.Split(text, "\n\n")

		var chunks []*model.Chunk
		seq := 0
		pos := 0

		for _, para := range paragraphs {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}

			startPos := pos
			endPos := pos + len(para)

			chunks = append(chunks, &model.Chunk{
				ID:       model.NewChunkID(docID, seq),
				DocID:    docID,
				Seq:      seq,
				Content:  para,
				StartPos: &startPos,
				EndPos:   &endPos,
				Metadata: model.Metadata{},
			})

			pos = endPos + 2 // Account for "\n\n"
			seq++
		}

		return chunks, nil
	}
}

// DefaultChunker is the chunker used when callers do not supply one.
func DefaultChunker() ChunkFunc {
	return SentenceChunker(5)
}
