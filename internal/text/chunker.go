package text

import "errors"

var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Defaults used by the ingestion pipeline.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Split cuts text into fixed-size windows where each window after the first
// repeats the last overlap characters of the previous one. The final window
// may be shorter than chunkSize. Text shorter than chunkSize yields a single
// chunk equal to the input.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidChunkConfig
	}
	if text == "" {
		return nil, nil
	}

	var chunks []string
	for start := 0; ; start += chunkSize - overlap {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			return chunks, nil
		}
		chunks = append(chunks, text[start:end])
	}
}
