package runner

import "strings"

// charsPerToken is the heuristic used to convert a model's input-token
// budget into a character budget for chunk planning, without pulling in a
// real tokenizer: roughly 4 characters per token for English prose.
const charsPerToken = 4

// estimateTokens approximates how many tokens text will cost, used only for
// the chunk-or-refuse decision, never billed against the real usage the
// provider reports back.
func estimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// chunkText splits text into pieces no larger than maxChars, preferring to
// break on paragraph boundaries so each chunk reads as a coherent unit for
// the per-chunk "notes" pass.
func chunkText(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len(p)+2 > maxChars {
			flush()
		}
		if len(p) > maxChars {
			// A single paragraph is itself too large; hard-split it rather
			// than ever emitting a chunk the caller can't safely send.
			flush()
			for start := 0; start < len(p); start += maxChars {
				end := start + maxChars
				if end > len(p) {
					end = len(p)
				}
				chunks = append(chunks, p[start:end])
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return chunks
}
