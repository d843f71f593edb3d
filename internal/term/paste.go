package term

const (
	bracketedPasteStart = "\x1b[200~"
	bracketedPasteEnd   = "\x1b[201~"
)

// EncodePaste returns the bytes for pasted content, wrapped in xterm
// bracketed-paste markers when the program asked for them.
func EncodePaste(content string, bracketed bool) []byte {
	if content == "" {
		return nil
	}
	if !bracketed {
		return []byte(content)
	}
	out := make([]byte, 0, len(content)+len(bracketedPasteStart)+len(bracketedPasteEnd))
	out = append(out, bracketedPasteStart...)
	out = append(out, content...)
	out = append(out, bracketedPasteEnd...)
	return out
}
