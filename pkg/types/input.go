package types

// InputType selects how a question's spoken answer is interpreted.
type InputType string

const (
	// InputText accepts the transcript as free text.
	InputText InputType = "text"

	// InputSelect resolves the transcript against the question's options.
	InputSelect InputType = "select"

	// InputDate extracts calendar date components from the transcript.
	InputDate InputType = "date"

	// InputSpelling decodes letter-by-letter spelled input.
	InputSpelling InputType = "spelling"
)

// IsValid reports whether t is a known input type.
func (t InputType) IsValid() bool {
	switch t {
	case InputText, InputSelect, InputDate, InputSpelling:
		return true
	}
	return false
}
