package descriptor

import "fmt"

// ProcessingError reports a record type or field that cannot be turned into a
// table. Element names the offending type or "Type.field"; it is empty when
// the failure concerns the document as a whole.
type ProcessingError struct {
	Element string
	Message string
}

func newProcessingError(element, format string, args ...any) *ProcessingError {
	return &ProcessingError{Element: element, Message: fmt.Sprintf(format, args...)}
}

func (e *ProcessingError) Error() string {
	if e.Element == "" {
		return e.Message
	}
	return e.Element + ": " + e.Message
}
