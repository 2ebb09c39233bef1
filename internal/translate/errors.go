package translate

import "fmt"

// TranslationError describes a failed translation. Service never returns
// it, the original text is used instead.
type TranslationError struct {
	Language string
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate to %s: %v", e.Language, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }
