package manager

// modelNotLoadedError signals a missing tokenizer/model pair so the HTTP
// layer can answer 500 with a descriptive message, matching the clients'
// expectations.
type modelNotLoadedError struct{ what string }

func (e modelNotLoadedError) Error() string { return e.what + " not loaded" }

// ErrModelNotLoaded constructs a modelNotLoadedError.
func ErrModelNotLoaded(what string) error { return modelNotLoadedError{what: what} }

// IsModelNotLoaded reports whether err indicates an unavailable backend.
func IsModelNotLoaded(err error) bool {
	_, ok := err.(modelNotLoadedError)
	return ok
}
