package domain

import "fmt"

// FetchError reports a failed article fetch. It is always non-fatal: callers
// treat it as "no result" and move on.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError reports a failed knowledge-extraction call or an
// unparseable structured response. Fatal to the single article, caught and
// downgraded at batch boundaries.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError reports a failed store save or load.
type PersistenceError struct {
	Path string
	Op   string // "save" | "load"
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigError reports missing or invalid required settings. Raised only at
// startup, never during a live conversation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}
