package feed

import "fmt"

// Fetch stages reported in errors and to the error hook.
const (
	StageInitialize = "initialize"
	StagePoll       = "poll"
)

// SourceFetchError reports that the data source failed for one symbol.
type SourceFetchError struct {
	Symbol string
	Stage  string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("%s %s: fetch: %v", e.Stage, e.Symbol, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// MalformedBatchError reports that a fetched batch was rejected as a whole.
type MalformedBatchError struct {
	Symbol string
	Stage  string
	Err    error
}

func (e *MalformedBatchError) Error() string {
	return fmt.Sprintf("%s %s: malformed batch: %v", e.Stage, e.Symbol, e.Err)
}

func (e *MalformedBatchError) Unwrap() error { return e.Err }
