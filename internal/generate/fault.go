package generate

import "fmt"

// Fault is a generation failure carrying the payload field path where it
// happened. The engine logs faults and skips the event without touching
// entity state.
type Fault struct {
	Field string
	Err   error
}

func (f *Fault) Error() string {
	if f.Field != "" {
		return fmt.Sprintf("generate %s: %v", f.Field, f.Err)
	}
	return fmt.Sprintf("generate: %v", f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

func faultf(field, format string, args ...any) *Fault {
	return &Fault{Field: field, Err: fmt.Errorf(format, args...)}
}
