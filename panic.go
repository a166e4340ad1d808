package canonkv

import (
	"fmt"
	"runtime/debug"
)

// PanicError wraps a recovered panic from a user-supplied callback (an
// IDLParser, ValueParser/ValuePrinter, or ModuleRunner method), mirroring
// tx.go's unexported `panicked`/`safelyCall` pair — generalized from
// recovering panics at the bbolt transaction boundary to recovering panics
// at any external-collaborator call boundary (§1.1).
type PanicError struct {
	Reason any
	Stack  string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.Reason, p.Stack)
}

// safelyCall runs f, converting any panic into a *PanicError instead of
// letting it unwind into the caller.
func safelyCall(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Reason: r, Stack: string(debug.Stack())}
		}
	}()
	return f()
}
