package compiler

import "fmt"

// SourceError reports a Term::Error node surviving into the tree
// handed to the compiler (§4.1, §7): the front-end decided to carry a
// parse failure into the AST instead of failing outright, and the
// compiler must reject the whole program rather than silently compile
// around it.
type SourceError struct {
	Message string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error: %s", e.Message)
}
