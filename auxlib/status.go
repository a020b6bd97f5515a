// Package auxlib provides the small set of convenience helpers the
// reference implementation calls its "auxiliary library": status codes
// for the embedding API, argument/type checking with formatted error
// messages, and load/run wrappers over the compiler and vm packages.
// None of it is reachable from script code — there are no host-callable
// native functions in this language — it exists purely for embedders
// and for the CLI built on top of it.
package auxlib

// Status mirrors the embedding API's result codes.
type Status int

const (
	StatusOK Status = iota
	StatusYield
	StatusRunErr
	StatusSyntaxErr
	StatusMemErr
	StatusErrErr
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusYield:
		return "YIELD"
	case StatusRunErr:
		return "RUN_ERR"
	case StatusSyntaxErr:
		return "SYNTAX_ERR"
	case StatusMemErr:
		return "MEM_ERR"
	case StatusErrErr:
		return "ERR_ERR"
	default:
		return "UNKNOWN"
	}
}
