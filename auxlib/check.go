package auxlib

import (
	"fmt"

	"github.com/chazu/rill/value"
)

// CheckArgCount reports a formatted error when args does not supply
// enough values to fill proto's parameters. It never rejects extra
// arguments: like the language's own call convention, surplus arguments
// are silently discarded rather than treated as a mistake.
func CheckArgCount(proto *value.FunctionProto, args []value.Value) error {
	if len(args) < proto.NumParams {
		return fmt.Errorf("%s: expected %d argument(s), got %d", proto.ChunkName, proto.NumParams, len(args))
	}
	return nil
}

// CheckType reports a formatted error unless v's runtime type name
// matches want, in the style of the original's luaL_checktype family.
func CheckType(v value.Value, want string) error {
	if v.TypeName() != want {
		return fmt.Errorf("expected %s, got %s", want, v.TypeName())
	}
	return nil
}

// CheckNumber is CheckType specialised for the "number" type, returning
// the extracted float64 alongside the error so callers can use it
// directly.
func CheckNumber(v value.Value) (float64, error) {
	if err := CheckType(v, "number"); err != nil {
		return 0, err
	}
	return v.Float64(), nil
}

// CheckString is CheckType specialised for the "string" type.
func CheckString(v value.Value) (string, error) {
	if err := CheckType(v, "string"); err != nil {
		return "", err
	}
	return v.AsString().String(), nil
}
