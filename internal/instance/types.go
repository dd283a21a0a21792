package instance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// ErrUnknownType is returned for an unrecognised instance type name.
var ErrUnknownType = errors.New("unknown instance type")

// Type selects how dataset lines are parsed into instances.
type Type int

const (
	TypeTextClassification Type = iota
	TypeVerbSemantics
)

// ParseType accepts "text_classification" and "verb_semantics" in any case
// convention (TextClassification, text-classification, ...).
func ParseType(name string) (Type, error) {
	switch strcase.ToSnake(strings.TrimSpace(name)) {
	case "", "text_classification":
		return TypeTextClassification, nil
	case "verb_semantics":
		return TypeVerbSemantics, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
}

func (t Type) String() string {
	switch t {
	case TypeTextClassification:
		return "text_classification"
	case TypeVerbSemantics:
		return "verb_semantics"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ReadLine parses one dataset line as an instance of type t.
func (t Type) ReadLine(line string) (TextInstance, error) {
	var (
		inst TextInstance
		err  error
	)
	switch t {
	case TypeTextClassification:
		inst, err = ReadTextClassification(line)
	case TypeVerbSemantics:
		inst, err = ReadVerbSemantics(line)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}
