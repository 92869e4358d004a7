package expr

import (
	"encoding/json"
	"fmt"
)

// Record field names.
const (
	fieldType    = "type"
	fieldName    = "name"
	fieldValue   = "value"
	fieldOperand = "operand"
	fieldOp      = "op"
	fieldLeft    = "left"
	fieldRight   = "right"
)

// ToRecord converts a tree to its nested key-value form:
//
//	{"type": "Var", "name": "A"}
//	{"type": "BoolLit", "value": true}
//	{"type": "Not", "operand": {...}}
//	{"type": "BinOp", "op": "AND", "left": {...}, "right": {...}}
func ToRecord(node Node) map[string]any {
	switch n := node.(type) {
	case *VarNode:
		return map[string]any{fieldType: TypeVar, fieldName: n.Name}
	case *BoolLitNode:
		return map[string]any{fieldType: TypeBoolLit, fieldValue: n.Value}
	case *NotNode:
		return map[string]any{fieldType: TypeNot, fieldOperand: ToRecord(n.Operand)}
	case *BinaryNode:
		return map[string]any{
			fieldType:  TypeBinOp,
			fieldOp:    n.Op.String(),
			fieldLeft:  ToRecord(n.Left),
			fieldRight: ToRecord(n.Right),
		}
	default:
		return nil
	}
}

// FromRecord rebuilds a tree from the form produced by ToRecord. Nested
// records must be map[string]any, which is what encoding/json, yaml.v3 and
// structpb all decode objects to. Any problem yields a *FormatError.
func FromRecord(rec map[string]any) (Node, error) {
	return fromRecord(rec, "$")
}

func fromRecord(rec map[string]any, path string) (Node, error) {
	if rec == nil {
		return nil, &FormatError{Path: path, Reason: "record is null"}
	}
	raw, ok := rec[fieldType]
	if !ok {
		return nil, &FormatError{Path: path, Reason: "missing \"type\" field"}
	}
	typ, ok := raw.(string)
	if !ok {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("\"type\" must be a string, got %T", raw)}
	}

	switch typ {
	case TypeVar:
		name, err := stringField(rec, fieldName, path)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, &FormatError{Path: path, Reason: "\"name\" must not be empty"}
		}
		if !IsIdentifier(name) {
			return nil, &FormatError{Path: path, Reason: fmt.Sprintf("\"name\" %q is not a valid identifier", name)}
		}
		return &VarNode{Name: name}, nil

	case TypeBoolLit:
		raw, ok := rec[fieldValue]
		if !ok {
			return nil, &FormatError{Path: path, Reason: "missing \"value\" field"}
		}
		v, ok := raw.(bool)
		if !ok {
			return nil, &FormatError{Path: path, Reason: fmt.Sprintf("\"value\" must be a boolean, got %T", raw)}
		}
		return &BoolLitNode{Value: v}, nil

	case TypeNot:
		operand, err := childRecord(rec, fieldOperand, path)
		if err != nil {
			return nil, err
		}
		return &NotNode{Operand: operand}, nil

	case TypeBinOp:
		opText, err := stringField(rec, fieldOp, path)
		if err != nil {
			return nil, err
		}
		var op TokenType
		switch opText {
		case "AND":
			op = TokenAnd
		case "OR":
			op = TokenOr
		default:
			return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unknown operator %q (want AND or OR)", opText)}
		}
		left, err := childRecord(rec, fieldLeft, path)
		if err != nil {
			return nil, err
		}
		right, err := childRecord(rec, fieldRight, path)
		if err != nil {
			return nil, err
		}
		return &BinaryNode{Op: op, Left: left, Right: right}, nil

	default:
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unknown node type %q", typ)}
	}
}

func stringField(rec map[string]any, field, path string) (string, error) {
	raw, ok := rec[field]
	if !ok {
		return "", &FormatError{Path: path, Reason: fmt.Sprintf("missing %q field", field)}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &FormatError{Path: path, Reason: fmt.Sprintf("%q must be a string, got %T", field, raw)}
	}
	return s, nil
}

func childRecord(rec map[string]any, field, path string) (Node, error) {
	childPath := path + "." + field
	raw, ok := rec[field]
	if !ok {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("missing %q field", field)}
	}
	child, ok := raw.(map[string]any)
	if !ok {
		return nil, &FormatError{Path: childPath, Reason: fmt.Sprintf("expected an object, got %T", raw)}
	}
	return fromRecord(child, childPath)
}

// MarshalJSON encodes a tree as its JSON record.
func MarshalJSON(node Node) ([]byte, error) {
	rec := ToRecord(node)
	if rec == nil {
		return nil, fmt.Errorf("cannot encode node of type %T", node)
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a JSON record into a tree.
func UnmarshalJSON(data []byte) (Node, error) {
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &FormatError{Path: "$", Reason: err.Error()}
	}
	return FromRecord(rec)
}
