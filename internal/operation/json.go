package operation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// jsonOperation is the wire shape of an Operation. Nested operations carry
// the relation field they act through.
type jsonOperation struct {
	Action   string            `json:"action"`
	Model    string            `json:"model"`
	Field    string            `json:"field"`
	Where    json.RawMessage   `json:"where"`
	Data     json.RawMessage   `json:"data"`
	Select   []string          `json:"select"`
	Nested   []*jsonOperation  `json:"nested"`
	Optional bool              `json:"optional"`
	Query    string            `json:"query"`
	Params   []json.RawMessage `json:"params"`
}

// ParseAction resolves an action by its String name.
func ParseAction(name string) (Action, error) {
	for a := FindUnique; a <= ExecuteRaw; a++ {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// ParseJSON decodes a single operation object or an array of them.
// Numbers keep their exact decimal value.
func ParseJSON(data []byte) ([]Operation, error) {
	var wire []*jsonOperation
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &wire); err != nil {
			return nil, fmt.Errorf("decoding operations: %w", err)
		}
	} else {
		var one jsonOperation
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("decoding operation: %w", err)
		}
		wire = []*jsonOperation{&one}
	}

	ops := make([]Operation, len(wire))
	for i, w := range wire {
		op, err := w.operation()
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

func (w *jsonOperation) operation() (Operation, error) {
	action, err := ParseAction(w.Action)
	if err != nil {
		return Operation{}, err
	}
	op := Operation{
		Action:   action,
		Model:    w.Model,
		Select:   w.Select,
		Optional: w.Optional,
		Query:    w.Query,
	}
	if op.Where, err = jsonValues(w.Where); err != nil {
		return Operation{}, fmt.Errorf("where: %w", err)
	}
	if op.Data, err = jsonValues(w.Data); err != nil {
		return Operation{}, fmt.Errorf("data: %w", err)
	}
	for i, raw := range w.Params {
		v, err := jsonValue(raw)
		if err != nil {
			return Operation{}, fmt.Errorf("param %d: %w", i, err)
		}
		op.Params = append(op.Params, v)
	}
	for _, n := range w.Nested {
		if n.Field == "" {
			return Operation{}, fmt.Errorf("nested %s operation without a field", n.Action)
		}
		child, err := n.operation()
		if err != nil {
			return Operation{}, fmt.Errorf("nested %q: %w", n.Field, err)
		}
		op.Nested = append(op.Nested, Nested{Field: n.Field, Op: child})
	}
	return op, nil
}

func jsonValues(raw json.RawMessage) (map[string]cty.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := jsonValue(raw)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsObjectType() {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	return v.AsValueMap(), nil
}

func jsonValue(raw json.RawMessage) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}
