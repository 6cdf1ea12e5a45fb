package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML format module into a CUE value with the same
// shape CompileModule expects. Mapping order is preserved, so record
// fields and definitions keep the order they are written in.
func ParseYAML(ctx *cue.Context, filename string, data []byte) (cue.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cue.Value{}, &CompileError{Field: filename, Message: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return cue.Value{}, &CompileError{Field: filename, Message: "empty YAML document"}
	}
	x, err := yamlToCUE(filename, doc.Content[0])
	if err != nil {
		return cue.Value{}, err
	}
	v := ctx.BuildExpr(x, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

func yamlToCUE(filename string, n *yaml.Node) (ast.Expr, error) {
	fail := func(msg string, args ...any) error {
		return &CompileError{
			Field:   fmt.Sprintf("%s:%d:%d", filename, n.Line, n.Column),
			Message: fmt.Sprintf(msg, args...),
		}
	}
	switch n.Kind {
	case yaml.AliasNode:
		return yamlToCUE(filename, n.Alias)
	case yaml.MappingNode:
		st := &ast.StructLit{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return nil, fail("mapping keys must be scalars")
			}
			x, err := yamlToCUE(filename, val)
			if err != nil {
				return nil, err
			}
			st.Elts = append(st.Elts, &ast.Field{Label: ast.NewString(key.Value), Value: x})
		}
		return st, nil
	case yaml.SequenceNode:
		list := &ast.ListLit{}
		for _, el := range n.Content {
			x, err := yamlToCUE(filename, el)
			if err != nil {
				return nil, err
			}
			list.Elts = append(list.Elts, x)
		}
		return list, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int":
			i, err := strconv.ParseInt(n.Value, 0, 64)
			if err != nil {
				return nil, fail("invalid integer %q", n.Value)
			}
			return ast.NewLit(token.INT, strconv.FormatInt(i, 10)), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, fail("invalid bool %q", n.Value)
			}
			return ast.NewBool(b), nil
		case "!!str":
			return ast.NewString(n.Value), nil
		case "!!float":
			return nil, fail("floats are not supported: %s", n.Value)
		case "!!null":
			return nil, fail("null is not supported")
		}
		return nil, fail("unsupported scalar tag %s", n.ShortTag())
	}
	return nil, fail("unsupported YAML node")
}
