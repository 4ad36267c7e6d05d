// Package dump renders the effective configuration, defaults included,
// as JSON, TOML or YAML, and applies JSON settings patches back onto a
// registry. It is the machine-readable boundary of the configuration
// system: the persisted file stays the INI dialect, exports are for
// tooling and remote settings clients.
package dump

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/skiffnet/skiff/internal/config"
	"github.com/skiffnet/skiff/internal/config/schema"
	"github.com/skiffnet/skiff/internal/config/value"
)

// item is one effective entry: a decoded known value, or the verbatim
// raw text of a key the schema does not declare.
type item struct {
	key     string
	val     value.Value
	raw     string
	unknown bool
}

// sectionItems is one section's effective entries in stable order:
// schema keys in registration order, then unknown keys in file order.
type sectionItems struct {
	name  string
	items []item
}

// effective flattens the registry: every schema key at its effective
// value (materializing defaults), plus every unknown entry verbatim.
func effective(r *config.Registry) ([]sectionItems, error) {
	table := r.Schema()
	known := make(map[string]int)
	var out []sectionItems

	for _, name := range table.Sections() {
		sec := sectionItems{name: name}
		for _, def := range table.Section(name) {
			v, err := r.Get(def.Section, def.Key)
			if err != nil {
				return nil, err
			}
			sec.items = append(sec.items, item{key: def.Key, val: v})
		}
		known[name] = len(out)
		out = append(out, sec)
	}

	for _, sec := range r.Dump() {
		idx, ok := known[sec.Name]
		if !ok {
			idx = len(out)
			out = append(out, sectionItems{name: sec.Name})
			known[sec.Name] = idx
		}
		for _, entry := range sec.Entries {
			if table.Has(sec.Name, entry.Key) {
				continue
			}
			out[idx].items = append(out[idx].items, item{key: entry.Key, raw: entry.Raw, unknown: true})
		}
	}
	return out, nil
}

// toGo converts a configuration value to its plain Go representation for
// JSON and TOML encoders. Addresses become a two-element array of host
// and port list, the wire shape settings clients already consume.
func toGo(v value.Value) interface{} {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.Bool()
		return b
	case value.KindInt:
		i, _ := v.Int()
		return i
	case value.KindFloat:
		f, _ := v.Float()
		return f
	case value.KindString:
		s, _ := v.Str()
		return s
	case value.KindNull:
		return nil
	case value.KindList, value.KindTuple:
		elems, _ := v.Elems()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = toGo(e)
		}
		return out
	case value.KindAddr:
		host, ports, _ := v.Addr()
		ps := make([]interface{}, len(ports))
		for i, p := range ports {
			ps[i] = int64(p)
		}
		return []interface{}{host, ps}
	default:
		return nil
	}
}

// JSON renders the effective configuration as a nested JSON document,
// sections as objects in schema order. Unknown entries appear as their
// verbatim raw strings.
func JSON(r *config.Registry) (string, error) {
	sections, err := effective(r)
	if err != nil {
		return "", err
	}

	out := "{}"
	for _, sec := range sections {
		for _, it := range sec.items {
			path := sec.name + "." + it.key
			if it.unknown {
				out, err = sjson.Set(out, path, it.raw)
			} else {
				out, err = sjson.Set(out, path, toGo(it.val))
			}
			if err != nil {
				return "", fmt.Errorf("encode %s: %w", path, err)
			}
		}
	}
	return out, nil
}

// TOML renders the effective configuration as a TOML document. TOML has
// no null, so keys whose effective value is None are omitted.
func TOML(r *config.Registry) (string, error) {
	sections, err := effective(r)
	if err != nil {
		return "", err
	}

	doc := make(map[string]map[string]interface{}, len(sections))
	for _, sec := range sections {
		m := make(map[string]interface{}, len(sec.items))
		for _, it := range sec.items {
			if it.unknown {
				m[it.key] = it.raw
				continue
			}
			if it.val.IsNull() {
				continue
			}
			m[it.key] = toGo(it.val)
		}
		doc[sec.name] = m
	}

	b, err := toml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// YAML renders the effective configuration as a YAML document. The node
// tree is built by hand so sections and keys keep schema order; plain
// map marshalling would shuffle them.
func YAML(r *config.Registry) (string, error) {
	sections, err := effective(r)
	if err != nil {
		return "", err
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, sec := range sections {
		secNode := &yaml.Node{Kind: yaml.MappingNode}
		for _, it := range sec.items {
			var valNode *yaml.Node
			if it.unknown {
				valNode = yamlScalar("!!str", it.raw)
			} else {
				valNode = yamlValue(it.val)
			}
			secNode.Content = append(secNode.Content, yamlScalar("!!str", it.key), valNode)
		}
		root.Content = append(root.Content, yamlScalar("!!str", sec.name), secNode)
	}

	b, err := yaml.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func yamlScalar(tag, val string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: val}
}

func yamlValue(v value.Value) *yaml.Node {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.Bool()
		return yamlScalar("!!bool", strconv.FormatBool(b))
	case value.KindInt:
		i, _ := v.Int()
		return yamlScalar("!!int", strconv.FormatInt(i, 10))
	case value.KindFloat:
		// The canonical spelling always carries a decimal point or
		// exponent, so the plain scalar resolves as a float without an
		// explicit tag in the output.
		return yamlScalar("!!float", value.Encode(v))
	case value.KindString:
		s, _ := v.Str()
		return yamlScalar("!!str", s)
	case value.KindNull:
		return yamlScalar("!!null", "null")
	case value.KindList, value.KindTuple:
		elems, _ := v.Elems()
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range elems {
			node.Content = append(node.Content, yamlValue(e))
		}
		return node
	case value.KindAddr:
		host, ports, _ := v.Addr()
		portsNode := &yaml.Node{Kind: yaml.SequenceNode}
		for _, p := range ports {
			portsNode.Content = append(portsNode.Content, yamlScalar("!!int", strconv.Itoa(p)))
		}
		node := &yaml.Node{Kind: yaml.SequenceNode}
		node.Content = append(node.Content, yamlScalar("!!str", host), portsNode)
		return node
	default:
		return yamlScalar("!!null", "null")
	}
}

// Text renders the effective configuration, defaults included, in the
// persisted INI dialect. Unlike Registry.Save it lists every known key,
// so operators see the whole surface, not only what the file set.
func Text(r *config.Registry) (string, error) {
	sections, err := effective(r)
	if err != nil {
		return "", err
	}

	var b []byte
	for i, sec := range sections {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, '[')
		b = append(b, sec.name...)
		b = append(b, "]\n"...)
		for _, it := range sec.items {
			b = append(b, it.key...)
			b = append(b, " = "...)
			if it.unknown {
				b = append(b, it.raw...)
			} else {
				b = append(b, value.Encode(it.val)...)
			}
			b = append(b, '\n')
		}
	}
	return string(b), nil
}

// pendingSet is one converted patch entry awaiting the apply phase.
type pendingSet struct {
	section string
	key     string
	val     value.Value
}

// Patch applies a nested JSON settings document onto the registry. The
// whole patch is converted and validated first and applied only when
// every entry passes, so a rejected patch changes nothing. All problems
// are collected into one *config.LoadError.
func Patch(r *config.Registry, patch string) error {
	if !gjson.Valid(patch) {
		return errors.New("patch is not valid JSON")
	}
	root := gjson.Parse(patch)
	if !root.IsObject() {
		return errors.New("patch root must be a JSON object of sections")
	}

	table := r.Schema()
	le := &config.LoadError{}
	var pending []pendingSet

	root.ForEach(func(sectionKey, sectionVal gjson.Result) bool {
		section := sectionKey.String()
		if !sectionVal.IsObject() {
			le.Add(fmt.Errorf("section %s: patch value must be an object", section))
			return true
		}
		sectionVal.ForEach(func(keyKey, keyVal gjson.Result) bool {
			key := keyKey.String()
			def, ok := table.Lookup(section, key)
			if !ok {
				le.Add(&config.UnknownKeyError{Section: section, Key: key})
				return true
			}
			v, err := fromJSON(def, keyVal)
			if err != nil {
				le.Add(&config.MalformedValueError{
					Section: section,
					Key:     key,
					Raw:     keyVal.Raw,
					Reason:  err.Error(),
				})
				return true
			}
			if err := def.Validate(v); err != nil {
				le.Add(&config.ValidationError{
					Section:    section,
					Key:        key,
					Constraint: constraintName(err),
					Value:      v,
				})
				return true
			}
			pending = append(pending, pendingSet{section: section, key: key, val: v})
			return true
		})
		return true
	})

	if err := le.AsError(); err != nil {
		return err
	}
	for _, p := range pending {
		if err := r.Set(p.section, p.key, p.val); err != nil {
			return err
		}
	}
	return nil
}

// constraintName names the constraint a validation failure violated.
func constraintName(err error) string {
	var ce *schema.ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return err.Error()
}

// fromJSON converts one JSON patch value to the kind the key declares.
func fromJSON(def *schema.Definition, res gjson.Result) (value.Value, error) {
	if res.Type == gjson.Null {
		if def.Nullable {
			return value.Null(), nil
		}
		return value.Value{}, errors.New("null is not permitted")
	}

	switch def.Kind {
	case value.KindBool:
		if res.Type != gjson.True && res.Type != gjson.False {
			return value.Value{}, errors.New("expected a JSON boolean")
		}
		return value.Bool(res.Bool()), nil

	case value.KindInt:
		n, err := jsonInt(res)
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(n), nil

	case value.KindFloat:
		if res.Type != gjson.Number {
			return value.Value{}, errors.New("expected a JSON number")
		}
		return value.Float(res.Num), nil

	case value.KindString:
		if res.Type != gjson.String {
			return value.Value{}, errors.New("expected a JSON string")
		}
		return value.String(res.String()), nil

	case value.KindList:
		if !res.IsArray() {
			return value.Value{}, errors.New("expected a JSON array")
		}
		var elems []value.Value
		for i, e := range res.Array() {
			switch def.Elem {
			case value.KindInt:
				n, err := jsonInt(e)
				if err != nil {
					return value.Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				elems = append(elems, value.Int(n))
			case value.KindString:
				if e.Type != gjson.String {
					return value.Value{}, fmt.Errorf("element %d: expected a JSON string", i)
				}
				elems = append(elems, value.String(e.String()))
			default:
				return value.Value{}, fmt.Errorf("element %d: unsupported element kind %s", i, def.Elem)
			}
		}
		return value.List(elems...), nil

	case value.KindAddr:
		if !res.IsArray() {
			return value.Value{}, errors.New("expected a [host, ports] array")
		}
		parts := res.Array()
		if len(parts) != 2 || parts[0].Type != gjson.String || !parts[1].IsArray() {
			return value.Value{}, errors.New("expected a [host, ports] array")
		}
		var ports []int
		for i, p := range parts[1].Array() {
			n, err := jsonInt(p)
			if err != nil {
				return value.Value{}, fmt.Errorf("port %d: %w", i, err)
			}
			ports = append(ports, int(n))
		}
		return value.Addr(parts[0].String(), ports), nil

	default:
		return value.Value{}, fmt.Errorf("unsupported kind %s", def.Kind)
	}
}

// jsonInt extracts an integral JSON number.
func jsonInt(res gjson.Result) (int64, error) {
	if res.Type != gjson.Number {
		return 0, errors.New("expected a JSON integer")
	}
	if res.Num != math.Trunc(res.Num) {
		return 0, fmt.Errorf("expected an integer, have %v", res.Num)
	}
	return res.Int(), nil
}
