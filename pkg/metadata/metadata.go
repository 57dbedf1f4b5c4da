// Package metadata parses the model_metadata.h header of an Edge Impulse
// model tree into typed constants and generates the Go constants source
// used by bindings and examples.
package metadata

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type metadataError string

func (e metadataError) Error() string { return string(e) }

// Errors returned while parsing a model metadata header.
const (
	ErrNoConstants   = metadataError("no model metadata constants found in header")
	ErrHeaderMissing = metadataError("model metadata header not found")
)

// Kind is the resolved type of a metadata constant.
type Kind int

// Constant kinds.
const (
	KindInt Kind = iota
	KindFloat
	KindString
)

// Constant is one resolved metadata value.
type Constant struct {
	Name  string
	Kind  Kind
	Str   string
	Int   int32
	Float float32
}

// Definition is a raw #define that could not be resolved to a concrete
// value. These are carried through so the generator can flag them.
type Definition struct {
	Name string
	Raw  string
}

// Metadata holds every resolved constant of a model_metadata.h header, in
// definition order, plus the definitions that did not resolve.
type Metadata struct {
	consts     map[string]Constant
	order      []string
	Unresolved []Definition
}

// Only names with these prefixes are extracted; everything else in the
// header is SDK plumbing.
const (
	prefixClassifier  = "EI_CLASSIFIER_"
	prefixAnomalyType = "EI_ANOMALY_TYPE_"
)

// Resolution gives up after this many reference hops.
const maxResolveHops = 10

// ParseFile reads and parses a model_metadata.h header.
func ParseFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrHeaderMissing)
		}
		return nil, fmt.Errorf("failed to read metadata header: %w", err)
	}
	return Parse(data)
}

// Parse parses the contents of a model_metadata.h header.
//
// Extraction follows the deployment header's conventions: only
// EI_CLASSIFIER_ and EI_ANOMALY_TYPE_ defines are kept, the first
// definition of a name wins, values referencing other constants are
// resolved through already-resolved ones, and type-alias values
// (uint8_t, bool, size_t) are skipped.
func Parse(data []byte) (*Metadata, error) {
	raw := collectDefines(data)
	if len(raw) == 0 {
		return nil, ErrNoConstants
	}

	seen := make(map[string]string, len(raw))
	for _, d := range raw {
		seen[d.Name] = d.Raw
	}

	m := &Metadata{consts: make(map[string]Constant, len(raw))}
	for _, d := range raw {
		m.resolveDefine(d, seen)
	}

	// Resize and layer constants referenced by generated code but absent
	// from older headers get their SDK default values.
	m.setDefault("EI_CLASSIFIER_RESIZE_SQUASH", 3)
	m.setDefault("EI_CLASSIFIER_RESIZE_FIT_SHORTEST", 1)
	m.setDefault("EI_CLASSIFIER_RESIZE_FIT_LONGEST", 2)
	m.setDefault("EI_CLASSIFIER_LAST_LAYER_YOLOV5", 0)

	return m, nil
}

// collectDefines runs the first pass: every #define with a relevant
// prefix, first definition wins, value taken as the rest of the line.
func collectDefines(data []byte) []Definition {
	var defs []Definition
	seen := make(map[string]bool)

	for _, line := range strings.Split(string(data), "\n") {
		rest, ok := strings.CutPrefix(line, "#define ")
		if !ok {
			continue
		}
		name, value, ok := strings.Cut(rest, " ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !strings.HasPrefix(name, prefixClassifier) && !strings.HasPrefix(name, prefixAnomalyType) {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		defs = append(defs, Definition{Name: name, Raw: value})
	}
	return defs
}

// resolveDefine runs the second pass for one definition.
func (m *Metadata) resolveDefine(d Definition, seen map[string]string) {
	// Type aliases carry no value.
	switch d.Raw {
	case "uint8_t", "bool", "size_t":
		return
	}

	// The sensor constant is sometimes defined through a chain of sensor
	// kind names. Force it to an integer or drop it.
	if d.Name == "EI_CLASSIFIER_SENSOR" {
		val := d.Raw
		if resolved, ok := m.resolveChain(d.Raw); ok {
			val = resolved
		}
		if n, err := strconv.ParseInt(val, 10, 32); err == nil {
			m.put(Constant{Name: d.Name, Kind: KindInt, Int: int32(n)})
		} else {
			m.Unresolved = append(m.Unresolved, d)
		}
		return
	}

	if strings.HasPrefix(d.Raw, `"`) && strings.HasSuffix(d.Raw, `"`) && len(d.Raw) >= 2 {
		m.put(Constant{Name: d.Name, Kind: KindString, Str: d.Raw[1 : len(d.Raw)-1]})
		return
	}
	if n, err := strconv.ParseInt(d.Raw, 10, 32); err == nil {
		m.put(Constant{Name: d.Name, Kind: KindInt, Int: int32(n)})
		return
	}
	if f, err := strconv.ParseFloat(d.Raw, 32); err == nil {
		m.put(Constant{Name: d.Name, Kind: KindFloat, Float: float32(f)})
		return
	}

	// Reference to an already-resolved constant.
	if ref, ok := m.consts[d.Raw]; ok {
		ref.Name = d.Name
		m.put(ref)
		return
	}

	// The slice size is usually defined as an expression; derive it from
	// the window size instead.
	if d.Name == "EI_CLASSIFIER_SLICE_SIZE" {
		count := m.IntOr("EI_CLASSIFIER_RAW_SAMPLE_COUNT", 0)
		slices := m.IntOr("EI_CLASSIFIER_SLICES_PER_MODEL_WINDOW", 1)
		if slices < 1 {
			slices = 1
		}
		m.put(Constant{Name: d.Name, Kind: KindInt, Int: int32(count / slices)})
		return
	}

	// The resize mode references constants defined after it in the
	// header; the SDK default is squash.
	if d.Name == "EI_CLASSIFIER_RESIZE_MODE" {
		m.put(Constant{Name: d.Name, Kind: KindInt, Int: 3})
		return
	}

	m.Unresolved = append(m.Unresolved, d)
}

// resolveChain follows name-to-name references until it reaches a literal,
// bounded to avoid definition cycles.
func (m *Metadata) resolveChain(start string) (string, bool) {
	current := start
	for hop := 0; hop <= maxResolveHops; hop++ {
		c, ok := m.consts[current]
		if !ok {
			return "", false
		}
		switch c.Kind {
		case KindString:
			return `"` + c.Str + `"`, true
		case KindInt:
			return strconv.FormatInt(int64(c.Int), 10), true
		case KindFloat:
			return strconv.FormatFloat(float64(c.Float), 'g', -1, 32), true
		}
	}
	return "", false
}

func (m *Metadata) put(c Constant) {
	if _, ok := m.consts[c.Name]; ok {
		return
	}
	m.consts[c.Name] = c
	m.order = append(m.order, c.Name)
}

func (m *Metadata) setDefault(name string, value int32) {
	if _, ok := m.consts[name]; !ok {
		m.put(Constant{Name: name, Kind: KindInt, Int: value})
	}
}

// Constants returns every resolved constant in definition order.
func (m *Metadata) Constants() []Constant {
	out := make([]Constant, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.consts[name])
	}
	return out
}

// Lookup returns the constant with the given name.
func (m *Metadata) Lookup(name string) (Constant, bool) {
	c, ok := m.consts[name]
	return c, ok
}

// Int returns the named constant as an integer.
func (m *Metadata) Int(name string) (int, bool) {
	c, ok := m.consts[name]
	if !ok || c.Kind != KindInt {
		return 0, false
	}
	return int(c.Int), true
}

// IntOr returns the named integer constant, or def when absent.
func (m *Metadata) IntOr(name string, def int) int {
	if v, ok := m.Int(name); ok {
		return v
	}
	return def
}

// Float returns the named constant as a float. Integer constants are
// widened, matching the header's habit of writing whole-number intervals
// without a decimal point.
func (m *Metadata) Float(name string) (float32, bool) {
	c, ok := m.consts[name]
	if !ok {
		return 0, false
	}
	switch c.Kind {
	case KindFloat:
		return c.Float, true
	case KindInt:
		return float32(c.Int), true
	}
	return 0, false
}

// Str returns the named constant as a string.
func (m *Metadata) Str(name string) (string, bool) {
	c, ok := m.consts[name]
	if !ok || c.Kind != KindString {
		return "", false
	}
	return c.Str, true
}
