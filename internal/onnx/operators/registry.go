package operators

import (
	"fmt"
	"sort"

	"github.com/kiln-ml/kiln/internal/ir"
)

// Translator lowers one source node into target IR values, one per source
// output. Translators are pure: no state outside the node view and the graph
// it carries.
type Translator func(node *Node) ([]*ir.Value, error)

// entry covers the opset versions [since, until]; until 0 leaves the range
// open-ended.
type entry struct {
	since int64
	until int64
	fn    Translator
}

// Registry maps (operator type, opset version) to a translator. It is built
// once and read-only afterwards, so lookups need no synchronization.
type Registry struct {
	entries map[string][]entry
}

// NewRegistry creates a registry with all supported operators.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[string][]entry),
	}

	r.registerReductionOps()
	r.registerMathOps()
	r.registerUtilityOps()

	return r
}

// Register adds fn for opType over the opset range [since, until]. Pass
// until 0 to keep the range open toward newer opsets.
func (r *Registry) Register(opType string, since, until int64, fn Translator) {
	r.entries[opType] = append(r.entries[opType], entry{since: since, until: until, fn: fn})
}

// Lookup returns the translator whose version range contains version.
func (r *Registry) Lookup(opType string, version int64) (Translator, error) {
	ents := r.entries[opType]
	for _, e := range ents {
		if version >= e.since && (e.until == 0 || version <= e.until) {
			return e.fn, nil
		}
	}
	if len(ents) == 0 {
		return nil, &Error{
			Code:    CodeNoTranslator,
			Message: fmt.Sprintf("operator %s is not supported", opType),
		}
	}
	return nil, &Error{
		Code:    CodeNoTranslator,
		Message: fmt.Sprintf("no translator for %s covers opset version %d", opType, version),
	}
}

// Translate looks up the translator for node and applies it.
func (r *Registry) Translate(node *Node) ([]*ir.Value, error) {
	fn, err := r.Lookup(node.OpType(), node.OpsetVersion())
	if err != nil {
		return nil, err
	}
	return fn(node)
}

// SupportedOps returns all registered operator types, sorted.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.entries))
	for op := range r.entries {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
