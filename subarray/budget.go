package subarray

import (
	"fmt"
	"sort"

	"arraydb/array"
)

// Default memory budgets, in bytes, used as a secondary ceiling over the
// summed estimates of the budgeted attributes.
const (
	DefaultMemoryBudget    = 5 * 1024 * 1024 * 1024
	DefaultMemoryBudgetVar = 10 * 1024 * 1024 * 1024
)

// ResultBudget is the per-attribute result byte budget. SizeFixed holds the
// budget for fixed-sized cells, or for the offset entries of var-sized
// attributes; SizeVar holds the var-sized value budget and is zero for
// fixed-sized attributes.
type ResultBudget struct {
	SizeFixed uint64
	SizeVar   uint64
}

// budgetStore validates and holds the attribute budgets and memory ceilings.
type budgetStore struct {
	schema          *array.Schema
	budgets         map[string]ResultBudget
	memoryBudget    uint64
	memoryBudgetVar uint64
}

func newBudgetStore(schema *array.Schema) *budgetStore {
	return &budgetStore{
		schema:          schema,
		budgets:         make(map[string]ResultBudget),
		memoryBudget:    DefaultMemoryBudget,
		memoryBudgetVar: DefaultMemoryBudgetVar,
	}
}

// attr validates that the attribute exists and matches the requested kind.
func (b *budgetStore) attr(name string, wantVar bool) (*array.Attribute, error) {
	a, ok := b.schema.Attr(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	if a.VarSized() != wantVar {
		kind := "fixed-sized"
		if a.VarSized() {
			kind = "var-sized"
		}
		return nil, fmt.Errorf("%w: attribute %q is %s", ErrBudgetKind, name, kind)
	}
	return a, nil
}

func (b *budgetStore) setFixed(name string, budget uint64) error {
	if _, err := b.attr(name, false); err != nil {
		return err
	}
	if budget == 0 {
		return fmt.Errorf("%w: attribute %q", ErrZeroBudget, name)
	}
	b.budgets[name] = ResultBudget{SizeFixed: budget}
	return nil
}

func (b *budgetStore) setVar(name string, budgetOff, budgetVal uint64) error {
	if _, err := b.attr(name, true); err != nil {
		return err
	}
	if budgetOff == 0 || budgetVal == 0 {
		return fmt.Errorf("%w: attribute %q", ErrZeroBudget, name)
	}
	b.budgets[name] = ResultBudget{SizeFixed: budgetOff, SizeVar: budgetVal}
	return nil
}

func (b *budgetStore) getFixed(name string) (uint64, error) {
	if _, err := b.attr(name, false); err != nil {
		return 0, err
	}
	rb, ok := b.budgets[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBudgetNotSet, name)
	}
	return rb.SizeFixed, nil
}

func (b *budgetStore) getVar(name string) (uint64, uint64, error) {
	if _, err := b.attr(name, true); err != nil {
		return 0, 0, err
	}
	rb, ok := b.budgets[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBudgetNotSet, name)
	}
	return rb.SizeFixed, rb.SizeVar, nil
}

// attrNames returns the budgeted attribute names in deterministic order.
func (b *budgetStore) attrNames() []string {
	names := make([]string, 0, len(b.budgets))
	for name := range b.budgets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *budgetStore) clone() *budgetStore {
	out := &budgetStore{
		schema:          b.schema,
		budgets:         make(map[string]ResultBudget, len(b.budgets)),
		memoryBudget:    b.memoryBudget,
		memoryBudgetVar: b.memoryBudgetVar,
	}
	for k, v := range b.budgets {
		out.budgets[k] = v
	}
	return out
}
