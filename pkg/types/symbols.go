package types

import (
	"sort"
	"strings"
)

// Symbol is a name touched by a source line: a variable, a field, a
// qualified-name segment or prefix, or an invoked method.
type Symbol = string

// SymbolKind classifies what a resolved identifier denotes.
type SymbolKind int

const (
	FunctionSymbol SymbolKind = iota
	MethodSymbol
	TypeSymbol
	VariableSymbol
	ConstantSymbol
	StructFieldSymbol
	PackageSymbol
	UnknownSymbol
)

// String returns the string representation of a SymbolKind
func (k SymbolKind) String() string {
	switch k {
	case FunctionSymbol:
		return "Function"
	case MethodSymbol:
		return "Method"
	case TypeSymbol:
		return "Type"
	case VariableSymbol:
		return "Variable"
	case ConstantSymbol:
		return "Constant"
	case StructFieldSymbol:
		return "StructField"
	case PackageSymbol:
		return "Package"
	default:
		return "Unknown"
	}
}

// Binding is what the semantic provider knows about one identifier occurrence.
type Binding struct {
	Kind SymbolKind
	// Type is the resolved type rendered relative to the analyzed package.
	Type string
	// Scope is the name of the declaring scope (function name, type name or package).
	Scope string
	// Declaration is true when the occurrence declares the name.
	Declaration bool
}

// SymbolSet is a set of symbols.
type SymbolSet map[Symbol]struct{}

// NewSymbolSet builds a set from names.
func NewSymbolSet(names ...Symbol) SymbolSet {
	s := make(SymbolSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s SymbolSet) Add(name Symbol) { s[name] = struct{}{} }

func (s SymbolSet) Has(name Symbol) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s SymbolSet) Sorted() []Symbol {
	out := make([]Symbol, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the members shared by s and other.
func (s SymbolSet) Intersect(other SymbolSet) SymbolSet {
	out := make(SymbolSet)
	for n := range s {
		if other.Has(n) {
			out.Add(n)
		}
	}
	return out
}

func (s SymbolSet) String() string {
	return "{" + strings.Join(s.Sorted(), ", ") + "}"
}

// Clone returns a copy of s. The clone of a nil set is nil.
func (s SymbolSet) Clone() SymbolSet {
	if s == nil {
		return nil
	}
	cp := make(SymbolSet, len(s))
	for n := range s {
		cp.Add(n)
	}
	return cp
}

// LineSymbols maps 1-based line numbers to the symbols touched on that line.
// Iteration order is ascending line number. It is built once by the table
// builder and must not be mutated afterwards.
type LineSymbols struct {
	byLine map[int]SymbolSet
	lines  []int
}

// NewLineSymbols builds a table from a plain map; the sets are copied.
func NewLineSymbols(m map[int]SymbolSet) *LineSymbols {
	t := &LineSymbols{byLine: make(map[int]SymbolSet, len(m))}
	for line, set := range m {
		t.byLine[line] = set.Clone()
		if t.byLine[line] == nil {
			t.byLine[line] = SymbolSet{}
		}
		t.lines = append(t.lines, line)
	}
	sort.Ints(t.lines)
	return t
}

// Len returns the number of lines in the table.
func (t *LineSymbols) Len() int { return len(t.lines) }

// Lines returns the line numbers in ascending order.
func (t *LineSymbols) Lines() []int {
	out := make([]int, len(t.lines))
	copy(out, t.lines)
	return out
}

// At returns the line number at table position i.
func (t *LineSymbols) At(i int) int { return t.lines[i] }

// Symbols returns a copy of the symbol set of line, or nil.
func (t *LineSymbols) Symbols(line int) SymbolSet { return t.byLine[line].Clone() }

// Shared returns the symbols common to every given line.
func (t *LineSymbols) Shared(lines []int) SymbolSet {
	if len(lines) == 0 {
		return SymbolSet{}
	}
	acc := t.byLine[lines[0]].Intersect(t.byLine[lines[0]])
	for _, l := range lines[1:] {
		acc = acc.Intersect(t.byLine[l])
		if len(acc) == 0 {
			break
		}
	}
	return acc
}
