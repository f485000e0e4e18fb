package deltaskip

import "errors"

// PrimitiveType enumerates the logical column types this engine reasons
// about. It is deliberately narrower than a full Delta/Parquet type system
// (no structs, arrays, or maps beyond what stats cover) since the rewriter
// only ever compares scalar min/max bounds.
type PrimitiveType int

const (
	TypeString PrimitiveType = iota
	TypeLong
	TypeInteger
	TypeDouble
	TypeBoolean
	TypeDate
	TypeTimestamp
)

// Field is one column of a TableSchema: a name and its logical type.
type Field struct {
	Name string
	Type PrimitiveType
}

// TableSchema is the logical schema of the table being scanned: the schema
// a user predicate is written against.
type TableSchema struct {
	Fields []Field
}

// ByName returns the field with the given top-level name, if present.
func (s *TableSchema) ByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Wire-level field names for the per-file statistics record, reproduced
// verbatim from the external contract.
const (
	StatsFieldNumRecords  = "numRecords"
	StatsFieldTightBounds = "tightBounds"
	StatsFieldNullCount   = "nullCount"
	StatsFieldMinValues   = "minValues"
	StatsFieldMaxValues   = "maxValues"

	// StatsColumnExpr is the column in the per-file action record holding the
	// raw JSON statistics string, as it appears in a Delta add-file action.
	StatsColumnExpr = "add.stats"
)

// StatsSchema is the derived schema of the parsed per-file statistics
// record: a fixed top-level shape wrapping a minValues/maxValues struct that
// mirrors the columns actually referenced by the predicate, plus a nullCount
// struct with every one of those columns widened to TypeLong.
type StatsSchema struct {
	// NumRecords, TightBounds are scalar top-level fields (long, boolean).
	// NullCount, MinValues, MaxValues mirror the filtered column set below.
	Columns []Field
}

// ErrIneligible is returned by DeriveStatsSchema when the predicate's
// referenced columns have no overlap with the table schema's top-level
// fields, meaning no stats-based rewrite can possibly apply.
var ErrIneligible = errors.New("deltaskip: predicate references no top-level stats-eligible column")

// DeriveStatsSchema filters tableSchema down to the fields named in
// referenced (the predicate's Expr.References()), preserving tableSchema's
// original field order. Each referenced name is compared whole against the
// top-level field names: a nested/dotted path such as "address.city" is not
// split, so it does not match the top-level field "address", and nested
// fields are not searched.
//
// Returns ErrIneligible if the intersection is empty, signaling the caller
// should fall back to "no filter" rather than treating this as an error.
func DeriveStatsSchema(tableSchema *TableSchema, referenced []string) (*StatsSchema, error) {
	want := make(map[string]struct{}, len(referenced))
	for _, name := range referenced {
		want[name] = struct{}{}
	}

	var cols []Field
	for _, f := range tableSchema.Fields {
		if _, ok := want[f.Name]; ok {
			cols = append(cols, f)
		}
	}

	if len(cols) == 0 {
		return nil, ErrIneligible
	}

	return &StatsSchema{Columns: cols}, nil
}

// HasColumn reports whether the derived stats schema carries bounds for the
// named top-level column.
func (s *StatsSchema) HasColumn(name string) bool {
	for _, f := range s.Columns {
		if f.Name == name {
			return true
		}
	}
	return false
}
