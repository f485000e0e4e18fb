package memory

import (
	"fmt"

	"github.com/goccy/go-json"

	ds "github.com/lychee-technology/deltaskip"
)

// rawStatsJSON mirrors the wire shape of one file's add-action stats blob.
// Pointer/map fields default to their zero value on a missing key, which is
// exactly the "all-null" fallback spec.md §3/§7 require for a row that
// can't be parsed.
type rawStatsJSON struct {
	NumRecords  *int64                     `json:"numRecords"`
	TightBounds *bool                      `json:"tightBounds"`
	NullCount   map[string]int64           `json:"nullCount"`
	MinValues   map[string]json.RawMessage `json:"minValues"`
	MaxValues   map[string]json.RawMessage `json:"maxValues"`
}

// fieldAccumulator collects one minValues/maxValues leaf column across a
// batch, decoding each row's raw JSON value according to the column's
// declared primitive type and tracking which rows decoded successfully.
type fieldAccumulator struct {
	typ   ds.PrimitiveType
	strs  []string
	i64s  []int64
	f64s  []float64
	bools []bool
	valid []bool
}

func newFieldAccumulator(t ds.PrimitiveType, n int) *fieldAccumulator {
	return &fieldAccumulator{
		typ:   t,
		strs:  make([]string, n),
		i64s:  make([]int64, n),
		f64s:  make([]float64, n),
		bools: make([]bool, n),
		valid: make([]bool, n),
	}
}

// set decodes raw into row i. A decode failure leaves the row null rather
// than raising — the same "never error, go all-null" contract ParseJSON
// itself follows for a whole row.
func (a *fieldAccumulator) set(i int, raw json.RawMessage) {
	switch a.typ {
	case ds.TypeString, ds.TypeDate, ds.TypeTimestamp:
		// Delta's JSON stats encode date/timestamp bounds as strings
		// ("2024-01-01", RFC3339), so both are read as plain strings here
		// rather than parsed into a temporal type the evaluator doesn't need.
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return
		}
		a.strs[i] = v
	case ds.TypeLong, ds.TypeInteger:
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return
		}
		a.i64s[i] = v
	case ds.TypeDouble:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return
		}
		a.f64s[i] = v
	case ds.TypeBoolean:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return
		}
		a.bools[i] = v
	default:
		return
	}
	a.valid[i] = true
}

func (a *fieldAccumulator) build() ds.Column {
	switch a.typ {
	case ds.TypeLong, ds.TypeInteger:
		return NewInt64Column(a.i64s, a.valid)
	case ds.TypeDouble:
		return NewFloat64Column(a.f64s, a.valid)
	case ds.TypeBoolean:
		return NewBooleanColumn(a.bools, a.valid)
	default:
		return NewStringColumn(a.strs, a.valid)
	}
}

// JSONHandler is the reference ds.JsonHandler: it decodes each row's raw
// stats string independently with goccy/go-json, so one malformed blob
// degrades only that file's stats to all-null instead of failing the batch.
type JSONHandler struct{}

// NewJSONHandler constructs the reference JSON handler.
func NewJSONHandler() *JSONHandler { return &JSONHandler{} }

// ParseJSON implements ds.JsonHandler.
func (h *JSONHandler) ParseJSON(strings ds.Column, targetSchema *ds.StatsSchema) (ds.RecordBatch, error) {
	sc, ok := strings.(*StringColumn)
	if !ok {
		return nil, fmt.Errorf("memory: ParseJSON requires a *memory.StringColumn, got %T", strings)
	}
	n := sc.Len()

	numRecords := make([]int64, n)
	numRecordsValid := make([]bool, n)
	tightBounds := make([]bool, n)
	tightBoundsValid := make([]bool, n)

	nullCountVals := make(map[string][]int64, len(targetSchema.Columns))
	nullCountValid := make(map[string][]bool, len(targetSchema.Columns))
	minAccum := make(map[string]*fieldAccumulator, len(targetSchema.Columns))
	maxAccum := make(map[string]*fieldAccumulator, len(targetSchema.Columns))
	for _, f := range targetSchema.Columns {
		nullCountVals[f.Name] = make([]int64, n)
		nullCountValid[f.Name] = make([]bool, n)
		minAccum[f.Name] = newFieldAccumulator(f.Type, n)
		maxAccum[f.Name] = newFieldAccumulator(f.Type, n)
	}

	for i := 0; i < n; i++ {
		raw, isNull := sc.ValueAt(i)
		if isNull {
			continue
		}
		s, _ := raw.(string)
		if s == "" {
			continue
		}
		var parsed rawStatsJSON
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			continue // malformed blob: row stays all-null, never an error
		}

		if parsed.NumRecords != nil {
			numRecords[i] = *parsed.NumRecords
			numRecordsValid[i] = true
		}
		if parsed.TightBounds != nil {
			tightBounds[i] = *parsed.TightBounds
			tightBoundsValid[i] = true
		}
		for _, f := range targetSchema.Columns {
			if v, ok := parsed.NullCount[f.Name]; ok {
				nullCountVals[f.Name][i] = v
				nullCountValid[f.Name][i] = true
			}
			if raw, ok := parsed.MinValues[f.Name]; ok {
				minAccum[f.Name].set(i, raw)
			}
			if raw, ok := parsed.MaxValues[f.Name]; ok {
				maxAccum[f.Name].set(i, raw)
			}
		}
	}

	columns := map[string]ds.Column{
		ds.StatsFieldNumRecords:  NewInt64Column(numRecords, numRecordsValid),
		ds.StatsFieldTightBounds: NewBooleanColumn(tightBounds, tightBoundsValid),
	}
	for _, f := range targetSchema.Columns {
		columns[ds.StatsFieldNullCount+"."+f.Name] = NewInt64Column(nullCountVals[f.Name], nullCountValid[f.Name])
		columns[ds.StatsFieldMinValues+"."+f.Name] = minAccum[f.Name].build()
		columns[ds.StatsFieldMaxValues+"."+f.Name] = maxAccum[f.Name].build()
	}

	return NewRecordBatch(n, columns)
}
