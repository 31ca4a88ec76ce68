package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Kind identifies one of the supported value kinds for component and
// workflow inputs/outputs.
type Kind string

const (
	KindInt          Kind = "INT"
	KindFloat        Kind = "FLOAT"
	KindString       Kind = "STRING"
	KindBoolean      Kind = "BOOLEAN"
	KindSeries       Kind = "SERIES"
	KindDataFrame    Kind = "DATAFRAME"
	KindMultiTSFrame Kind = "MULTITSFRAME"
	KindAny          Kind = "ANY"
	KindPlotlyJSON   Kind = "PLOTLYJSON"
)

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInt, KindFloat, KindString, KindBoolean, KindSeries,
		KindDataFrame, KindMultiTSFrame, KindAny, KindPlotlyJSON:
		return true
	}
	return false
}

// ValueParsingError is returned when a raw value cannot be coerced into its
// declared kind.
type ValueParsingError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ValueParsingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot parse value as %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("cannot parse value as %s: %s", e.Kind, e.Message)
}

func (e *ValueParsingError) Unwrap() error { return e.Err }

func parseErr(kind Kind, msg string, cause error) error {
	return &ValueParsingError{Kind: kind, Message: msg, Err: cause}
}

// ParseOptions tunes how structured values are parsed. It travels inside the
// wrapper envelope so that senders can declare properties of the data.
type ParseOptions struct {
	// Sorted declares that MultiTSFrame rows arrive already sorted by
	// timestamp. When set, parsing validates the order instead of sorting.
	Sorted bool `json:"sorted,omitempty"`
}

// PlotPayload is an opaque JSON object produced by visualization components.
type PlotPayload map[string]any

// Series is an ordered index -> value mapping.
//
// Examples of raw input accepted by Parse:
//
//	`{"0":1.0,"1":2.1,"2":3.2}`
//	map[string]any{"0": 1.0, "1": 2.1}
//	[]any{1.0, 2.1, 3.2}
type Series struct {
	Index  []string
	Values []any

	// Metadata is a free-form side channel attached to the value. It is not
	// part of the data itself and only survives serialization through the
	// wrapper envelope.
	Metadata map[string]any
}

// Len returns the number of entries.
func (s *Series) Len() int { return len(s.Index) }

// At returns the value stored under the given index label.
func (s *Series) At(label string) (any, bool) {
	for i, idx := range s.Index {
		if idx == label {
			return s.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON renders the series as a JSON object preserving index order.
// Metadata is intentionally not included; see Serialize.
func (s *Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, idx := range s.Index {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(idx)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(s.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses either a JSON object (index order preserved) or a
// JSON array (indices "0".."n-1").
func (s *Series) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var arr []any
		if err := decodeJSONNumbers(data, &arr); err != nil {
			return err
		}
		s.Index = make([]string, len(arr))
		s.Values = make([]any, len(arr))
		for i, v := range arr {
			s.Index[i] = strconv.Itoa(i)
			s.Values[i] = v
		}
		return nil
	}
	keys, vals, err := decodeOrderedObject(data)
	if err != nil {
		return err
	}
	s.Index = keys
	s.Values = vals
	return nil
}

// DataFrame is an ordered collection of named, equally long columns.
//
// Its canonical JSON form maps column names to cell arrays:
//
//	`{"a":[1,2,3],"b":["x","y","z"]}`
//
// An array of row objects (records form) is also accepted on input.
type DataFrame struct {
	Columns []string
	Data    map[string][]any

	Metadata map[string]any
}

// NumRows returns the number of rows (the common column length).
func (f *DataFrame) NumRows() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return len(f.Data[f.Columns[0]])
}

// Column returns the cells of the named column.
func (f *DataFrame) Column(name string) ([]any, bool) {
	cells, ok := f.Data[name]
	return cells, ok
}

// MarshalJSON renders the frame in canonical column form, preserving
// column order.
func (f *DataFrame) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range f.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.Data[col])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the canonical column form or the records form.
func (f *DataFrame) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return f.unmarshalRecords(data)
	}
	keys, vals, err := decodeOrderedObject(data)
	if err != nil {
		return err
	}
	f.Columns = keys
	f.Data = make(map[string][]any, len(keys))
	rows := -1
	for i, col := range keys {
		cells, ok := vals[i].([]any)
		if !ok {
			return fmt.Errorf("column %q is not an array", col)
		}
		if rows >= 0 && len(cells) != rows {
			return fmt.Errorf("column %q has %d cells, want %d", col, len(cells), rows)
		}
		rows = len(cells)
		f.Data[col] = cells
	}
	return nil
}

func (f *DataFrame) unmarshalRecords(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil { // consume '['
		return err
	}
	f.Columns = nil
	f.Data = make(map[string][]any)
	row := 0
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		keys, vals, err := decodeOrderedObject(raw)
		if err != nil {
			return fmt.Errorf("record %d: %w", row, err)
		}
		for i, k := range keys {
			if _, known := f.Data[k]; !known {
				if row > 0 {
					return fmt.Errorf("record %d introduces new column %q", row, k)
				}
				f.Columns = append(f.Columns, k)
				f.Data[k] = nil
			}
			f.Data[k] = append(f.Data[k], vals[i])
		}
		if len(keys) != len(f.Columns) {
			return fmt.Errorf("record %d has %d fields, want %d", row, len(keys), len(f.Columns))
		}
		row++
	}
	_, err := dec.Token() // consume ']'
	return err
}

// MultiTSFrame column names that every frame must carry.
const (
	MTSMetricColumn    = "metric"
	MTSTimestampColumn = "timestamp"
	MTSValueColumn     = "value"
)

// TSRecord is one row of a MultiTSFrame.
type TSRecord struct {
	Metric    string
	Timestamp time.Time
	Value     any
	Extra     map[string]any
}

// MultiTSFrame is a DataFrame constrained to the columns
// {metric, timestamp, value, ...}: metric and timestamp are non-null,
// timestamps are UTC and sorted ascending.
type MultiTSFrame struct {
	Records      []TSRecord
	ExtraColumns []string

	Metadata map[string]any
}

// Metrics returns the distinct metric names in first-appearance order.
func (m *MultiTSFrame) Metrics() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range m.Records {
		if !seen[rec.Metric] {
			seen[rec.Metric] = true
			out = append(out, rec.Metric)
		}
	}
	return out
}

// MarshalJSON renders the frame in column form with the mandatory columns
// first, timestamps as RFC 3339 UTC strings.
func (m *MultiTSFrame) MarshalJSON() ([]byte, error) {
	frame := DataFrame{
		Columns: append([]string{MTSMetricColumn, MTSTimestampColumn, MTSValueColumn}, m.ExtraColumns...),
		Data:    make(map[string][]any),
	}
	n := len(m.Records)
	metrics := make([]any, n)
	timestamps := make([]any, n)
	values := make([]any, n)
	for i, rec := range m.Records {
		metrics[i] = rec.Metric
		timestamps[i] = rec.Timestamp.UTC().Format(time.RFC3339Nano)
		values[i] = rec.Value
	}
	frame.Data[MTSMetricColumn] = metrics
	frame.Data[MTSTimestampColumn] = timestamps
	frame.Data[MTSValueColumn] = values
	for _, col := range m.ExtraColumns {
		cells := make([]any, n)
		for i, rec := range m.Records {
			cells[i] = rec.Extra[col]
		}
		frame.Data[col] = cells
	}
	return frame.MarshalJSON()
}

// UnmarshalJSON parses the column or records form and validates the
// MultiTSFrame constraints, sorting rows by timestamp.
func (m *MultiTSFrame) UnmarshalJSON(data []byte) error {
	return m.parseFrom(data, ParseOptions{})
}

func (m *MultiTSFrame) parseFrom(data []byte, opts ParseOptions) error {
	var frame DataFrame
	if err := frame.UnmarshalJSON(data); err != nil {
		return err
	}
	return m.fromDataFrame(&frame, opts)
}

func (m *MultiTSFrame) fromDataFrame(frame *DataFrame, opts ParseOptions) error {
	for _, required := range []string{MTSMetricColumn, MTSTimestampColumn, MTSValueColumn} {
		if _, ok := frame.Data[required]; !ok {
			return fmt.Errorf("missing required column %q", required)
		}
	}
	m.ExtraColumns = nil
	for _, col := range frame.Columns {
		if col != MTSMetricColumn && col != MTSTimestampColumn && col != MTSValueColumn {
			m.ExtraColumns = append(m.ExtraColumns, col)
		}
	}

	n := frame.NumRows()
	m.Records = make([]TSRecord, 0, n)
	for i := 0; i < n; i++ {
		metric, ok := frame.Data[MTSMetricColumn][i].(string)
		if !ok || metric == "" {
			return fmt.Errorf("row %d: metric must be a non-null string", i)
		}
		tsRaw, ok := frame.Data[MTSTimestampColumn][i].(string)
		if !ok || tsRaw == "" {
			return fmt.Errorf("row %d: timestamp must be a non-null string", i)
		}
		ts, err := parseUTCTimestamp(tsRaw)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		rec := TSRecord{
			Metric:    metric,
			Timestamp: ts,
			Value:     frame.Data[MTSValueColumn][i],
		}
		if len(m.ExtraColumns) > 0 {
			rec.Extra = make(map[string]any, len(m.ExtraColumns))
			for _, col := range m.ExtraColumns {
				rec.Extra[col] = frame.Data[col][i]
			}
		}
		m.Records = append(m.Records, rec)
	}

	if opts.Sorted {
		for i := 1; i < len(m.Records); i++ {
			if m.Records[i].Timestamp.Before(m.Records[i-1].Timestamp) {
				return fmt.Errorf("rows %d and %d violate the declared timestamp order", i-1, i)
			}
		}
		return nil
	}
	sort.SliceStable(m.Records, func(i, j int) bool {
		return m.Records[i].Timestamp.Before(m.Records[j].Timestamp)
	})
	return nil
}

func parseUTCTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	if _, offset := t.Zone(); offset != 0 {
		return time.Time{}, fmt.Errorf("timestamp %q is not UTC", s)
	}
	return t.UTC(), nil
}

// envelope is the wrapper used to attach metadata to structured values
// across serialization:
//
//	{"kind": "SERIES", "metadata": {...}, "data": {...}, "parse_options": {...}}
type envelope struct {
	Kind         Kind            `json:"kind"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
	Data         json.RawMessage `json:"data"`
	ParseOptions *ParseOptions   `json:"parse_options,omitempty"`
}

// unwrapEnvelope detects and opens the metadata wrapper envelope. The second
// return value reports whether raw actually was an envelope for the kind.
func unwrapEnvelope(raw []byte, kind Kind) (data []byte, meta map[string]any, opts ParseOptions, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, ParseOptions{}, false
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, nil, ParseOptions{}, false
	}
	if env.Kind != kind || env.Data == nil {
		return nil, nil, ParseOptions{}, false
	}
	if env.ParseOptions != nil {
		opts = *env.ParseOptions
	}
	return env.Data, env.Metadata, opts, true
}

// Parse coerces a raw value (a JSON string/bytes or a native Go container)
// into the canonical in-memory representation of the declared kind.
func Parse(raw any, kind Kind) (any, error) {
	switch kind {
	case KindInt:
		return parseInt(raw)
	case KindFloat:
		return parseFloat(raw)
	case KindString:
		return parseString(raw)
	case KindBoolean:
		return parseBool(raw)
	case KindSeries:
		return parseSeries(raw)
	case KindDataFrame:
		return parseDataFrame(raw)
	case KindMultiTSFrame:
		return parseMultiTSFrame(raw)
	case KindAny:
		return parseAny(raw), nil
	case KindPlotlyJSON:
		return parsePlotPayload(raw)
	}
	return nil, parseErr(kind, "unknown kind", nil)
}

// Serialize renders a typed value into a JSON-compatible structure that
// round-trips through Parse. Structured values carrying metadata are wrapped
// in the metadata envelope.
func Serialize(v any) (any, error) {
	switch tv := v.(type) {
	case *Series:
		return serializeStructured(tv, KindSeries, tv.Metadata)
	case *DataFrame:
		return serializeStructured(tv, KindDataFrame, tv.Metadata)
	case *MultiTSFrame:
		return serializeStructured(tv, KindMultiTSFrame, tv.Metadata)
	default:
		return v, nil
	}
}

func serializeStructured(v json.Marshaler, kind Kind, meta map[string]any) (any, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return json.RawMessage(data), nil
	}
	return envelope{Kind: kind, Metadata: meta, Data: data}, nil
}

func parseInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return nil, parseErr(KindInt, fmt.Sprintf("%v is not integral", v), nil)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, parseErr(KindInt, v.String(), err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, parseErr(KindInt, v, err)
		}
		return n, nil
	}
	return nil, parseErr(KindInt, fmt.Sprintf("unsupported source type %T", raw), nil)
}

func parseFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, parseErr(KindFloat, v.String(), err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, parseErr(KindFloat, v, err)
		}
		return f, nil
	}
	return nil, parseErr(KindFloat, fmt.Sprintf("unsupported source type %T", raw), nil)
}

func parseString(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case float64, int, int64, bool, json.Number:
		return fmt.Sprintf("%v", v), nil
	}
	return nil, parseErr(KindString, fmt.Sprintf("unsupported source type %T", raw), nil)
}

func parseBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, parseErr(KindBoolean, v, err)
		}
		return b, nil
	}
	return nil, parseErr(KindBoolean, fmt.Sprintf("unsupported source type %T", raw), nil)
}

func parseSeries(raw any) (any, error) {
	switch v := raw.(type) {
	case *Series:
		return v, nil
	case Series:
		return &v, nil
	}
	data, err := rawJSON(raw)
	if err != nil {
		return nil, parseErr(KindSeries, "not JSON-encodable", err)
	}
	meta, _, data := openEnvelope(data, KindSeries)
	var s Series
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, parseErr(KindSeries, "malformed series", err)
	}
	s.Metadata = meta
	return &s, nil
}

func parseDataFrame(raw any) (any, error) {
	switch v := raw.(type) {
	case *DataFrame:
		return v, nil
	case DataFrame:
		return &v, nil
	}
	data, err := rawJSON(raw)
	if err != nil {
		return nil, parseErr(KindDataFrame, "not JSON-encodable", err)
	}
	meta, _, data := openEnvelope(data, KindDataFrame)
	var f DataFrame
	if err := f.UnmarshalJSON(data); err != nil {
		return nil, parseErr(KindDataFrame, "malformed dataframe", err)
	}
	f.Metadata = meta
	return &f, nil
}

func parseMultiTSFrame(raw any) (any, error) {
	switch v := raw.(type) {
	case *MultiTSFrame:
		return v, nil
	case MultiTSFrame:
		return &v, nil
	}
	data, err := rawJSON(raw)
	if err != nil {
		return nil, parseErr(KindMultiTSFrame, "not JSON-encodable", err)
	}
	meta, opts, data := openEnvelope(data, KindMultiTSFrame)
	var m MultiTSFrame
	if err := m.parseFrom(data, opts); err != nil {
		return nil, parseErr(KindMultiTSFrame, "malformed multitsframe", err)
	}
	m.Metadata = meta
	return &m, nil
}

func openEnvelope(data []byte, kind Kind) (meta map[string]any, opts ParseOptions, inner []byte) {
	if d, m, o, ok := unwrapEnvelope(data, kind); ok {
		return m, o, d
	}
	return nil, ParseOptions{}, data
}

// parseAny implements the ANY coercion rule: a string is JSON-decoded once
// and, if the decoded result is again a string, decoded a second time. This
// guards against double-encoding by upstream callers. On failure at any
// stage the original string is kept as-is.
func parseAny(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	if inner, ok := decoded.(string); ok {
		var twice any
		if err := json.Unmarshal([]byte(inner), &twice); err != nil {
			return decoded
		}
		return twice
	}
	return decoded
}

func parsePlotPayload(raw any) (any, error) {
	switch v := raw.(type) {
	case PlotPayload:
		return v, nil
	case map[string]any:
		return PlotPayload(v), nil
	case nil:
		return PlotPayload{}, nil
	}
	data, err := rawJSON(raw)
	if err != nil {
		return nil, parseErr(KindPlotlyJSON, "not JSON-encodable", err)
	}
	var p PlotPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, parseErr(KindPlotlyJSON, "malformed plot payload", err)
	}
	return p, nil
}

// rawJSON turns raw into JSON bytes: strings and byte slices are taken
// verbatim, everything else is marshaled.
func rawJSON(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	return json.Marshal(raw)
}

// decodeOrderedObject decodes a JSON object into parallel key/value slices,
// preserving the key order of the document. Numbers are normalized to
// float64.
func decodeOrderedObject(data []byte) ([]string, []any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}
	var keys []string
	var vals []any
	for dec.More() {
		kTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := kTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("object key is not a string: %v", kTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		vals = append(vals, normalizeNumbers(v))
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return nil, nil, err
	}
	return keys, vals, nil
}

func decodeJSONNumbers(data []byte, out *[]any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var arr []any
	if err := dec.Decode(&arr); err != nil {
		return err
	}
	for i, v := range arr {
		arr[i] = normalizeNumbers(v)
	}
	*out = arr
	return nil
}

// normalizeNumbers converts json.Number leaves to float64 so parsed values
// compare equal regardless of the decoding path.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	}
	return v
}

// NamedValue is a named, typed raw value as supplied by constants, default
// values, or externally loaded data.
type NamedValue struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"type"`
	Value any    `json:"value"`
}

// ParseNamed parses a batch of named values. The batch fails as a whole on
// the first entry that cannot be coerced; partial results are never
// returned.
func ParseNamed(values []NamedValue) (map[string]any, error) {
	parsed := make(map[string]any, len(values))
	for _, nv := range values {
		v, err := Parse(nv.Value, nv.Kind)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", nv.Name, err)
		}
		parsed[nv.Name] = v
	}
	return parsed, nil
}
