package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/guregu/null/v6"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// Row is one output row: a bar plus indicator values aligned to
// Table.Columns.
type Row struct {
	Date   string
	Bar    PriceBar
	Values []null.Float
}

// Table is the merged price + indicator result returned to callers.
type Table struct {
	Symbol  string
	Columns []string
	Rows    []Row
}

// DateLayoutFor picks the date rendering for a series: calendar dates when
// every bar is at midnight UTC, otherwise a UTC date-time.
func DateLayoutFor(bars []PriceBar) string {
	for _, b := range bars {
		if !b.Midnight() {
			return DateTimeLayout
		}
	}
	return DateLayout
}

// NewTable assembles a table from bars and columns already aligned 1:1
// with bars.
func NewTable(symbol string, bars []PriceBar, cols []Column) (Table, error) {
	t := Table{Symbol: symbol, Columns: make([]string, len(cols)), Rows: make([]Row, len(bars))}
	for i, c := range cols {
		if len(c.Values) != len(bars) {
			return Table{}, fmt.Errorf("column %s has %d values for %d bars", c.Name, len(c.Values), len(bars))
		}
		t.Columns[i] = c.Name
	}
	layout := DateLayoutFor(bars)
	for i, b := range bars {
		vals := make([]null.Float, len(cols))
		for j, c := range cols {
			vals[j] = c.Values[i]
		}
		t.Rows[i] = Row{Date: b.Timestamp.UTC().Format(layout), Bar: b, Values: vals}
	}
	return t, nil
}

// MarshalJSON writes {"symbol": ..., "data": [...]} with each row's keys in
// Date, Open, High, Low, Close, Volume, <columns...> order.
func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"symbol":`)
	if err := writeJSON(&buf, t.Symbol); err != nil {
		return nil, err
	}
	buf.WriteString(`,"data":[`)
	for i, r := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"Date":`)
		writeJSON(&buf, r.Date)
		fmt.Fprintf(&buf, `,"Open":%s,"High":%s,"Low":%s,"Close":%s,"Volume":%d`,
			num(r.Bar.Open), num(r.Bar.High), num(r.Bar.Low), num(r.Bar.Close), r.Bar.Volume)
		for j, name := range t.Columns {
			buf.WriteByte(',')
			writeJSON(&buf, name)
			buf.WriteByte(':')
			if err := writeJSON(&buf, r.Values[j]); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, name, err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func num(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return "null"
	}
	return string(b)
}
