package statement

import "strings"

const (
	insertInto = "insert into"
	values     = "values"
)

// Row is one ordered list of already stringified values.
type Row []string

// tableData holds the rows appended to one table, in append order.
type tableData struct {
	name string
	rows []Row
}

func (t *tableData) insert(row Row) {
	if len(row) == 0 {
		return
	}
	r := make(Row, len(row))
	copy(r, row)
	t.rows = append(t.rows, r)
}

func rowSize(r Row) int {
	if len(r) == 0 {
		return 0
	}
	size := 2 + len(r) - 1 // parentheses and commas
	for _, v := range r {
		size += len(v)
	}
	return size
}

func (t *tableData) estimateSize() int {
	if len(t.rows) == 0 {
		return 0
	}
	size := len(t.name) + 1 + len(values) + 1
	for i, r := range t.rows {
		if i > 0 {
			size++
		}
		size += rowSize(r)
	}
	return size
}

func (t *tableData) writeTo(b *strings.Builder, rowSep byte) {
	b.WriteString(t.name)
	b.WriteByte(' ')
	b.WriteString(values)
	b.WriteByte(' ')
	for i, r := range t.rows {
		if i > 0 {
			b.WriteByte(rowSep)
		}
		b.WriteByte('(')
		for j, v := range r {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(v)
		}
		b.WriteByte(')')
	}
}

// statementData maps table names to their rows. Tables keep the order in
// which they were first referenced.
type statementData struct {
	index  map[string]*tableData
	tables []*tableData
}

func newStatementData() *statementData {
	return &statementData{index: make(map[string]*tableData)}
}

func (d *statementData) table(name string) *tableData {
	if t, ok := d.index[name]; ok {
		return t
	}
	t := &tableData{name: name}
	d.index[name] = t
	d.tables = append(d.tables, t)
	return t
}

func (d *statementData) rows() int {
	n := 0
	for _, t := range d.tables {
		n += len(t.rows)
	}
	return n
}

func (d *statementData) empty() bool {
	for _, t := range d.tables {
		if len(t.rows) > 0 {
			return false
		}
	}
	return true
}

func (d *statementData) estimateSize() int {
	if d.empty() {
		return 0
	}
	size := len(insertInto) + 1
	first := true
	for _, t := range d.tables {
		if len(t.rows) == 0 {
			continue
		}
		if !first {
			size++
		}
		size += t.estimateSize()
		first = false
	}
	return size
}

func (d *statementData) String() string {
	if d.empty() {
		return ""
	}
	var b strings.Builder
	b.Grow(d.estimateSize())
	b.WriteString(insertInto)
	b.WriteByte(' ')
	first := true
	for _, t := range d.tables {
		if len(t.rows) == 0 {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		t.writeTo(&b, ' ')
		first = false
	}
	return b.String()
}

// standardString renders one comma-separated multi-row insert per table,
// joined with "; ".
func (d *statementData) standardString() string {
	if d.empty() {
		return ""
	}
	var b strings.Builder
	b.Grow(d.estimateSize() + 16*len(d.tables))
	first := true
	for _, t := range d.tables {
		if len(t.rows) == 0 {
			continue
		}
		if !first {
			b.WriteString("; ")
		}
		b.WriteString(insertInto)
		b.WriteByte(' ')
		t.writeTo(&b, ',')
		first = false
	}
	return b.String()
}
