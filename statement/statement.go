// Package statement accumulates row inserts per table and serializes them
// into a single multi-row insert statement.
//
// Usage:
//
//	s := statement.Builder()
//	s.InsertInto("t").Value("1", "2").Value("3", "4")
//	s.InsertInto("u").Values(42, "'x'")
//	s.String() // insert into t values (1,2) (3,4) u values (42,'x')
//
// A Statement is a handle on shared data: copying a Statement shares the
// rows, and Clear gives the handle fresh data without touching the copies.
// A Statement is not safe for concurrent mutation; build one per goroutine
// and combine them with Merge.
package statement

// Statement is a handle on a set of pending table inserts.
type Statement struct {
	data *statementData
}

// Builder returns an empty statement.
func Builder() Statement {
	return Statement{data: newStatementData()}
}

func (s *Statement) ensure() *statementData {
	if s.data == nil {
		s.data = newStatementData()
	}
	return s.data
}

// InsertInto returns an appender for table. Repeated calls with the same
// name append to the same rows.
func (s *Statement) InsertInto(table string) *Insert {
	return &Insert{table: s.ensure().table(table)}
}

// String serializes the statement. It returns "" when no table has rows.
func (s Statement) String() string {
	if s.data == nil {
		return ""
	}
	return s.data.String()
}

// Standard serializes the statement for servers that only accept the
// standard insert syntax: comma-separated rows and one insert per table,
// joined with "; ". It returns "" when no table has rows.
func (s Statement) Standard() string {
	if s.data == nil {
		return ""
	}
	return s.data.standardString()
}

// EstimateSize returns the byte length String will produce.
func (s Statement) EstimateSize() int {
	if s.data == nil {
		return 0
	}
	return s.data.estimateSize()
}

// Rows returns the number of rows across all tables.
func (s Statement) Rows() int {
	if s.data == nil {
		return 0
	}
	return s.data.rows()
}

// Empty reports whether no table has any row.
func (s Statement) Empty() bool {
	return s.data == nil || s.data.empty()
}

// Tables returns the table names that have rows, in first-reference order.
func (s Statement) Tables() []string {
	if s.data == nil {
		return nil
	}
	var names []string
	for _, t := range s.data.tables {
		if len(t.rows) > 0 {
			names = append(names, t.name)
		}
	}
	return names
}

// Clear detaches the handle from its current data. Copies of the statement
// and appenders obtained before Clear keep the old rows.
func (s *Statement) Clear() {
	s.data = newStatementData()
}

// Merge appends the rows of other to s, table by table.
func (s *Statement) Merge(other Statement) {
	if other.data == nil || other.data == s.data {
		return
	}
	d := s.ensure()
	for _, t := range other.data.tables {
		if len(t.rows) == 0 {
			continue
		}
		dst := d.table(t.name)
		for _, r := range t.rows {
			dst.insert(r)
		}
	}
}

// Insert appends rows to one table of a statement.
type Insert struct {
	table *tableData
}

// Value appends one row. A call without values is ignored.
func (i *Insert) Value(values ...string) *Insert {
	i.table.insert(values)
	return i
}

// Values stringifies args with Strings and appends them as one row.
func (i *Insert) Values(args ...any) *Insert {
	return i.Value(Strings(args...)...)
}

// Rows returns the number of rows appended to this table so far.
func (i *Insert) Rows() int {
	return len(i.table.rows)
}
