package statement

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
)

func TestStatement_SingleTable(t *testing.T) {
	s := Builder()
	s.InsertInto("t").Value("1", "2")
	s.InsertInto("t").Value("3", "4")

	want := "insert into t values (1,2) (3,4)"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if s.Rows() != 2 {
		t.Errorf("Expected 2 rows, got %d", s.Rows())
	}
}

func TestStatement_TwoTables(t *testing.T) {
	s := Builder()
	s.InsertInto("a").Value("1")
	s.InsertInto("b").Value("2")

	got := s.String()
	if !strings.Contains(got, "a values (1)") || !strings.Contains(got, "b values (2)") {
		t.Fatalf("String() = %q, missing a table", got)
	}
	// Tables keep first-reference order.
	want := "insert into a values (1) b values (2)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStatement_Empty(t *testing.T) {
	tests := []struct {
		name  string
		build func() Statement
	}{
		{"builder", Builder},
		{"zero value", func() Statement { return Statement{} }},
		{"table without rows", func() Statement {
			s := Builder()
			s.InsertInto("t")
			return s
		}},
		{"empty value", func() Statement {
			s := Builder()
			s.InsertInto("t").Value()
			return s
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.build()
			if !s.Empty() {
				t.Error("Expected Empty() = true")
			}
			if s.String() != "" {
				t.Errorf("Expected empty string, got %q", s.String())
			}
			if s.Rows() != 0 {
				t.Errorf("Expected 0 rows, got %d", s.Rows())
			}
			if s.EstimateSize() != 0 {
				t.Errorf("Expected size 0, got %d", s.EstimateSize())
			}
		})
	}
}

func TestStatement_SkipsTablesWithoutRows(t *testing.T) {
	s := Builder()
	s.InsertInto("empty")
	s.InsertInto("t").Value("1")

	want := "insert into t values (1)"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if tables := s.Tables(); len(tables) != 1 || tables[0] != "t" {
		t.Errorf("Tables() = %v, want [t]", tables)
	}
}

func TestStatement_SameTableSameAppender(t *testing.T) {
	s := Builder()
	a := s.InsertInto("t").Value("1")
	b := s.InsertInto("t").Value("2")
	if a.Rows() != 2 || b.Rows() != 2 {
		t.Errorf("Expected both appenders to see 2 rows, got %d and %d", a.Rows(), b.Rows())
	}
}

func TestStatement_ValueCopiesRow(t *testing.T) {
	s := Builder()
	row := []string{"1", "2"}
	s.InsertInto("t").Value(row...)
	row[0] = "9"

	if got := s.String(); got != "insert into t values (1,2)" {
		t.Errorf("Row was aliased: %q", got)
	}
}

func TestStatement_ClearIsolation(t *testing.T) {
	s := Builder()
	s.InsertInto("t").Value("1")
	held := s
	appender := s.InsertInto("t")

	s.Clear()
	if !s.Empty() {
		t.Fatal("Expected cleared statement to be empty")
	}

	s.InsertInto("t").Value("2")
	appender.Value("3")

	if got := held.String(); got != "insert into t values (1) (3)" {
		t.Errorf("held.String() = %q", got)
	}
	if got := s.String(); got != "insert into t values (2)" {
		t.Errorf("s.String() = %q", got)
	}
}

func TestStatement_Merge(t *testing.T) {
	a := Builder()
	a.InsertInto("t").Value("1")
	b := Builder()
	b.InsertInto("u").Value("2")
	b.InsertInto("t").Value("3")

	a.Merge(b)
	want := "insert into t values (1) (3) u values (2)"
	if got := a.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if b.Rows() != 2 {
		t.Errorf("Merge modified source: %d rows", b.Rows())
	}

	a.Merge(a)
	if a.Rows() != 3 {
		t.Errorf("Self merge changed rows: %d", a.Rows())
	}
}

func TestStatement_Values(t *testing.T) {
	s := Builder()
	s.InsertInto("t").Values(1, int64(2), "'x'", true, nil, 1.5)

	want := "insert into t values (1,2,'x',true,null,1.5)"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStatement_RandomRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		s := Builder()
		appends := 0
		count := r.Intn(50)
		for i := 0; i < count; i++ {
			table := "t" + strconv.Itoa(r.Intn(5))
			n := r.Intn(4)
			row := make([]string, n)
			for j := range row {
				row[j] = strconv.Itoa(r.Intn(100000))
			}
			s.InsertInto(table).Value(row...)
			if n > 0 {
				appends++
			}
		}

		out := s.String()
		if s.Rows() != appends {
			t.Fatalf("Rows() = %d, want %d", s.Rows(), appends)
		}
		if got := strings.Count(out, "("); got != appends {
			t.Fatalf("Found %d row groups in %q, want %d", got, out, appends)
		}
		if s.EstimateSize() < len(out) {
			t.Fatalf("EstimateSize() = %d, less than len %d for %q", s.EstimateSize(), len(out), out)
		}
		if s.EstimateSize() != len(out) {
			t.Fatalf("EstimateSize() = %d, want exact %d", s.EstimateSize(), len(out))
		}
		if strings.HasSuffix(out, " ") {
			t.Fatalf("Trailing separator in %q", out)
		}
	}
}

func TestStatement_Standard(t *testing.T) {
	tests := []struct {
		name  string
		build func() Statement
		want  string
	}{
		{"empty", Builder, ""},
		{"single table", func() Statement {
			s := Builder()
			s.InsertInto("t").Value("1", "2").Value("3", "4")
			return s
		}, "insert into t values (1,2),(3,4)"},
		{"two tables", func() Statement {
			s := Builder()
			s.InsertInto("a").Value("1")
			s.InsertInto("b")
			s.InsertInto("c").Value("2").Value("3")
			return s
		}, "insert into a values (1); insert into c values (2),(3)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build().Standard(); got != tt.want {
				t.Errorf("Standard() = %q, want %q", got, tt.want)
			}
		})
	}
}
