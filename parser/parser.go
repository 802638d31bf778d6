package parser

import (
	"regexp"
	"strings"
)

// QueryType represents the type of SQL query
type QueryType int

const (
	QueryUnknown QueryType = iota
	QuerySelect
	QueryInsert
	QueryUpdate
	QueryDelete
	QueryCreate
	QueryDrop
)

// String returns the lower case keyword, used as a metric label
func (t QueryType) String() string {
	switch t {
	case QuerySelect:
		return "select"
	case QueryInsert:
		return "insert"
	case QueryUpdate:
		return "update"
	case QueryDelete:
		return "delete"
	case QueryCreate:
		return "create"
	case QueryDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// ParsedQuery contains extracted information from a SQL query
type ParsedQuery struct {
	Type  QueryType
	DB    string // Database name from FQN
	Table string // Target table of an insert, update or delete
	Query string // query as given
}

var (
	// Match /* ... */ comments before the first keyword
	commentRegex = regexp.MustCompile(`^\s*/\*.*?\*/`)
	// Match the target of INSERT INTO, UPDATE or DELETE FROM, optionally qualified
	tableRegex = regexp.MustCompile("(?i)^\\s*(?:INSERT\\s+INTO|UPDATE|DELETE\\s+FROM)\\s+(?:['\"`]?([a-zA-Z0-9_$]+)['\"`]?\\s*\\.\\s*)?['\"`]?([a-zA-Z0-9_$]+)")
)

var keywords = []struct {
	word string
	typ  QueryType
}{
	{"select", QuerySelect},
	{"insert", QueryInsert},
	{"update", QueryUpdate},
	{"delete", QueryDelete},
	{"create", QueryCreate},
	{"drop", QueryDrop},
	{"with", QuerySelect},
	{"show", QuerySelect},
	{"describe", QuerySelect},
}

// stripComments removes leading block comments.
func stripComments(query string) string {
	for {
		loc := commentRegex.FindStringIndex(query)
		if loc == nil {
			return strings.TrimSpace(query)
		}
		query = query[loc[1]:]
	}
}

// Classify returns the type of query by its first keyword. It does not
// allocate for queries without leading comments.
func Classify(query string) QueryType {
	q := strings.TrimSpace(query)
	if strings.HasPrefix(q, "/*") {
		q = stripComments(q)
	}
	for _, k := range keywords {
		if len(q) >= len(k.word) && strings.EqualFold(q[:len(k.word)], k.word) &&
			(len(q) == len(k.word) || !isIdent(q[len(k.word)])) {
			return k.typ
		}
	}
	return QueryUnknown
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// Parse extracts metadata from a SQL query
func Parse(query string) *ParsedQuery {
	p := &ParsedQuery{
		Query: query,
		Type:  Classify(query),
	}

	if p.IsWritable() {
		if matches := tableRegex.FindStringSubmatch(stripComments(query)); matches != nil {
			p.DB = matches[1]
			p.Table = matches[2]
		}
	}

	return p
}

// IsWritable returns true if query is a write operation (INSERT, UPDATE, DELETE)
func (p *ParsedQuery) IsWritable() bool {
	return p.Type == QueryInsert ||
		p.Type == QueryUpdate ||
		p.Type == QueryDelete
}

// IsBatchable returns true if write can be grouped with other writes.
// Only INSERT queries are grouped; UPDATE and DELETE run on their own.
func (p *ParsedQuery) IsBatchable() bool {
	return p.Type == QueryInsert
}

// MultiStatement reports whether query holds more than one statement, that
// is a semicolon outside quotes followed by anything but whitespace and
// further semicolons.
func MultiStatement(query string) bool {
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == ';':
			return strings.Trim(query[i+1:], " \t\r\n;") != ""
		}
	}
	return false
}

// BatchKey returns a key for grouping writes for batching: the qualified
// target table, or the query itself when no table was found
func (p *ParsedQuery) BatchKey() string {
	if p.Table == "" {
		return p.Query
	}
	if p.DB != "" {
		return p.DB + "." + p.Table
	}
	return p.Table
}
