package encoder

import "strings"

// reservedWords are keywords that always force quoting of an identifier
var reservedWords = map[string]struct{}{
	"all": {}, "and": {}, "any": {}, "as": {}, "asc": {}, "between": {}, "by": {},
	"case": {}, "check": {}, "column": {}, "constraint": {}, "create": {}, "cross": {},
	"default": {}, "delete": {}, "desc": {}, "distinct": {}, "drop": {}, "else": {},
	"end": {}, "exists": {}, "false": {}, "for": {}, "foreign": {}, "from": {},
	"full": {}, "grant": {}, "group": {}, "having": {}, "in": {}, "index": {},
	"inner": {}, "insert": {}, "into": {}, "is": {}, "join": {}, "key": {}, "left": {},
	"like": {}, "limit": {}, "not": {}, "null": {}, "offset": {}, "on": {}, "or": {},
	"order": {}, "outer": {}, "primary": {}, "references": {}, "right": {},
	"select": {}, "set": {}, "table": {}, "then": {}, "to": {}, "true": {},
	"union": {}, "unique": {}, "update": {}, "user": {}, "using": {}, "values": {},
	"when": {}, "where": {}, "with": {},
}

// QuoteIdentifier returns name unchanged when it is a plain identifier
// (letters, digits and underscores, not starting with a digit, not a reserved
// word) and double-quoted with embedded quotes doubled otherwise.
func QuoteIdentifier(name string) string {
	if isPlainIdentifier(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName joins namespace and name with a dot, quoting each part as needed.
// An empty namespace yields just the quoted name.
func QualifiedName(namespace, name string) string {
	if namespace == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(namespace) + "." + QuoteIdentifier(name)
}

func isPlainIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	_, reserved := reservedWords[strings.ToLower(name)]
	return !reserved
}
