package statement

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind is the leading keyword of a statement, upper-cased.
type Kind string

// Statement kinds the pipeline distinguishes.
const (
	KindUnknown Kind = ""
	KindCreate  Kind = "CREATE"
	KindAlter   Kind = "ALTER"
	KindDrop    Kind = "DROP"
	KindInsert  Kind = "INSERT"
	KindUpdate  Kind = "UPDATE"
	KindDelete  Kind = "DELETE"
	KindSelect  Kind = "SELECT"
	KindWith    Kind = "WITH"
)

// KindOf returns the first keyword of stmt, skipping leading comments and
// opening parentheses.
func KindOf(stmt string) Kind {
	s := skipTrivia(stmt)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	if end < 0 {
		end = len(s)
	}
	return Kind(strings.ToUpper(s[:end]))
}

func skipTrivia(s string) string {
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			nl := strings.IndexByte(s, '\n')
			if nl < 0 {
				return ""
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end < 0 {
				return ""
			}
			s = s[end+2:]
		default:
			return s
		}
	}
}

// Guard rejects statements whose kind is not on its allow-list.
type Guard struct {
	allowed map[Kind]bool
}

// NewGuard returns a Guard permitting only the given kinds.
// A Guard with no kinds permits nothing.
func NewGuard(allowed ...Kind) Guard {
	g := Guard{allowed: make(map[Kind]bool, len(allowed))}
	for _, k := range allowed {
		g.allowed[k] = true
	}
	return g
}

// Schema permits CREATE and ALTER statements.
func Schema() Guard { return NewGuard(KindCreate, KindAlter) }

// ReadOnly permits queries only.
func ReadOnly() Guard { return NewGuard(KindSelect, KindWith) }

// Check returns a *DisallowedError when stmt's kind is not permitted.
func (g Guard) Check(stmt string) error {
	kind := KindOf(stmt)
	if g.allowed[kind] {
		return nil
	}
	return &DisallowedError{Kind: kind, Allowed: g.Kinds()}
}

// Kinds lists the permitted kinds in a stable order.
func (g Guard) Kinds() []Kind {
	var kinds []Kind
	for _, k := range []Kind{KindCreate, KindAlter, KindDrop, KindInsert, KindUpdate, KindDelete, KindSelect, KindWith} {
		if g.allowed[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// DisallowedError is returned for a statement outside the allow-list. It is
// raised before the statement reaches the database.
type DisallowedError struct {
	Kind    Kind
	Allowed []Kind
}

func (e *DisallowedError) Error() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = "unrecognized"
	}
	return fmt.Sprintf("statement kind %s is not allowed here (allowed: %v)", kind, e.Allowed)
}
