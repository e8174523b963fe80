package schema

import (
	"errors"
	"regexp"
	"strings"

	"github.com/leapstack-labs/genmigrate/internal/dag"
	"github.com/leapstack-labs/genmigrate/internal/statement"
)

// Tier is a group of statements that can run once every earlier tier has
// run. Statements keep their emission order.
type Tier struct {
	Level  int      `json:"level"`
	Tables []string `json:"tables,omitempty"`
	// Depends maps each tier table with dependencies to the batch tables it
	// references.
	Depends    map[string][]string `json:"depends,omitempty"`
	Statements []statement.Indexed `json:"statements"`
}

// Plan is a DDL batch partitioned into dependency tiers.
type Plan struct {
	Tiers []Tier `json:"tiers"`
	// Cyclic is set when the references formed a cycle; the plan then holds
	// a single tier in emission order.
	Cyclic bool     `json:"cyclic,omitempty"`
	Cycle  []string `json:"cycle,omitempty"`
	// Edges is the number of table dependencies found in the batch.
	Edges int `json:"edges"`
}

// Len returns the number of statements in the plan.
func (p Plan) Len() int {
	n := 0
	for _, t := range p.Tiers {
		n += len(t.Statements)
	}
	return n
}

const ident = "([`\"\\[]?[\\w$]+[`\"\\]]?(?:\\s*\\.\\s*[`\"\\[]?[\\w$]+[`\"\\]]?)?)"

var (
	createTableRe = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(?:(?:GLOBAL|LOCAL)\s+)?(?:TEMP(?:ORARY)?\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?` + ident)
	createIndexRe = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:UNIQUE\s+)?INDEX\s+.*?\bON\s+` + ident)
	alterTableRe  = regexp.MustCompile(`(?is)^\s*ALTER\s+TABLE\s+(?:ONLY\s+)?(?:IF\s+EXISTS\s+)?` + ident)
	referencesRe  = regexp.MustCompile(`(?is)\bREFERENCES\s+` + ident)
)

// TableName normalizes an identifier as written in SQL: quotes and schema
// qualifier are dropped and the name is upper-cased.
func TableName(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "."); i >= 0 {
		raw = raw[i+1:]
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`\"[]")
	return strings.ToUpper(raw)
}

// CreatedTable returns the table a CREATE TABLE statement defines.
func CreatedTable(stmt string) (string, bool) {
	if m := createTableRe.FindStringSubmatch(stmt); m != nil {
		return TableName(m[1]), true
	}
	return "", false
}

// owner returns the table a statement belongs to: the table it creates, or
// the table an index or ALTER targets.
func owner(stmt string) string {
	if name, ok := CreatedTable(stmt); ok {
		return name
	}
	for _, re := range []*regexp.Regexp{createIndexRe, alterTableRe} {
		if m := re.FindStringSubmatch(stmt); m != nil {
			return TableName(m[1])
		}
	}
	return ""
}

// References returns the distinct tables a statement references, in order of
// appearance.
func References(stmt string) []string {
	var refs []string
	seen := map[string]bool{}
	for _, m := range referencesRe.FindAllStringSubmatch(stmt, -1) {
		name := TableName(m[1])
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}

// BuildPlan partitions a DDL batch by the dependency graph of its tables.
//
// Tables are the ones a CREATE TABLE in the batch defines. A table depends
// on every other batch table its statements reference. Index and ALTER
// statements run in the tier of their table. Statements that belong to no
// batch table run in a final tier of their own.
func BuildPlan(batch statement.Batch) Plan {
	g := dag.NewGraph()
	owners := make([]string, len(batch))
	for i, stmt := range batch {
		if name, ok := CreatedTable(stmt); ok {
			g.AddNode(name)
			owners[i] = name
		}
	}
	for i, stmt := range batch {
		if owners[i] == "" {
			if name := owner(stmt); g.HasNode(name) {
				owners[i] = name
			}
		}
	}
	for i, stmt := range batch {
		if owners[i] == "" {
			continue
		}
		for _, ref := range References(stmt) {
			if ref != owners[i] && g.HasNode(ref) {
				_ = g.AddEdge(ref, owners[i])
			}
		}
	}

	levels, err := g.ExecutionLevels()
	if err != nil {
		var cycle *dag.CycleError
		plan := Plan{Cyclic: true, Edges: g.EdgeCount()}
		if errors.As(err, &cycle) {
			plan.Cycle = cycle.Path
		}
		if len(batch) > 0 {
			plan.Tiers = []Tier{{Level: 0, Tables: g.Nodes(), Statements: batch.Indexed()}}
		}
		return plan
	}

	levelOf := make(map[string]int, g.NodeCount())
	plan := Plan{Tiers: make([]Tier, len(levels)), Edges: g.EdgeCount()}
	for i, tables := range levels {
		tier := Tier{Level: i, Tables: tables}
		for _, name := range tables {
			levelOf[name] = i
			if parents := g.Parents(name); len(parents) > 0 {
				if tier.Depends == nil {
					tier.Depends = make(map[string][]string)
				}
				tier.Depends[name] = parents
			}
		}
		plan.Tiers[i] = tier
	}

	var rest []statement.Indexed
	for i, stmt := range batch {
		if owners[i] == "" {
			rest = append(rest, statement.Indexed{Index: i, SQL: stmt})
			continue
		}
		l := levelOf[owners[i]]
		plan.Tiers[l].Statements = append(plan.Tiers[l].Statements, statement.Indexed{Index: i, SQL: stmt})
	}
	if len(rest) > 0 {
		plan.Tiers = append(plan.Tiers, Tier{Level: len(plan.Tiers), Statements: rest})
	}
	return plan
}
