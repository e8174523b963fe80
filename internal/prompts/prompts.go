// Package prompts holds the fixed instructions sent to the generation
// endpoint. Each builder returns one generate.Request; the wording is part of
// the pipeline's contract and only the dialect name, dataset names and domain
// relationships vary.
package prompts

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/genmigrate/internal/config"
	"github.com/leapstack-labs/genmigrate/internal/generate"
)

// sqlOnly closes every instruction that expects executable SQL back.
const sqlOnly = "Return only SQL without markdown formatting."

// dialectNames maps adapter names to the product names models know.
var dialectNames = map[string]string{
	"mysql":    "MySQL",
	"postgres": "PostgreSQL",
	"sqlite":   "SQLite",
	"duckdb":   "DuckDB",
}

// DialectName returns the product name for an adapter type.
func DialectName(adapterType string) string {
	if name, ok := dialectNames[strings.ToLower(adapterType)]; ok {
		return name
	}
	return adapterType
}

// Schema asks for CREATE TABLE statements for the summarized datasets.
func Schema(dialect, summary string) generate.Request {
	return generate.Request{
		System: fmt.Sprintf("You are an expert database architect. Generate %s CREATE TABLE scripts "+
			"based on given CSV columns and datatypes. Name each table exactly after its CSV file "+
			"without the extension and keep the CSV column names. Use appropriate PK/FK constraints. "+
			"For phone numbers and other identifier-like numeric fields, use BIGINT or VARCHAR to "+
			"avoid out-of-range errors.", DialectName(dialect)),
		User: fmt.Sprintf("Here are the CSV structures:\n%s\n%s", summary, sqlOnly),
	}
}

// Validation asks for the integrity and aggregate checks of the domain:
// row counts per dataset, referential existence per reference and the total
// of the amount column.
func Validation(dialect string, datasets []string, domain config.DomainConfig, summary string) generate.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a data QA expert. Write %s SQL queries to:\n", DialectName(dialect))

	n := 1
	fmt.Fprintf(&b, "%d. Count rows in %s\n", n, strings.Join(datasets, ", "))
	n++
	for _, ref := range domain.References {
		parentCol := ref.ParentColumn
		if parentCol == "" {
			parentCol = ref.Column
		}
		fmt.Fprintf(&b, "%d. Verify every %s.%s exists in %s.%s\n", n, domain.Fact, ref.Column, ref.Table, parentCol)
		n++
	}
	if domain.AmountColumn != "" {
		fmt.Fprintf(&b, "%d. Total of %s.%s\n", n, domain.Fact, domain.AmountColumn)
	}
	b.WriteString("Use only read-only SELECT statements, one query per check.")

	user := sqlOnly
	if summary != "" {
		user = fmt.Sprintf("The tables were created from these CSV structures:\n%s\n%s", summary, sqlOnly)
	}
	return generate.Request{System: b.String(), User: user}
}

// Translation asks for the procedural source to be rewritten for the target
// dialect.
func Translation(dialect, source string) generate.Request {
	name := DialectName(dialect)
	return generate.Request{
		System: fmt.Sprintf("You are an SQL expert. Convert Oracle PL/SQL procedures/functions into "+
			"equivalent %s stored procedures/functions.", name),
		User: source,
	}
}

// Analytics asks for the business KPI queries.
func Analytics(dialect string, domain config.DomainConfig, summary string) generate.Request {
	system := fmt.Sprintf("Write %s SQL queries for KPIs: monthly sales trend, top 5 customers by "+
		"revenue, low stock products (<100 qty).", DialectName(dialect))
	if domain.Fact != "" && domain.AmountColumn != "" {
		system += fmt.Sprintf(" Revenue is %s.%s.", domain.Fact, domain.AmountColumn)
	}
	user := sqlOnly
	if summary != "" {
		user = fmt.Sprintf("Tables:\n%s\n%s", summary, sqlOnly)
	}
	return generate.Request{System: system, User: user}
}
