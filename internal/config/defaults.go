package config

import "github.com/leapstack-labs/genmigrate/internal/generate"

// Default configuration values.
const (
	DefaultSourceDir      = "data"
	DefaultOutputDir      = "output"
	DefaultStateFile      = ".genmigrate/state.db"
	DefaultSampleRows     = 5
	DefaultProcedural     = "oracle_plsql_procedures.sql"
	DefaultDatabaseType   = "mysql"
	DefaultHost           = "localhost"
	DefaultUser           = "root"
	DefaultSchema         = "retail_dw"
	DefaultTemperature    = 0.1
	DefaultOnConflict     = "ignore"
	DefaultFact           = "SALES"
	DefaultAmountColumn   = "total_amount"
	DefaultAnalyticsLimit = 100
)

// DefaultDatasets are the required datasets of the retail migration, in
// load order.
var DefaultDatasets = []string{"CUSTOMERS", "INVENTORY", "SALES"}

// DefaultReferences are the fact dataset's references to its parents.
var DefaultReferences = []Reference{
	{Column: "customer_id", Table: "CUSTOMERS", ParentColumn: "customer_id"},
	{Column: "product_id", Table: "INVENTORY", ParentColumn: "product_id"},
}

// DefaultTextColumns are loaded as text regardless of their content.
var DefaultTextColumns = []string{"phone_number"}

// Default returns a PipelineConfig populated with every default.
func Default() *PipelineConfig {
	p := &PipelineConfig{}
	ApplyDefaults(p)
	return p
}

// ApplyDefaults fills unset fields of p.
func ApplyDefaults(p *PipelineConfig) {
	if p == nil {
		return
	}
	if p.SourceDir == "" {
		p.SourceDir = DefaultSourceDir
	}
	if p.OutputDir == "" {
		p.OutputDir = DefaultOutputDir
	}
	if p.StatePath == "" {
		p.StatePath = DefaultStateFile
	}
	if len(p.Datasets) == 0 {
		p.Datasets = append([]string(nil), DefaultDatasets...)
	}
	if p.SampleRows <= 0 {
		p.SampleRows = DefaultSampleRows
	}
	if p.ProceduralFile == "" {
		p.ProceduralFile = DefaultProcedural
	}

	if p.Database == nil {
		p.Database = &DatabaseConfig{}
	}
	ApplyDatabaseDefaults(p.Database)

	if p.Generation == nil {
		p.Generation = &GenerationConfig{Temperature: DefaultTemperature}
	}
	if p.Generation.BaseURL == "" {
		p.Generation.BaseURL = generate.DefaultBaseURL
	}
	if p.Generation.Model == "" {
		p.Generation.Model = generate.DefaultModel
	}
	if p.Generation.MaxTokens <= 0 {
		p.Generation.MaxTokens = generate.DefaultMaxTokens
	}

	if p.Load == nil {
		p.Load = &LoadConfig{}
	}
	if p.Load.OnConflict == "" {
		p.Load.OnConflict = DefaultOnConflict
	}
	if p.Load.TextColumns == nil {
		p.Load.TextColumns = append([]string(nil), DefaultTextColumns...)
	}

	if p.Domain == nil {
		p.Domain = &DomainConfig{}
	}
	if p.Domain.Fact == "" {
		p.Domain.Fact = DefaultFact
	}
	if p.Domain.AmountColumn == "" {
		p.Domain.AmountColumn = DefaultAmountColumn
	}
	if p.Domain.References == nil {
		p.Domain.References = append([]Reference(nil), DefaultReferences...)
	}

	if p.Analytics == nil {
		p.Analytics = &AnalyticsConfig{RowLimit: DefaultAnalyticsLimit}
	}
}

// ApplyDatabaseDefaults applies type-specific defaults to d.
func ApplyDatabaseDefaults(d *DatabaseConfig) {
	if d == nil {
		return
	}
	if d.Type == "" {
		d.Type = DefaultDatabaseType
	}
	switch d.Type {
	case "mysql":
		if d.Host == "" {
			d.Host = DefaultHost
		}
		if d.Port == 0 {
			d.Port = 3306
		}
		if d.User == "" {
			d.User = DefaultUser
		}
	case "postgres":
		if d.Host == "" {
			d.Host = DefaultHost
		}
		if d.Port == 0 {
			d.Port = 5432
		}
	}
	if d.Schema == "" && d.Type != "sqlite" {
		d.Schema = DefaultSchema
	}
}
