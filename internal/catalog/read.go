package catalog

// Table is the full content of a dataset file as text cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadAll reads every record of a dataset. Rows keep file order.
func (c *Catalog) ReadAll(ds Dataset) (*Table, error) {
	path := ds.Path
	if path == "" {
		path = c.Path(ds.Name)
	}
	header, rows, err := readCSV(path, -1)
	if err != nil {
		return nil, err
	}
	return &Table{Columns: header, Rows: rows}, nil
}
