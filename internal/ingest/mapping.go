package ingest

import (
	"encoding/json"

	"go-adxlog/internal/config"
)

// PathProperties carries the JSON path of a mapped column.
type PathProperties struct {
	Path string `json:"Path"`
}

// ColumnMapping is one entry of a Kusto JSON ingestion mapping.
type ColumnMapping struct {
	Column     string         `json:"column"`
	DataType   string         `json:"datatype,omitempty"`
	Properties PathProperties `json:"Properties"`
}

// Mapping is either a reference to a mapping defined on the table or an
// inline list of columns. Exactly one side is set.
type Mapping struct {
	Reference string
	Columns   []ColumnMapping
}

// IsReference reports whether the mapping points at a table-side definition.
func (m Mapping) IsReference() bool {
	return m.Reference != ""
}

// InlineJSON renders the inline columns in the shape Kusto expects.
func (m Mapping) InlineJSON() (string, error) {
	b, err := json.Marshal(m.Columns)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DefaultColumns returns the six-column schema used when nothing else is
// configured. A fresh slice is returned on every call.
func DefaultColumns() []ColumnMapping {
	return []ColumnMapping{
		column("Timestamp", "datetime"),
		column("Level", "string"),
		column("Message", "string"),
		column("FormattedMessage", "string"),
		column("Exception", "string"),
		column("Properties", "dynamic"),
	}
}

func column(name, dataType string) ColumnMapping {
	return ColumnMapping{Column: name, DataType: dataType, Properties: PathProperties{Path: "$." + name}}
}

// BuildMapping applies the mapping precedence: a named reference wins over
// explicit columns, which win over the default schema.
func BuildMapping(opts *config.Options) Mapping {
	if opts.MappingName != "" {
		return Mapping{Reference: opts.MappingName}
	}
	if len(opts.ColumnsMapping) > 0 {
		columns := make([]ColumnMapping, 0, len(opts.ColumnsMapping))
		for _, m := range opts.ColumnsMapping {
			path := m.ValuePath
			if path == "" {
				path = "$." + m.ColumnName
			}
			columns = append(columns, ColumnMapping{
				Column:     m.ColumnName,
				DataType:   m.ColumnType,
				Properties: PathProperties{Path: path},
			})
		}
		return Mapping{Columns: columns}
	}
	return Mapping{Columns: DefaultColumns()}
}
