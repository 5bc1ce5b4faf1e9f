package ingest

import (
	"testing"

	"go-adxlog/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMapping_ReferenceWins(t *testing.T) {
	opts := &config.Options{
		MappingName:    "AppLogsMapping",
		ColumnsMapping: []config.SinkColumnMapping{{ColumnName: "Text", ColumnType: "string"}},
	}

	m := BuildMapping(opts)
	assert.True(t, m.IsReference())
	assert.Equal(t, "AppLogsMapping", m.Reference)
	assert.Nil(t, m.Columns)
}

func TestBuildMapping_ExplicitColumns(t *testing.T) {
	opts := &config.Options{
		ColumnsMapping: []config.SinkColumnMapping{
			{ColumnName: "When", ColumnType: "datetime", ValuePath: "$.Timestamp"},
			{ColumnName: "Level", ColumnType: "string"},
		},
	}

	m := BuildMapping(opts)
	assert.False(t, m.IsReference())
	assert.Equal(t, []ColumnMapping{
		{Column: "When", DataType: "datetime", Properties: PathProperties{Path: "$.Timestamp"}},
		{Column: "Level", DataType: "string", Properties: PathProperties{Path: "$.Level"}},
	}, m.Columns)
}

func TestBuildMapping_DefaultSchema(t *testing.T) {
	m := BuildMapping(&config.Options{})
	assert.False(t, m.IsReference())
	require.Len(t, m.Columns, 6)

	names := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		names = append(names, c.Column)
		assert.Equal(t, "$."+c.Column, c.Properties.Path)
	}
	assert.Equal(t, []string{"Timestamp", "Level", "Message", "FormattedMessage", "Exception", "Properties"}, names)
	assert.Equal(t, "datetime", m.Columns[0].DataType)
	assert.Equal(t, "dynamic", m.Columns[5].DataType)
}

func TestDefaultColumns_ReturnsFreshSlice(t *testing.T) {
	a := DefaultColumns()
	a[0].Column = "mutated"
	assert.Equal(t, "Timestamp", DefaultColumns()[0].Column)
}

func TestMapping_InlineJSON(t *testing.T) {
	m := Mapping{Columns: []ColumnMapping{{Column: "Level", DataType: "string", Properties: PathProperties{Path: "$.Level"}}}}

	raw, err := m.InlineJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"column":"Level","datatype":"string","Properties":{"Path":"$.Level"}}]`, raw)
}
