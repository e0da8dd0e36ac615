package domain

import (
	"fmt"
	"time"
)

// DatasourceType selects the SQL dialect used to talk to a datasource.
type DatasourceType string

const (
	DatasourcePostgres  DatasourceType = "postgres"
	DatasourceSQLServer DatasourceType = "sqlserver"
)

// ParseDatasourceType validates s as a DatasourceType.
func ParseDatasourceType(s string) (DatasourceType, error) {
	switch t := DatasourceType(s); t {
	case DatasourcePostgres, DatasourceSQLServer:
		return t, nil
	default:
		return "", fmt.Errorf("unknown datasource type %q: must be %q or %q", s, DatasourcePostgres, DatasourceSQLServer)
	}
}

// Datasource is a named, persisted database connection.
type Datasource struct {
	Name             string         `json:"name"`
	Type             DatasourceType `json:"type"`
	ConnectionString string         `json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Asset binds a name to one table of a datasource.
type Asset struct {
	Name       string    `json:"name"`
	Datasource string    `json:"datasource"`
	Table      string    `json:"table"`
	CreatedAt  time.Time `json:"created_at"`
}

// BatchMode describes which rows of an asset a batch covers.
type BatchMode string

// BatchWholeTable is the only supported mode: every row of the table.
const BatchWholeTable BatchMode = "whole_table"

// BatchDefinition names a way of selecting rows from an asset.
type BatchDefinition struct {
	Name       string    `json:"name"`
	Datasource string    `json:"datasource"`
	Asset      string    `json:"asset"`
	Mode       BatchMode `json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidationDefinition pairs a batch definition with a suite.
type ValidationDefinition struct {
	Name            string    `json:"name"`
	Datasource      string    `json:"datasource"`
	Asset           string    `json:"asset"`
	BatchDefinition string    `json:"batch_definition"`
	Suite           string    `json:"suite"`
	CreatedAt       time.Time `json:"created_at"`
}
