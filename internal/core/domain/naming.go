package domain

// DefaultDatasourceName is the datasource every command addresses unless
// configured otherwise.
const DefaultDatasourceName = "tpcc_postgres"

// DefaultTables are registered as assets by the init command.
var DefaultTables = []string{
	"warehouse",
	"district",
	"customer",
	"history",
	"orders",
	"new_order",
	"order_line",
	"stock",
	"item",
}

// DefaultProfileTables are profiled and validated by default.
var DefaultProfileTables = []string{
	"warehouse",
	"customer",
	"orders",
	"order_line",
	"item",
}

func AssetName(table string) string {
	return table + "_asset"
}

func SuiteName(table string) string {
	return table + "_auto"
}

func BatchDefinitionName(asset string) string {
	return asset + "_batch"
}

func ValidationDefinitionName(asset, suite string) string {
	return asset + "_" + suite + "_validation"
}
