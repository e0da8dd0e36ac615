package sqlserver

const queryColumns = `
SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_NAME = @table
  AND TABLE_SCHEMA = @schema
ORDER BY ORDINAL_POSITION`

const queryTableExists = `
SELECT COUNT_BIG(*)
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = @schema AND TABLE_NAME = @table`

// %[1]s is the bracketed column, %[2]s the bracketed schema.table.

// AVG over integers truncates in T-SQL, so the column is widened first.
const numericStatsTemplate = `
SELECT
	CAST(MIN(%[1]s) AS FLOAT),
	CAST(MAX(%[1]s) AS FLOAT),
	CAST(CAST(AVG(CAST(%[1]s AS DECIMAL(38,4))) AS DECIMAL(20,4)) AS FLOAT),
	COUNT_BIG(*),
	SUM(CASE WHEN %[1]s IS NULL THEN CAST(1 AS BIGINT) ELSE 0 END),
	COUNT_BIG(DISTINCT %[1]s)
FROM %[2]s`

const basicStatsTemplate = `
SELECT
	COUNT_BIG(*),
	SUM(CASE WHEN %[1]s IS NULL THEN CAST(1 AS BIGINT) ELSE 0 END),
	COUNT_BIG(DISTINCT %[1]s)
FROM %[2]s`

const checkNotNullTemplate = `
SELECT COUNT_BIG(*), COUNT_BIG(CASE WHEN %[1]s IS NULL THEN 1 END)
FROM %[2]s`

const checkBetweenTemplate = `
SELECT
	COUNT_BIG(*),
	COUNT_BIG(CASE WHEN %[1]s IS NOT NULL
		AND (CAST(%[1]s AS FLOAT) < @min OR CAST(%[1]s AS FLOAT) > @max) THEN 1 END)
FROM %[2]s`

const sampleBetweenTemplate = `
SELECT TOP (@limit) CAST(%[1]s AS NVARCHAR(4000)) AS value
FROM %[2]s
WHERE %[1]s IS NOT NULL
  AND (CAST(%[1]s AS FLOAT) < @min OR CAST(%[1]s AS FLOAT) > @max)`

const checkUniqueTemplate = `
SELECT
	(SELECT COUNT_BIG(*) FROM %[2]s),
	COALESCE(SUM(d.n), 0)
FROM (
	SELECT COUNT_BIG(*) AS n
	FROM %[2]s
	WHERE %[1]s IS NOT NULL
	GROUP BY %[1]s
	HAVING COUNT_BIG(*) > 1
) d`

const sampleDuplicatesTemplate = `
SELECT TOP (@limit) CAST(%[1]s AS NVARCHAR(4000)) AS value
FROM %[2]s
WHERE %[1]s IS NOT NULL
GROUP BY %[1]s
HAVING COUNT_BIG(*) > 1`

const countRowsTemplate = `SELECT COUNT_BIG(*) FROM %[2]s`
