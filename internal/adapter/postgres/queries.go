package postgres

// $1 = table_name, $2 = schema.
const queryColumns = `
	SELECT column_name, data_type, is_nullable
	FROM information_schema.columns
	WHERE table_name = $1
	  AND table_schema = $2
	ORDER BY ordinal_position`

// $1 = schema, $2 = table_name.
const queryTableExists = `
	SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`

// The statements below are rendered with fmt: %[1]s is the quoted column,
// %[2]s the quoted, schema-qualified table.

// Aggregates come back as float8/bigint so they scan into Go numbers;
// AVG is rounded to 4 places first.
const numericStatsTemplate = `
	SELECT
		MIN(%[1]s)::float8,
		MAX(%[1]s)::float8,
		AVG(%[1]s)::numeric(20,4)::float8,
		COUNT(*),
		SUM(CASE WHEN %[1]s IS NULL THEN 1 ELSE 0 END),
		COUNT(DISTINCT %[1]s)
	FROM %[2]s`

const basicStatsTemplate = `
	SELECT
		COUNT(*),
		SUM(CASE WHEN %[1]s IS NULL THEN 1 ELSE 0 END),
		COUNT(DISTINCT %[1]s)
	FROM %[2]s`

const checkNotNullTemplate = `
	SELECT COUNT(*), COUNT(*) FILTER (WHERE %[1]s IS NULL)
	FROM %[2]s`

// $1 = min, $2 = max.
const checkBetweenTemplate = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE %[1]s IS NOT NULL
			AND (%[1]s < $1::double precision OR %[1]s > $2::double precision))
	FROM %[2]s`

// $1 = min, $2 = max, $3 = limit.
const sampleBetweenTemplate = `
	SELECT %[1]s::text AS value
	FROM %[2]s
	WHERE %[1]s IS NOT NULL
	  AND (%[1]s < $1::double precision OR %[1]s > $2::double precision)
	LIMIT $3`

// Unexpected rows are every non-null row whose value occurs more than once.
const checkUniqueTemplate = `
	SELECT
		(SELECT COUNT(*) FROM %[2]s),
		COALESCE(SUM(d.n), 0)::bigint
	FROM (
		SELECT COUNT(*) AS n
		FROM %[2]s
		WHERE %[1]s IS NOT NULL
		GROUP BY %[1]s
		HAVING COUNT(*) > 1
	) d`

// $1 = limit.
const sampleDuplicatesTemplate = `
	SELECT %[1]s::text AS value
	FROM %[2]s
	WHERE %[1]s IS NOT NULL
	GROUP BY %[1]s
	HAVING COUNT(*) > 1
	LIMIT $1`

const countRowsTemplate = `SELECT COUNT(*) FROM %[2]s`
