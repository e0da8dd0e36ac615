package domain

// CardinalityClass describes how many distinct values a column holds
// relative to its row count.
type CardinalityClass string

const (
	CardinalityUnique          CardinalityClass = "unique"
	CardinalityNearUnique      CardinalityClass = "near_unique"
	CardinalityHighCardinality CardinalityClass = "high_cardinality"
	CardinalityLowCardinality  CardinalityClass = "low_cardinality"
	CardinalityEnumLike        CardinalityClass = "enum_like"
)

const (
	nearUniqueRatio   = 0.9
	enumLikeMax       = 20
	lowCardinalityMax = 200
)

// ClassifyByDistinctCount maps exact distinct/total counts, as produced by
// COUNT(DISTINCT col) and COUNT(*), onto a CardinalityClass. NULLs are not
// counted as a distinct value, so a nullable key column never classifies
// as unique.
func ClassifyByDistinctCount(distinctCount, totalRows int64) CardinalityClass {
	switch {
	case totalRows > 0 && distinctCount == totalRows:
		return CardinalityUnique
	case totalRows > 0 && float64(distinctCount)/float64(totalRows) >= nearUniqueRatio:
		return CardinalityNearUnique
	case distinctCount <= enumLikeMax:
		return CardinalityEnumLike
	case distinctCount <= lowCardinalityMax:
		return CardinalityLowCardinality
	default:
		return CardinalityHighCardinality
	}
}
