package cursor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvquery/kvquery"
	"github.com/kvquery/kvquery/cursor"
)

func filesSchema() kvquery.StoreSchema {
	return kvquery.StoreSchema{
		Name:           "files",
		PrimaryKeyPath: "pk",
		Indices: map[string]kvquery.IndexSchema{
			"group": {Name: "group", Path: "group"},
		},
	}
}

func TestClassifyPrimaryKeyEquality(t *testing.T) {
	plan, err := cursor.Classify(filesSchema(), kvquery.Predicate{Target: "pk", Kind: kvquery.PredEqual, Value: "aaa"})
	require.NoError(t, err)
	assert.Equal(t, cursor.SourcePK, plan.Source)
	assert.Equal(t, plan.Range.Lo, plan.Range.Hi)
}

func TestClassifyDeclaredIndex(t *testing.T) {
	plan, err := cursor.Classify(filesSchema(), kvquery.Predicate{Target: "group", Kind: kvquery.PredEqual, Value: "aaa"})
	require.NoError(t, err)
	assert.Equal(t, cursor.SourceIndex, plan.Source)
	assert.Equal(t, "group", plan.IndexName)
}

func TestClassifyUndeclaredTargetFallsBackToScan(t *testing.T) {
	plan, err := cursor.Classify(filesSchema(), kvquery.Predicate{Target: "value.title", Kind: kvquery.PredEqual, Value: "aaa"})
	require.NoError(t, err)
	assert.Equal(t, cursor.SourceScan, plan.Source)
	require.NotNil(t, plan.Match)
	assert.True(t, plan.Match(kvquery.Record{"value": kvquery.Record{"title": "aaa"}}))
	assert.False(t, plan.Match(kvquery.Record{"value": kvquery.Record{"title": "bbb"}}))
}

func TestClassifyScanPrefixCoercesToString(t *testing.T) {
	plan, err := cursor.Classify(filesSchema(), kvquery.Predicate{Target: "value.title", Kind: kvquery.PredPrefix, Prefix: "aa"})
	require.NoError(t, err)
	assert.True(t, plan.Match(kvquery.Record{"value": kvquery.Record{"title": "aaa"}}))
	assert.False(t, plan.Match(kvquery.Record{"value": kvquery.Record{"title": "bbb"}}))
}

func TestClassifyRangeBothBounds(t *testing.T) {
	lo := kvquery.Value("a")
	hi := kvquery.Value("m")
	plan, err := cursor.Classify(filesSchema(), kvquery.Predicate{Target: "pk", Kind: kvquery.PredRange, Lo: &lo, Hi: &hi})
	require.NoError(t, err)
	assert.NotNil(t, plan.Range.Lo)
	assert.NotNil(t, plan.Range.Hi)
	assert.False(t, plan.Range.HiExclusive)
}

func TestClassifyIndexRangeUpperBoundIsExclusive(t *testing.T) {
	hi := kvquery.Value("m")
	plan, err := cursor.Classify(filesSchema(), kvquery.Predicate{Target: "group", Kind: kvquery.PredRange, Hi: &hi})
	require.NoError(t, err)
	assert.True(t, plan.Range.HiExclusive)
}
