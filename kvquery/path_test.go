package kvquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathResolve(t *testing.T) {
	rec := Record{
		"pk": "aaa",
		"value": Record{
			"title": "aaa",
		},
	}

	v, ok := ParsePath("value.title").Resolve(rec)
	assert.True(t, ok)
	assert.Equal(t, "aaa", v)

	v, ok = ParsePath("pk").Resolve(rec)
	assert.True(t, ok)
	assert.Equal(t, "aaa", v)
}

func TestPathResolveAbsent(t *testing.T) {
	rec := Record{"pk": "aaa"}

	v, ok := ParsePath("value.title").Resolve(rec)
	assert.False(t, ok)
	assert.True(t, IsAbsent(v))

	// Traversing through a non-map value is also absent, not a panic.
	rec2 := Record{"value": "scalar"}
	v, ok = ParsePath("value.title").Resolve(rec2)
	assert.False(t, ok)
	assert.True(t, IsAbsent(v))
}
