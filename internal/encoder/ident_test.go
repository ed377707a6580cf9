package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentifier(t *testing.T) {
	assert := assert.New(t)

	for _, testCase := range []struct {
		Name   string
		Expect string
	}{
		{"users", "users"},
		{"Users_2", "Users_2"},
		{"_tmp", "_tmp"},
		{"2fa", `"2fa"`},
		{"my table", `"my table"`},
		{"a-b", `"a-b"`},
		{"user", `"user"`},
		{"ORDER", `"ORDER"`},
		{`we"ird`, `"we""ird"`},
		{"", `""`},
		{"naïve", `"naïve"`},
	} {
		assert.Equal(testCase.Expect, QuoteIdentifier(testCase.Name), testCase.Name)
	}
}

func TestQualifiedName(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("public.users", QualifiedName("public", "users"))
	assert.Equal(`shop."order"`, QualifiedName("shop", "order"))
	assert.Equal(`"my db".items`, QualifiedName("my db", "items"))
	assert.Equal("items", QualifiedName("", "items"))
}
