package ids

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id, vErr := Parse("policyId", " 1234 ")
	require.Nil(t, vErr)
	assert.Equal(t, snowflake.ID(1234), id)

	_, vErr = Parse("policyId", "")
	require.NotNil(t, vErr)
	assert.Equal(t, "required", vErr.Fields[0].Code)

	_, vErr = Parse("policyId", "abc")
	require.NotNil(t, vErr)
	assert.Equal(t, "invalid_id", vErr.Fields[0].Code)

	_, vErr = Parse("policyId", "-5")
	require.NotNil(t, vErr)
}

func TestParseOptional(t *testing.T) {
	id, vErr := ParseOptional("insuredPersonId", nil)
	assert.Nil(t, id)
	assert.Nil(t, vErr)

	blank := "  "
	id, vErr = ParseOptional("insuredPersonId", &blank)
	assert.Nil(t, id)
	assert.Nil(t, vErr)

	v := "77"
	id, vErr = ParseOptional("insuredPersonId", &v)
	require.Nil(t, vErr)
	assert.Equal(t, snowflake.ID(77), *id)
}
