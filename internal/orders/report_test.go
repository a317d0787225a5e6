package orders

import (
	"testing"

	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResults_Scalars(t *testing.T) {
	got, err := ParseResults(`{"glucosa": 90, "obs": "ayuno 8h", "positivo": false, "pendiente": null}`)
	require.NoError(t, err)

	assert.Equal(t, map[string]ResultLine{
		"glucosa":   {Value: "90"},
		"obs":       {Value: "ayuno 8h"},
		"positivo":  {Value: "false"},
		"pendiente": {Value: ""},
	}, got)
}

func TestParseResults_Objects(t *testing.T) {
	got, err := ParseResults(`{
		"Glucosa": {"value": 92.5, "unit": "mg/dL", "range": "70-100"},
		"Urea": {"valor": "30", "unidad": "mg/dL", "referencia": "15-40"}
	}`)
	require.NoError(t, err)

	assert.Equal(t, ResultLine{Value: "92.5", Unit: "mg/dL", Range: "70-100"}, got["Glucosa"])
	assert.Equal(t, ResultLine{Value: "30", Unit: "mg/dL", Range: "15-40"}, got["Urea"])
}

func TestParseResults_EmptyAndInvalid(t *testing.T) {
	got, err := ParseResults("  ")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseResults("glucosa 90 mg/dL")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = ParseResults(`["a"]`)
	require.ErrorIs(t, err, common.ErrorValidation)
}
