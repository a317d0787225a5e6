package validation

import (
	"testing"

	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Username string   `validate:"required"`
	Role     string   `validate:"oneof=admin lab"`
	Age      *int     `validate:"omitempty,gte=0,lte=150"`
	Emails   []string `validate:"dive,email"`
}

func TestStruct(t *testing.T) {
	age := 30
	require.NoError(t, Struct(sample{Username: "u", Role: "lab", Age: &age, Emails: []string{"a@b.mx"}}))
	require.NoError(t, Struct(sample{Username: "u", Role: "admin"}))

	bad := -1
	err := Struct(sample{Role: "chef", Age: &bad, Emails: []string{"nope"}})
	require.ErrorIs(t, err, common.ErrorValidation)
	for _, s := range []string{"username is required", "role must be one of: admin lab", "age must be at least 0", "must be a valid email"} {
		assert.Contains(t, err.Error(), s)
	}
}
