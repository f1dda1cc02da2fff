package validation

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inner struct {
	Type []string `json:"type" validate:"required,min=1"`
}

type outer struct {
	Name       string `json:"name" validate:"required"`
	Definition inner  `json:"credential_definition"`
	Skipped    string `json:"-"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(tt *testing.T) {
		assert.NoError(tt, Struct(outer{Name: "n", Definition: inner{Type: []string{"a"}}}))
	})

	t.Run("json paths", func(tt *testing.T) {
		err := Struct(&outer{})
		require.Error(tt, err)

		var vErr *Error
		require.True(tt, errors.As(err, &vErr))
		require.Len(tt, vErr.Fields, 2)
		assert.Equal(tt, "name", vErr.Path())
		assert.Equal(tt, "credential_definition.type", vErr.Fields[1].Field)
		assert.Contains(tt, vErr.Fields[1].Error, "required")
		assert.Contains(tt, err.Error(), "credential_definition.type")
	})

	t.Run("not a struct", func(tt *testing.T) {
		err := Struct("string")
		assert.Error(tt, err)
	})
}
