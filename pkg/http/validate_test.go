package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dayRequest struct {
	Date      string  `json:"date" validate:"day"`
	Variation float64 `json:"variation" default:"0.02" validate:"gte=0,lt=1"`
}

func TestValidateStructAppliesDefaultsAndDayRule(t *testing.T) {
	ok := &dayRequest{Date: "2024-03-01"}
	assert.Nil(t, ValidateStruct(ok))
	assert.Equal(t, 0.02, ok.Variation)

	bad := &dayRequest{Date: "03/01/2024"}
	verr := ValidateStruct(bad)
	require.NotNil(t, verr)
	errs, isList := verr.([]ValidationError)
	require.True(t, isList)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_DAY", errs[0].Code)
	assert.Equal(t, "date", errs[0].Field)
}
