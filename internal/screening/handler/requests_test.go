package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "screener/pkg/domain-errors"
)

func TestScreenRequestValidate(t *testing.T) {
	t.Run("nil request", func(t *testing.T) {
		var r *ScreenRequest
		assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeBadRequest))
	})

	t.Run("too many jurisdictions", func(t *testing.T) {
		r := &ScreenRequest{DisplayName: "x", Jurisdictions: make([]string, 65)}
		assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeValidation))
	})

	t.Run("normalize trims identifiers", func(t *testing.T) {
		r := &ScreenRequest{DisplayName: "x", NationalID: " 811228-9874 ", EntityKind: " individual "}
		r.Normalize()
		assert.NoError(t, r.Validate())
		in := r.ToInput()
		assert.Equal(t, "811228-9874", in.NationalID)
		assert.Equal(t, "individual", in.EntityKind)
	})

	t.Run("long free text is rejected", func(t *testing.T) {
		r := &ScreenRequest{DisplayName: "x", OrganizationName: strings.Repeat("a", 513)}
		assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeValidation))
	})
}
