package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "cosmos-backend/pkg/errors"
)

func TestFoldText(t *testing.T) {
	tests := []struct {
		stored, query string
		match         bool
	}{
		{"Chico 2025", "chico", true},
		{"Die Straße", "STRASSE", true},
		{"Café", "CAFÉ", true},
		{"Prime Timeline", "fork", false},
	}
	for _, tt := range tests {
		got := strings.Contains(FoldText(tt.stored), FoldText(tt.query))
		assert.Equal(t, tt.match, got, "%q in %q", tt.query, tt.stored)
	}
}

func TestValidateStruct(t *testing.T) {
	type request struct {
		Name   string `json:"name" validate:"required,max=5"`
		Status string `json:"status" validate:"omitempty,oneof=active collapsed"`
	}

	assert.NoError(t, ValidateStruct(request{Name: "ok"}))

	err := ValidateStruct(request{Name: "too long", Status: "gone"})
	appErr := pkgerrors.GetAppError(err)
	if assert.NotNil(t, appErr) {
		assert.Equal(t, pkgerrors.ErrorTypeValidation, appErr.Type)
		assert.Equal(t, "name must be at most 5 characters", appErr.Details["name"])
		assert.Equal(t, "status must be one of: active collapsed", appErr.Details["status"])
	}
}
