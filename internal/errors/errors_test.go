package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantType ErrorType
		wantCode int
	}{
		{"input not found", InputNotFound("context.md", nil), ErrorTypeInputNotFound, http.StatusNotFound},
		{"parse", ParseError("unexpected line", 4), ErrorTypeParse, http.StatusUnprocessableEntity},
		{"apply conflict", ApplyConflict([]Conflict{{Path: "a.go", Hunk: 0}}), ErrorTypeApplyConflict, http.StatusConflict},
		{"mirror failure", MirrorFailure("rsync failed", stderrors.New("exit 23")), ErrorTypeMirrorFailure, http.StatusInternalServerError},
		{"validation", ValidationError("bad format", nil), ErrorTypeValidation, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestParseErrorLine(t *testing.T) {
	err := ParseError("expected fence", 12)
	assert.Equal(t, "line 12: expected fence", err.Error())

	err = ParseError("no diff blocks", 0)
	assert.Equal(t, "no diff blocks", err.Error())
}

func TestIsThroughWrapping(t *testing.T) {
	cause := stderrors.New("permission denied")
	wrapped := fmt.Errorf("smartupdate: %w", MirrorFailure("comparing trees", cause))

	assert.True(t, Is(wrapped, ErrorTypeMirrorFailure))
	assert.False(t, Is(wrapped, ErrorTypeParse))
	assert.True(t, stderrors.Is(wrapped, cause))
	assert.False(t, Is(cause, ErrorTypeMirrorFailure))
}

func TestConflicts(t *testing.T) {
	conflicts := []Conflict{
		{Path: "a.py", Hunk: 0, Line: 3, Reason: "context mismatch"},
		{Path: "b.py", Hunk: 2, Line: 40, Reason: "beyond end of file"},
	}
	err := fmt.Errorf("update: %w", ApplyConflict(conflicts))

	got := Conflicts(err)
	require.Len(t, got, 2)
	assert.Equal(t, "b.py", got[1].Path)
	assert.Equal(t, "a.py: hunk 0 at line 3: context mismatch", got[0].String())

	assert.Nil(t, Conflicts(ParseError("x", 1)))
}
