package validation

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"contexter/internal/errors"
)

type request struct {
	Name string `json:"name"`
}

func (r request) Validate() error {
	if r.Name == "" {
		return stderrors.New("name is required")
	}
	return nil
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr string
	}{
		{name: "valid", body: `{"name":"x"}`, limit: 1024},
		{name: "empty", body: ``, limit: 1024, wantErr: "invalid request body"},
		{name: "unknown field", body: `{"name":"x","extra":1}`, limit: 1024, wantErr: "invalid request body"},
		{name: "too large", body: `{"name":"` + strings.Repeat("x", 100) + `"}`, limit: 16, wantErr: "invalid request body"},
		{name: "fails validation", body: `{"name":""}`, limit: 1024, wantErr: "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v request
			err := DecodeRequest(httptest.NewRecorder(), req, &v, tt.limit)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				assert.Equal(t, "x", v.Name)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
		})
	}
}
