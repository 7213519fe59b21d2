package validation

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"contexter/internal/errors"
)

// Validator is implemented by request bodies that check their own fields
type Validator interface {
	Validate() error
}

// DecodeRequest reads a JSON body of at most limit bytes into v and, when
// v is a Validator, validates it. Failures are ValidationErrors.
func DecodeRequest(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		msg := err.Error()
		if stderrors.Is(err, io.EOF) {
			msg = "empty body"
		}
		return errors.ValidationError("invalid request body", map[string]string{"error": msg})
	}

	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			if _, typed := errors.As(err); typed {
				return err
			}
			return errors.ValidationError(err.Error(), nil)
		}
	}
	return nil
}
