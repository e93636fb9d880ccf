package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/phrazzld/querykit/internal/schema"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into v. Numbers decode as json.Number
// so integers survive intact. Malformed bodies are configuration errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", schema.ErrConfiguration, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: request body must hold a single JSON value", schema.ErrConfiguration)
	}
	return nil
}
