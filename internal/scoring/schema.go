package scoring

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const responseSchema = `{
  "type": "object",
  "required": ["result"],
  "properties": {
    "result": {
      "type": "object",
      "required": ["prediction", "confidence"],
      "properties": {
        "prediction": {"type": "string", "minLength": 1},
        "confidence": {"type": "number"}
      }
    }
  }
}`

var responseSchemaLoader = gojsonschema.NewStringLoader(responseSchema)

// validateResponse checks an oracle body against the response schema.
func validateResponse(body []byte) error {
	result, err := gojsonschema.Validate(responseSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.Field()+": "+e.Description())
	}
	return fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
}
