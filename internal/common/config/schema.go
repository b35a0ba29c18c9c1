package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// profileSchema validates the user-supplied identity profile. These fields
// are sent verbatim to the remote API; a blank one produces a signed request
// the server rejects with an opaque error, so they are checked up front.
const profileSchema = `{
  "type": "object",
  "required": ["device", "location", "user_agent"],
  "properties": {
    "device": {
      "type": "object",
      "required": ["brand", "model", "system", "platform"],
      "properties": {
        "brand":    {"type": "string", "minLength": 1},
        "model":    {"type": "string", "minLength": 1},
        "system":   {"type": "string", "minLength": 1},
        "platform": {"type": "string", "minLength": 1}
      }
    },
    "location": {
      "type": "object",
      "required": ["longitude", "latitude"],
      "properties": {
        "longitude": {"type": "string", "minLength": 1},
        "latitude":  {"type": "string", "minLength": 1}
      }
    },
    "user_agent": {"type": "string", "minLength": 1}
  }
}`

// Validate checks the profile sections of the configuration and reports
// every violation with its field path.
func Validate(cfg *Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(profileSchema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
