package cast

import "encoding/json"

// Schema is the JSON schema for character extraction output.
var Schema = json.RawMessage(`{
  "name": "characters",
  "schema": {
    "type": "object",
    "properties": {
      "characters": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "name": {"type": "string"},
            "species": {"type": ["string", "null"]},
            "physical_description": {"type": "string"},
            "key_features": {"type": "array", "items": {"type": "string"}},
            "color_palette": {
              "type": ["object", "null"],
              "additionalProperties": {"type": ["string", "null"]}
            }
          },
          "required": ["name", "physical_description"]
        }
      }
    },
    "required": ["characters"]
  }
}`)
