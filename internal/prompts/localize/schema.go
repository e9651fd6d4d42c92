package localize

import "encoding/json"

// Schema is the JSON schema for translation output.
var Schema = json.RawMessage(`{
  "name": "translation",
  "schema": {
    "type": "object",
    "properties": {
      "title": {"type": "string"},
      "beats": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {"text": {"type": "string"}},
          "required": ["text"]
        }
      }
    },
    "required": ["title", "beats"]
  }
}`)
