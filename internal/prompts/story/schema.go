package story

import "encoding/json"

// Schema is the JSON schema for the author output.
var Schema = json.RawMessage(`{
  "name": "storybook",
  "strict": true,
  "schema": {
    "type": "object",
    "properties": {
      "title": {"type": "string", "minLength": 1},
      "beats": {
        "type": "array",
        "minItems": 1,
        "items": {
          "type": "object",
          "properties": {
            "text": {"type": "string", "minLength": 1},
            "visual_description": {"type": "string"},
            "sticker_subjects": {"type": "array", "items": {"type": "string"}}
          },
          "required": ["text", "visual_description", "sticker_subjects"]
        }
      }
    },
    "required": ["title", "beats"]
  }
}`)
