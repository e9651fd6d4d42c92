package artdirector

import "encoding/json"

// Schema is the JSON schema for art director output.
var Schema = json.RawMessage(`{
  "name": "image_prompt",
  "schema": {
    "type": "object",
    "properties": {
      "prompt": {"type": "string"}
    },
    "required": ["prompt"]
  }
}`)
