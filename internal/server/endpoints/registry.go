// Package endpoints implements the HTTP API and the CLI commands that call it.
package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/guillermopickman-spec/story-booker/internal/api"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ReadyEndpoint{},

		&GenerateEndpoint{},
		&StatusEndpoint{},
		&DownloadEndpoint{},
		&ListJobsEndpoint{},

		&ListCharactersEndpoint{},
		&CreateCharacterEndpoint{},
		&GetCharacterEndpoint{},
		&UpdateCharacterEndpoint{},
		&DeleteCharacterEndpoint{},
		&CharacterImageEndpoint{},

		&StylesEndpoint{},
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
		&SetPromptEndpoint{},
		&ResetPromptEndpoint{},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse = api.ErrorResponse

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
