package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/svcctx"
)

// PromptResponse is one prompt as the pipeline will resolve it.
type PromptResponse struct {
	Key         string   `json:"key"`
	Description string   `json:"description,omitempty"`
	Text        string   `json:"text,omitempty"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash"`
	IsOverride  bool     `json:"is_override"`
}

// PromptsListResponse contains every registered prompt.
type PromptsListResponse struct {
	Prompts     []PromptResponse `json:"prompts"`
	OverrideDir string           `json:"override_dir,omitempty"`
}

// SetPromptRequest is the body of PUT /prompts/{key}.
type SetPromptRequest struct {
	Text string `json:"text"`
}

type promptGroup struct{}

func (promptGroup) Group() (string, string) {
	return "prompts", "Prompt template commands"
}

func promptResolver(w http.ResponseWriter, r *http.Request) *prompts.Resolver {
	resolver := svcctx.PromptResolverFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not available")
	}
	return resolver
}

func resolvePrompt(r *http.Request, resolver *prompts.Resolver, e prompts.EmbeddedPrompt, withText bool) (PromptResponse, error) {
	p, err := resolver.Resolve(r.Context(), e.Key)
	if err != nil {
		return PromptResponse{}, err
	}
	resp := PromptResponse{
		Key:         e.Key,
		Description: e.Description,
		Variables:   p.Variables,
		Hash:        p.Hash,
		IsOverride:  p.IsOverride,
	}
	if withText {
		resp.Text = p.Text
	}
	return resp, nil
}

// ListPromptsEndpoint handles GET /prompts.
type ListPromptsEndpoint struct{ promptGroup }

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := promptResolver(w, r)
	if resolver == nil {
		return
	}
	resp := PromptsListResponse{Prompts: []PromptResponse{}}
	if store := resolver.Store(); store != nil {
		resp.OverrideDir = store.Dir()
	}
	for _, e := range resolver.AllEmbedded() {
		p, err := resolvePrompt(r, resolver, e, false)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Prompts = append(resp.Prompts, p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List prompt templates and whether they are overridden",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(cmd.Context(), "/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /prompts/{key}.
type GetPromptEndpoint struct{ promptGroup }

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/prompts/{key}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := promptResolver(w, r)
	if resolver == nil {
		return
	}
	embedded, ok := resolver.GetEmbedded(r.PathValue("key"))
	if !ok {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	p, err := resolvePrompt(r, resolver, *embedded, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Show the resolved text of a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptResponse
			if err := client.Get(cmd.Context(), "/prompts/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SetPromptEndpoint handles PUT /prompts/{key}.
type SetPromptEndpoint struct{ promptGroup }

func (e *SetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/prompts/{key}", e.handler
}

func (e *SetPromptEndpoint) RequiresInit() bool { return false }

func (e *SetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := promptResolver(w, r)
	if resolver == nil {
		return
	}
	store := resolver.Store()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt overrides are disabled")
		return
	}
	key := r.PathValue("key")
	embedded, ok := resolver.GetEmbedded(key)
	if !ok {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}

	var req SetPromptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := resolver.CheckOverride(key, req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.Set(r.Context(), key, req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svcctx.LoggerFrom(r.Context()).Info("prompt override set", "key", key)

	p, err := resolvePrompt(r, resolver, *embedded, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (e *SetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Override a prompt with a template file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			client := api.NewClient(getServerURL())
			var resp PromptResponse
			if err := client.Put(cmd.Context(), "/prompts/"+args[0], SetPromptRequest{Text: string(data)}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Template file")
	return cmd
}

// ResetPromptEndpoint handles DELETE /prompts/{key}.
type ResetPromptEndpoint struct{ promptGroup }

func (e *ResetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/prompts/{key}", e.handler
}

func (e *ResetPromptEndpoint) RequiresInit() bool { return false }

func (e *ResetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := promptResolver(w, r)
	if resolver == nil {
		return
	}
	key := r.PathValue("key")
	if _, ok := resolver.GetEmbedded(key); !ok {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if store := resolver.Store(); store != nil {
		if err := store.Delete(r.Context(), key); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *ResetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>",
		Short: "Remove a prompt override and use the built-in default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/prompts/"+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Reset %s\n", args[0])
			return nil
		},
	}
}
