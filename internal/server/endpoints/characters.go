package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/svcctx"
)

// CharacterListResponse lists registered characters sorted by name.
type CharacterListResponse struct {
	Characters []*characters.Character `json:"characters"`
}

// characterGroup places character commands under "api characters".
type characterGroup struct{}

func (characterGroup) Group() (string, string) {
	return "characters", "Registered character commands"
}

func characterStore(w http.ResponseWriter, r *http.Request) characters.Store {
	store := svcctx.CharactersFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "character store not initialized")
	}
	return store
}

// writeCharacterError maps store errors to status codes.
func writeCharacterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, characters.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, characters.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func forgetCharacter(ctx context.Context, id string) {
	if svc := svcctx.StorybookFrom(ctx); svc != nil {
		svc.ForgetCharacter(id)
	}
}

// ListCharactersEndpoint handles GET /characters.
type ListCharactersEndpoint struct{ characterGroup }

func (e *ListCharactersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/characters", e.handler
}

func (e *ListCharactersEndpoint) RequiresInit() bool { return false }

func (e *ListCharactersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := characterStore(w, r)
	if store == nil {
		return
	}
	list, err := store.List(r.Context())
	if err != nil {
		writeCharacterError(w, err)
		return
	}
	if list == nil {
		list = []*characters.Character{}
	}
	writeJSON(w, http.StatusOK, CharacterListResponse{Characters: list})
}

func (e *ListCharactersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CharacterListResponse
			if err := client.Get(cmd.Context(), "/characters", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CreateCharacterEndpoint handles POST /characters.
type CreateCharacterEndpoint struct{ characterGroup }

func (e *CreateCharacterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/characters", e.handler
}

func (e *CreateCharacterEndpoint) RequiresInit() bool { return false }

func (e *CreateCharacterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := characterStore(w, r)
	if store == nil {
		return
	}
	var c characters.Character
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := store.Create(r.Context(), &c)
	if err != nil {
		writeCharacterError(w, err)
		return
	}
	forgetCharacter(r.Context(), created.ID)
	w.Header().Set("Location", "/characters/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// characterFlags binds the editable character fields to command flags.
type characterFlags struct {
	name, species, description string
	features, tags             []string
	palette                    map[string]string
	seed                       int64
}

func (f *characterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Character name")
	cmd.Flags().StringVar(&f.species, "species", "", "Species, e.g. fox")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Physical description")
	cmd.Flags().StringSliceVar(&f.features, "feature", nil, "Key visual feature (repeatable)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringToStringVar(&f.palette, "color", nil, "Palette entry, e.g. primary_color=orange")
	cmd.Flags().Int64Var(&f.seed, "seed", -1, "Fixed image seed (default: derived from the name)")
}

// apply copies the flags that were set onto c.
func (f *characterFlags) apply(cmd *cobra.Command, c *characters.Character) {
	set := cmd.Flags().Changed
	if set("name") {
		c.Name = f.name
	}
	if set("species") {
		c.Species = f.species
	}
	if set("description") {
		c.PhysicalDescription = f.description
	}
	if set("feature") {
		c.KeyFeatures = f.features
	}
	if set("tag") {
		c.Tags = f.tags
	}
	if set("color") {
		c.ColorPalette = f.palette
	}
	if set("seed") && f.seed >= 0 {
		seed := f.seed
		c.Seed = &seed
	}
}

func (e *CreateCharacterEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags characterFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a character",
		RunE: func(cmd *cobra.Command, args []string) error {
			var c characters.Character
			flags.apply(cmd, &c)
			if err := c.Validate(); err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp characters.Character
			if err := client.Post(cmd.Context(), "/characters", &c, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.bind(cmd)
	return cmd
}

// GetCharacterEndpoint handles GET /characters/{id}.
type GetCharacterEndpoint struct{ characterGroup }

func (e *GetCharacterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/characters/{id}", e.handler
}

func (e *GetCharacterEndpoint) RequiresInit() bool { return false }

func (e *GetCharacterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := characterStore(w, r)
	if store == nil {
		return
	}
	c, err := store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeCharacterError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (e *GetCharacterEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a registered character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var c characters.Character
			if err := client.Get(cmd.Context(), "/characters/"+args[0], &c); err != nil {
				return err
			}
			return api.Output(c)
		},
	}
}

// UpdateCharacterEndpoint handles PUT /characters/{id}.
type UpdateCharacterEndpoint struct{ characterGroup }

func (e *UpdateCharacterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/characters/{id}", e.handler
}

func (e *UpdateCharacterEndpoint) RequiresInit() bool { return false }

func (e *UpdateCharacterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := characterStore(w, r)
	if store == nil {
		return
	}
	var c characters.Character
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	updated, err := store.Update(r.Context(), id, &c)
	if err != nil {
		writeCharacterError(w, err)
		return
	}
	forgetCharacter(r.Context(), id)
	writeJSON(w, http.StatusOK, updated)
}

func (e *UpdateCharacterEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags characterFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a registered character (unset flags keep their value)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var c characters.Character
			if err := client.Get(ctx, "/characters/"+args[0], &c); err != nil {
				return err
			}
			flags.apply(cmd, &c)
			var resp characters.Character
			if err := client.Put(ctx, "/characters/"+args[0], &c, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.bind(cmd)
	return cmd
}

// DeleteCharacterEndpoint handles DELETE /characters/{id}.
type DeleteCharacterEndpoint struct{ characterGroup }

func (e *DeleteCharacterEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/characters/{id}", e.handler
}

func (e *DeleteCharacterEndpoint) RequiresInit() bool { return false }

func (e *DeleteCharacterEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := characterStore(w, r)
	if store == nil {
		return
	}
	id := r.PathValue("id")
	if err := store.Delete(r.Context(), id); err != nil {
		writeCharacterError(w, err)
		return
	}
	forgetCharacter(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteCharacterEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a registered character and its reference image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/characters/"+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// CharacterImageEndpoint handles GET /characters/{id}/image.
type CharacterImageEndpoint struct{ characterGroup }

func (e *CharacterImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/characters/{id}/image", e.handler
}

func (e *CharacterImageEndpoint) RequiresInit() bool { return false }

func (e *CharacterImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := characterStore(w, r)
	if store == nil {
		return
	}
	data, err := store.Image(r.Context(), r.PathValue("id"))
	if err != nil {
		writeCharacterError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *CharacterImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "image <id>",
		Short: "Save a character's reference image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, _, err := client.Download(cmd.Context(), "/characters/"+args[0]+"/image")
			if err != nil {
				return err
			}
			if out == "" {
				out = characters.NormalizeID(args[0]) + ".png"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "file", "f", "", "Output file (default: <id>.png)")
	return cmd
}
