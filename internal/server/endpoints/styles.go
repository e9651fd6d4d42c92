package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/layout"
	"github.com/guillermopickman-spec/story-booker/internal/svcctx"
)

// StyleInfo describes one art style.
type StyleInfo struct {
	Name        book.Style `json:"name"`
	Description string     `json:"description"`
}

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// OptionsResponse lists the values a generate request accepts.
type OptionsResponse struct {
	Styles           []StyleInfo    `json:"styles"`
	DefaultStyle     book.Style     `json:"default_style"`
	Languages        []LanguageInfo `json:"languages"`
	DefaultLanguages []string       `json:"default_languages"`
	MinPages         int            `json:"min_pages"`
	MaxPages         int            `json:"max_pages"`
	DefaultPages     int            `json:"default_pages"`
	Trim             layout.Trim    `json:"trim"`
}

// StylesEndpoint handles GET /styles.
type StylesEndpoint struct{}

func (e *StylesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/styles", e.handler
}

func (e *StylesEndpoint) RequiresInit() bool { return false }

func (e *StylesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := OptionsResponse{
		DefaultStyle:     book.DefaultStyle,
		DefaultLanguages: []string{book.DefaultLanguage},
		MinPages:         book.MinPages,
		MaxPages:         book.MaxPages,
		DefaultPages:     book.DefaultPages,
		Trim:             layout.DefaultTrim,
	}
	if svc := svcctx.StorybookFrom(r.Context()); svc != nil {
		s := svc.Settings()
		resp.DefaultStyle = s.DefaultStyle
		resp.DefaultLanguages = s.DefaultLanguages
		resp.DefaultPages = s.DefaultPages
		resp.Trim = s.Layout.Trim
	}
	for _, s := range book.Styles() {
		resp.Styles = append(resp.Styles, StyleInfo{Name: s, Description: s.Description()})
	}
	for _, code := range book.Languages() {
		resp.Languages = append(resp.Languages, LanguageInfo{Code: code, Name: book.LanguageName(code)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *StylesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List art styles, languages and page limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp OptionsResponse
			if err := client.Get(cmd.Context(), "/styles", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
