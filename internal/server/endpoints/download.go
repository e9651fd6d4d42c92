package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/home"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/svcctx"
)

// DownloadEndpoint handles GET /download/{job_id}?lang=.
type DownloadEndpoint struct{}

func (e *DownloadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/download/{job_id}", e.handler
}

func (e *DownloadEndpoint) RequiresInit() bool { return true }

func (e *DownloadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.JobsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "job store not initialized")
		return
	}

	job, err := store.Get(r.PathValue("job_id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, not completed", job.Status))
		return
	}

	lang := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("lang")))
	if lang == "" && len(job.Request.Languages) > 0 {
		lang = job.Request.Languages[0]
	}
	path, ok := job.Output(lang)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no %q edition for this job", lang))
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		svcctx.LoggerFrom(r.Context()).Error("document missing for completed job", "job_id", job.ID, "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "document unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, home.DocumentFileName(job.ID, lang)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *DownloadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var lang, out string
	cmd := &cobra.Command{
		Use:   "download <job_id>",
		Short: "Download a finished storybook PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, name, err := client.Download(cmd.Context(), "/download/"+args[0]+query("lang", lang))
			if err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			if out == "" {
				out = home.DocumentFileName(args[0], lang)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language edition (default: the job's first language)")
	cmd.Flags().StringVarP(&out, "file", "f", "", "Output file (default: server-provided name)")
	return cmd
}
