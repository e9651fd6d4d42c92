package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/jobs/storybook"
	"github.com/guillermopickman-spec/story-booker/internal/svcctx"
)

// GenerateResponse is returned when a job is accepted.
type GenerateResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}

// GenerateEndpoint handles POST /generate.
type GenerateEndpoint struct{}

func (e *GenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/generate", e.handler
}

func (e *GenerateEndpoint) RequiresInit() bool { return true }

func (e *GenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.StorybookFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "storybook service not initialized")
		return
	}

	var req storybook.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := svc.Submit(r.Context(), req)
	if err != nil {
		var ve *storybook.ValidationError
		switch {
		case errors.As(err, &ve):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Field: ve.Field})
		case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrPoolStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.Header().Set("Location", "/status/"+job.ID)
	writeJSON(w, http.StatusCreated, GenerateResponse{JobID: job.ID, Status: job.Status})
}

func (e *GenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		req  storybook.GenerateRequest
		wait bool
	)
	cmd := &cobra.Command{
		Use:   "generate <theme>",
		Short: "Start a storybook generation job",
		Long: `Start a storybook generation job on the server.

The job runs in the background. Use --wait to poll until it finishes, or
"storybooker api status <job_id>" to check on it later.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req.Theme = strings.Join(args, " ")
			client := api.NewClient(getServerURL())

			var resp GenerateResponse
			if err := client.Post(ctx, "/generate", req, &resp); err != nil {
				return err
			}
			if !wait {
				return api.Output(resp)
			}

			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			lastStep := ""
			for {
				var job jobs.Job
				if err := client.Get(ctx, "/status/"+resp.JobID, &job); err != nil {
					return err
				}
				if job.CurrentStep != lastStep {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", job.Progress, job.CurrentStep)
					lastStep = job.CurrentStep
				}
				if job.Status.Terminal() {
					return api.Output(job)
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().IntVarP(&req.NumPages, "pages", "p", 0, "Number of story pages (1-10, default from config)")
	cmd.Flags().StringVar(&req.Style, "style", "", "Art style (see 'storybooker api styles')")
	cmd.Flags().StringSliceVarP(&req.Languages, "lang", "l", nil, "Languages to publish, e.g. en,es")
	cmd.Flags().BoolVar(&req.PODReady, "pod", false, "Produce a print-ready CMYK PDF with bleed")
	cmd.Flags().StringSliceVarP(&req.CharacterIDs, "character", "c", nil, "Registered character ids to feature")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the job finishes")
	return cmd
}
