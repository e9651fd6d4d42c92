package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/svcctx"
)

// StatusEndpoint handles GET /status/{job_id}.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status/{job_id}", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return true }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, job)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job_id>",
		Short: "Get a job's status and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var job jobs.Job
			if err := client.Get(cmd.Context(), "/status/"+args[0], &job); err != nil {
				return err
			}
			return api.Output(job)
		},
	}
}

// ListJobsResponse lists jobs newest first.
type ListJobsResponse struct {
	Jobs []*jobs.Job     `json:"jobs"`
	Pool jobs.PoolStatus `json:"pool"`
}

// ListJobsEndpoint handles GET /jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.JobsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "job store not initialized")
		return
	}

	filter := jobs.ListFilter{Status: jobs.Status(r.URL.Query().Get("status"))}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := parsePositive(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit: "+err.Error())
			return
		}
		filter.Limit = n
	}

	resp := ListJobsResponse{Jobs: store.List(filter)}
	if resp.Jobs == nil {
		resp.Jobs = []*jobs.Job{}
	}
	if pool := svcctx.PoolFrom(r.Context()); pool != nil {
		resp.Pool = pool.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/jobs" + query("status", status, "limit", limitString(limit))
			var resp ListJobsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of jobs")
	return cmd
}
