// Package jobqueue serves the background-job demo: a form for launching
// demo tasks, a live queue table, and per-job SSE streams for progress
// bars, status badges and the details modal.
package jobqueue

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pulseboard/pulseboard/jobs"
	"github.com/pulseboard/pulseboard/logger"
	"github.com/pulseboard/pulseboard/sse"
	"github.com/pulseboard/pulseboard/ui"
)

//go:embed templates
var templatesFS embed.FS

// eventQueueUpdated is the SSE event every open tab subscribes to. Per-job
// events append the job id, e.g. "job-progress-<id>".
const eventQueueUpdated = "queue-updated"

func jobProgressEvent(id uuid.UUID) string { return "job-progress-" + id.String() }
func jobStatusEvent(id uuid.UUID) string   { return "job-status-" + id.String() }
func jobDetailsEvent(id uuid.UUID) string  { return "job-details-" + id.String() }

// Config carries the optional router settings.
type Config struct {
	Logger logger.Logger
}

// Router wires the job store and runner to HTTP handlers and SSE events.
type Router struct {
	store       *jobs.Store
	runner      *jobs.Runner
	broadcaster *sse.Broadcaster
	dispatcher  *sse.Dispatcher
	renderer    *ui.Renderer
	logger      logger.Logger
}

// New creates the job-queue router. It registers the demo tasks on the
// runner and installs hooks that fan job lifecycle changes out to every
// subscribed tab.
func New(store *jobs.Store, runner *jobs.Runner, b *sse.Broadcaster, d *sse.Dispatcher, cfg *Config) (*Router, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	l := cfg.Logger
	if l == nil {
		l = logger.NopLogger{}
	}

	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, "jobqueue templates")
	}
	renderer, err := ui.NewRenderer(sub, "*.html", "fragments/*.html")
	if err != nil {
		return nil, err
	}

	rt := &Router{
		store:       store,
		runner:      runner,
		broadcaster: b,
		dispatcher:  d,
		renderer:    renderer,
		logger:      l,
	}

	RegisterDemoTasks(runner)
	runner.AddHooks(&sseHooks{rt: rt})
	rt.dispatcher.On(eventQueueUpdated, func() []template.HTML {
		return []template.HTML{
			rt.renderer.MustFragment("fragments/queue-panel.html", rt.queueView()),
		}
	})

	return rt, nil
}

// Handler returns the job-queue HTTP handler.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.handleIndex)
	mux.HandleFunc("POST /create_job", rt.handleCreateJob)
	mux.HandleFunc("GET /queue", rt.handleQueue)
	mux.HandleFunc("POST /cancel_job", rt.handleCancelJob)
	mux.HandleFunc("GET /job_details", rt.handleJobDetails)
	mux.HandleFunc("GET /stream_job_progress", rt.handleStreamJobProgress)
	mux.HandleFunc("GET /stream_job_status", rt.handleStreamJobStatus)
	mux.HandleFunc("GET /stream_job_details", rt.handleStreamJobDetails)
	mux.HandleFunc("POST /clear_completed", rt.handleClearCompleted)
	mux.HandleFunc("GET /stream_global_updates", rt.handleStreamGlobalUpdates)
	return ui.RecoveryMiddleware(mux, rt.logger)
}

// sseHooks publishes job lifecycle transitions: the per-job status badge
// and details fragments, then the shared queue panel.
type sseHooks struct {
	rt *Router
}

func (h *sseHooks) JobQueued(job jobs.Job)   { h.publish(job) }
func (h *sseHooks) JobStarted(job jobs.Job)  { h.publish(job) }
func (h *sseHooks) JobFinished(job jobs.Job) { h.publish(job) }

func (h *sseHooks) publish(job jobs.Job) {
	h.rt.publishJobStatus(job.ID)
	h.rt.publishJobDetails(job.ID)
	h.rt.dispatcher.Dispatch(eventQueueUpdated)
}

func (rt *Router) publishJobStatus(id uuid.UUID) {
	job, ok := rt.store.Get(id)
	if !ok {
		return
	}
	frag, err := rt.renderer.Fragment("fragments/job-status.html", rt.jobView(job))
	if err != nil {
		rt.logger.Error("render job status", "id", id, "error", err.Error())
		return
	}
	rt.broadcaster.Publish(jobStatusEvent(id), string(frag))
}

func (rt *Router) publishJobProgress(id uuid.UUID, snap jobs.ProgressSnapshot) {
	frag, err := rt.renderer.Fragment("fragments/job-progress.html", progressView{ID: id.String(), Snap: snap})
	if err != nil {
		rt.logger.Error("render job progress", "id", id, "error", err.Error())
		return
	}
	rt.broadcaster.Publish(jobProgressEvent(id), string(frag))
}

func (rt *Router) publishJobDetails(id uuid.UUID) {
	job, ok := rt.store.Get(id)
	if !ok {
		return
	}
	frag, err := rt.renderer.Fragment("fragments/job-details.html", rt.detailsView(job))
	if err != nil {
		rt.logger.Error("render job details", "id", id, "error", err.Error())
		return
	}
	rt.broadcaster.Publish(jobDetailsEvent(id), string(frag))
}
