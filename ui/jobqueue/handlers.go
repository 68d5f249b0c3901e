package jobqueue

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pulseboard/pulseboard/jobs"
	"github.com/pulseboard/pulseboard/sse"
	"github.com/pulseboard/pulseboard/ui"
)

// jobView is one queue-table row.
type jobView struct {
	jobs.Job
	Progress    jobs.ProgressSnapshot
	HasProgress bool
}

// progressView is the payload of the per-job progress fragment.
type progressView struct {
	ID   string
	Snap jobs.ProgressSnapshot
}

// queueView is the queue panel: stats strip plus table rows.
type queueView struct {
	Jobs    []jobView
	Total   int
	Running int
	Queued  int
	Done    int
}

// flashView is the out-of-band status banner swapped in next to fragment
// responses.
type flashView struct {
	Type    string // success, warning, error
	Message string
}

// detailsView is the details-modal payload.
type detailsView struct {
	jobView
	HasResult      bool
	ResultMarkdown string // set when the result is textual
	ResultJSON     string // fallback rendering for structured results
}

func (rt *Router) jobView(job jobs.Job) jobView {
	v := jobView{Job: job}
	if p, ok := rt.runner.Progress(job.ID); ok {
		v.Progress = p.Snapshot()
		v.HasProgress = true
	} else if job.Status == jobs.StatusCompleted {
		v.Progress = jobs.ProgressSnapshot{Percent: 100}
		v.HasProgress = true
	}
	return v
}

func (rt *Router) queueView() queueView {
	list := rt.store.List()
	view := queueView{Jobs: make([]jobView, 0, len(list))}
	for _, job := range list {
		view.Jobs = append(view.Jobs, rt.jobView(job))
	}
	counts := rt.store.Counts()
	view.Total = rt.store.Len()
	view.Running = counts[jobs.StatusRunning]
	view.Queued = counts[jobs.StatusQueued]
	view.Done = counts[jobs.StatusCompleted] + counts[jobs.StatusFailed] + counts[jobs.StatusCancelled]
	return view
}

func (rt *Router) detailsView(job jobs.Job) detailsView {
	v := detailsView{jobView: rt.jobView(job)}
	result, ok := rt.store.Result(job.ID)
	if !ok {
		return v
	}
	v.HasResult = true
	if text, isText := result.(string); isText {
		v.ResultMarkdown = text
		return v
	}
	if js, err := ui.ToJSON(result); err == nil {
		v.ResultJSON = js
	}
	return v
}

func (rt *Router) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Queue queueView
		Types []string
	}{
		Queue: rt.queueView(),
		Types: DemoTaskTypes,
	}
	if err := rt.renderer.Page(w, ui.PageData{Title: "Job Queue", Data: data}); err != nil {
		rt.logger.Error("render index", "error", err.Error())
	}
}

func (rt *Router) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	typ := r.PostFormValue("type")
	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		name = typ + " job"
	}
	params := map[string]string{}
	for _, key := range []string{"duration", "steps"} {
		if v := r.PostFormValue(key); v != "" {
			params[key] = v
		}
	}

	id, err := rt.runner.Submit(name, typ, params, demoTotal(typ, params))
	if err != nil {
		rt.logger.Warn("job submit rejected", "type", typ, "error", err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Route progress updates to this job's SSE stream. The callback is
	// already throttled by the progress monitor.
	if p, ok := rt.runner.Progress(id); ok {
		p.OnUpdate(func(snap jobs.ProgressSnapshot) {
			rt.publishJobProgress(id, snap)
		})
	}

	rt.logger.Info("job created", "id", id, "name", name, "type", typ)
	rt.writeQueuePanel(w)
	rt.writeFlash(w, flashView{Type: "success", Message: "Started " + name})
}

func (rt *Router) handleQueue(w http.ResponseWriter, r *http.Request) {
	rt.writeQueuePanel(w)
}

func (rt *Router) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(r.PostFormValue("job_id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	if err := rt.runner.Cancel(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	// Cancel flips the status synchronously; push the change even though
	// the job function may still be winding down.
	rt.publishJobStatus(id)
	rt.publishJobDetails(id)
	rt.dispatcher.Dispatch(eventQueueUpdated)
	rt.writeQueuePanel(w)
}

func (rt *Router) handleJobDetails(w http.ResponseWriter, r *http.Request) {
	job, ok := rt.jobFromQuery(w, r)
	if !ok {
		return
	}
	// The live wrapper subscribes the modal to this job's details stream.
	if err := rt.renderer.WriteFragment(w, "fragments/job-details-live.html", rt.detailsView(job)); err != nil {
		rt.logger.Error("render job details", "error", err.Error())
	}
}

func (rt *Router) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	removed := rt.store.ClearCompleted()
	rt.logger.Info("cleared finished jobs", "removed", removed)
	rt.dispatcher.Dispatch(eventQueueUpdated)
	rt.writeQueuePanel(w)
}

func (rt *Router) handleStreamJobProgress(w http.ResponseWriter, r *http.Request) {
	rt.streamJobEvent(w, r, jobProgressEvent)
}

func (rt *Router) handleStreamJobStatus(w http.ResponseWriter, r *http.Request) {
	rt.streamJobEvent(w, r, jobStatusEvent)
}

func (rt *Router) handleStreamJobDetails(w http.ResponseWriter, r *http.Request) {
	rt.streamJobEvent(w, r, jobDetailsEvent)
}

func (rt *Router) handleStreamGlobalUpdates(w http.ResponseWriter, r *http.Request) {
	_ = sse.Stream(w, r, rt.broadcaster, &sse.StreamOptions{
		Filter: sse.EventFilter(eventQueueUpdated),
		Logger: rt.logger,
	})
}

func (rt *Router) streamJobEvent(w http.ResponseWriter, r *http.Request, event func(uuid.UUID) string) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	_ = sse.Stream(w, r, rt.broadcaster, &sse.StreamOptions{
		Filter: sse.EventFilter(event(id)),
		Logger: rt.logger,
	})
}

func (rt *Router) jobFromQuery(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return jobs.Job{}, false
	}
	job, ok := rt.store.Get(id)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return jobs.Job{}, false
	}
	return job, true
}

func (rt *Router) writeQueuePanel(w http.ResponseWriter) {
	if err := rt.renderer.WriteFragment(w, "fragments/queue-panel.html", rt.queueView()); err != nil {
		rt.logger.Error("render queue panel", "error", err.Error())
	}
}

// writeFlash appends the OOB banner to a fragment response.
func (rt *Router) writeFlash(w http.ResponseWriter, flash flashView) {
	if err := rt.renderer.Execute(w, "fragments/flash.html", flash); err != nil {
		rt.logger.Error("render flash", "error", err.Error())
	}
}
