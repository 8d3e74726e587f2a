package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"schedbot/internal/metrics"
	"schedbot/internal/queue"
	logx "schedbot/pkg/logx"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.deps.Status()); err != nil {
		s.log.Warn("status encode failed", logx.Err(err))
	}
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, flashFromQuery(r), "")
}

// submit handles the form post. Success redirects (303) so a browser refresh
// never re-submits.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	log := s.log.With(logx.String("request_id", GetRequestID(r.Context())))
	draft := r.PostFormValue("content")

	if err := queue.CheckPassword(r.PostFormValue("password"), s.cfg.Password); err != nil {
		s.deps.Metrics.ObserveSubmission(metrics.SubmitUnauthorized)
		log.Warn("submission rejected: wrong password", logx.String("remote_addr", r.RemoteAddr))
		s.render(w, r, http.StatusUnauthorized, &flash{Kind: "error", Text: msgWrongPass}, draft)
		return
	}

	it, fb, err := queue.Validate(queue.Submission{
		Content:       draft,
		DateTime:      r.PostFormValue("datetime"),
		ChannelSelect: r.PostFormValue("channel_select"),
		RoleSelect:    r.PostFormValue("role_select"),
	}, s.deps.Defaults)
	if err != nil {
		s.deps.Metrics.ObserveSubmission(metrics.SubmitInvalid)
		log.Info("submission rejected", logx.Err(err))
		s.render(w, r, http.StatusBadRequest, &flash{Kind: "error", Text: validationText(err)}, draft)
		return
	}
	if fb != queue.FallbackNone {
		log.Warn("channel selection unusable; using default channel",
			logx.String("fallback", fb.String()),
			logx.String("channel_id", it.ChannelID),
		)
	}

	id, err := s.deps.Queue.Enqueue(r.Context(), it)
	if err != nil {
		s.deps.Metrics.ObserveSubmission(metrics.SubmitStoreError)
		log.Error("enqueue failed", logx.Err(err))
		s.render(w, r, http.StatusServiceUnavailable, &flash{Kind: "error", Text: msgDBError}, draft)
		return
	}

	s.deps.Metrics.ObserveSubmission(metrics.SubmitAccepted)
	log.Info("message scheduled",
		logx.Int64("item_id", id),
		logx.String("send_time", it.SendTime),
		logx.String("channel_id", it.ChannelID),
		logx.String("mention", it.Mention.Kind.String()),
	)
	redirectFlash(w, r, flashScheduled)
}

// cancel removes a pending item. Unknown ids are not an error.
func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	log := s.log.With(logx.String("request_id", GetRequestID(r.Context())))

	if err := queue.CheckPassword(r.PostFormValue("password"), s.cfg.Password); err != nil {
		s.deps.Metrics.ObserveSubmission(metrics.SubmitUnauthorized)
		log.Warn("cancel rejected: wrong password", logx.String("remote_addr", r.RemoteAddr))
		http.Error(w, "Wrong Password", http.StatusForbidden)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("id")), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Bad Request: invalid id", http.StatusBadRequest)
		return
	}

	if err := s.deps.Queue.Delete(r.Context(), id); err != nil {
		log.Error("cancel failed", logx.Int64("item_id", id), logx.Err(err))
		redirectFlash(w, r, flashUnavailable)
		return
	}
	s.deps.Metrics.ObserveSubmission(metrics.SubmitCancelled)
	log.Info("message cancelled", logx.Int64("item_id", id))
	redirectFlash(w, r, flashCancelled)
}

func redirectFlash(w http.ResponseWriter, r *http.Request, key string) {
	q := url.Values{}
	q.Set(flashParam, key)
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

func validationText(err error) string {
	switch {
	case errors.Is(err, queue.ErrEmptyMessage):
		return "Message cannot be empty."
	case errors.Is(err, queue.ErrBadSendTime):
		return "Send time must look like YYYY-MM-DD HH:MM."
	default:
		return "Invalid submission."
	}
}
