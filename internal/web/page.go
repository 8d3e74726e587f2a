package web

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"time"

	logx "schedbot/pkg/logx"
)

//go:embed templates/index.html
var indexHTML string

var pageTmpl = template.Must(template.New("index").Parse(indexHTML))

const (
	msgScheduled   = "Message Scheduled!"
	msgCancelled   = "Message Cancelled"
	msgWrongPass   = "Wrong Password!"
	msgDBError     = "Database Error"
	msgUnavailable = "queue temporarily unavailable"
)

type flash struct {
	Kind string // "success" | "error"
	Text string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type row struct {
	ID      int64
	Time    string
	Channel string
	Mention string
	Message string
}

type dirInfo struct {
	Generation uint64
	Channels   int
	Roles      int
	BuiltAt    string
}

type page struct {
	ServerTime string
	Flash      *flash
	Channels   []option
	Roles      []option
	Queue      []row
	Draft      string
	Directory  dirInfo
	LastTick   string
}

// Redirects carry a flash key, never display text.
const (
	flashParam       = "flash"
	flashScheduled   = "scheduled"
	flashCancelled   = "cancelled"
	flashUnavailable = "unavailable"
)

var flashes = map[string]flash{
	flashScheduled:   {Kind: "success", Text: msgScheduled},
	flashCancelled:   {Kind: "success", Text: msgCancelled},
	flashUnavailable: {Kind: "error", Text: msgUnavailable},
}

// flashFromQuery resolves the flash key of a PRG redirect. Unknown keys show
// nothing.
func flashFromQuery(r *http.Request) *flash {
	fl, ok := flashes[r.URL.Query().Get(flashParam)]
	if !ok {
		return nil
	}
	return &fl
}

// render lists the queue and writes the page with status. A list failure
// still renders the form.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, fl *flash, draft string) {
	p := page{
		ServerTime: s.now().Format("2006-01-02 15:04"),
		Flash:      fl,
		Draft:      draft,
	}

	items, err := s.deps.Queue.ListPending(r.Context())
	if err != nil {
		s.log.Warn("list queue failed", logx.String("request_id", GetRequestID(r.Context())), logx.Err(err))
		if p.Flash == nil {
			p.Flash = &flash{Kind: "error", Text: msgUnavailable}
		}
	}
	p.Queue = make([]row, 0, len(items))
	for _, it := range items {
		p.Queue = append(p.Queue, row{
			ID:      it.ID,
			Time:    it.DisplayTime(),
			Channel: it.ChannelName,
			Mention: it.Mention.Label(),
			Message: it.Message,
		})
	}

	if s.deps.Directory != nil {
		snap := s.deps.Directory.Load()
		for _, ch := range snap.Channels {
			p.Channels = append(p.Channels, option{
				Value:    ch.ID + "|" + ch.Name,
				Label:    ch.Name,
				Selected: ch.ID == s.deps.Defaults.ChannelID,
			})
		}
		for _, ro := range snap.Roles {
			p.Roles = append(p.Roles, option{Value: ro.ID + "|" + ro.Name, Label: ro.Name})
		}
		p.Directory = dirInfo{Generation: snap.Generation, Channels: len(snap.Channels), Roles: len(snap.Roles)}
		if !snap.BuiltAt.IsZero() {
			p.Directory.BuiltAt = snap.BuiltAt.Format(time.TimeOnly)
		}
	}
	if s.deps.Ticks != nil {
		if st := s.deps.Ticks.Stats(); !st.LastTick.IsZero() {
			p.LastTick = st.LastTick.Format(time.TimeOnly)
		}
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		s.log.Error("render page failed", logx.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
