package server

import (
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/HerbHall/rangeping/pkg/models"
)

// Stream message types.
const (
	MessageResult  = "result"
	MessageSummary = "summary"
	MessageError   = "error"
)

// StreamMessage is one websocket frame of a streamed sweep.
type StreamMessage struct {
	Type    string              `json:"type"`
	Result  *models.ProbeResult `json:"result,omitempty"`
	Done    int                 `json:"done,omitempty"`
	Total   int                 `json:"total,omitempty"`
	Status  string              `json:"status,omitempty"`
	Summary string              `json:"summary,omitempty"`
	Saved   bool                `json:"saved,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// handleSweepStream runs a sweep and pushes each result to the client as
// it is classified. Closing the socket abandons the sweep.
//
//	GET /api/v1/sweeps/stream?id=lab&address=10.0.0.0/24&save=true
func (s *Server) handleSweepStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := sweepRequest{
		rangeRequest: rangeRequest{
			ID:        q.Get("id"),
			Site:      q.Get("site"),
			Address:   q.Get("address"),
			Mask:      q.Get("mask"),
			Overwrite: queryBool(q.Get("overwrite")),
		},
		Args:  q.Get("args"),
		Save:  queryBool(q.Get("save")),
		Fresh: queryBool(q.Get("fresh")),
	}

	// Resolve before upgrading so that bad input gets a problem response.
	sess, err := s.openSession(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// CloseRead cancels ctx once the client closes or drops the socket,
	// which stops the sweep between probes.
	ctx := conn.CloseRead(r.Context())
	run, err := sess.Sweep(ctx, req.Args)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "sweep failed")
		return
	}
	log := s.logger.With(zap.String("sweep", run.ID()))

	total := run.Total()
	n := 0
	for res := range run.Outcomes() {
		n++
		msg := StreamMessage{Type: MessageResult, Result: &res, Done: n, Total: total}
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			log.Info("stream client gone", zap.Error(err))
			return
		}
	}
	if err := run.Err(); err != nil {
		log.Info("streamed sweep cancelled", zap.Error(err))
		return
	}

	final := StreamMessage{Type: MessageSummary, Done: n, Total: total}
	resp, err := s.finishSweep(sess, run, req.Save, req.Fresh)
	if err != nil {
		final = StreamMessage{Type: MessageError, Error: err.Error()}
	} else {
		final.Status, final.Summary, final.Saved = resp.Status, resp.Summary, resp.Saved
	}
	if err := wsjson.Write(ctx, conn, final); err != nil {
		log.Info("stream client gone", zap.Error(err))
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}
