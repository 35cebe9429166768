package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/rangeping/internal/addrrange"
	"github.com/HerbHall/rangeping/internal/rangecache"
	"github.com/HerbHall/rangeping/internal/rangeping"
	"github.com/HerbHall/rangeping/internal/sweep"
	"github.com/HerbHall/rangeping/pkg/models"
)

// rangeRequest names a block directly or through a site. Overwrite
// replaces the block cached under ID; without it a cached block wins over
// the one in the request.
type rangeRequest struct {
	ID        string `json:"id"`
	Site      string `json:"site,omitempty"`
	Address   string `json:"address,omitempty"`
	Mask      string `json:"mask,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

// sweepRequest adds probe args and history options. Fresh starts the
// saved history over instead of appending a run.
type sweepRequest struct {
	rangeRequest
	Args  string `json:"args,omitempty"`
	Save  bool   `json:"save,omitempty"`
	Fresh bool   `json:"fresh,omitempty"`
}

type rangeResponse struct {
	ID        string `json:"id,omitempty"`
	Network   string `json:"network"`
	Mask      string `json:"mask"`
	CIDR      string `json:"cidr"`
	HostCount int    `json:"host_count"`
}

type sweepResponse struct {
	models.SweepResult
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Saved   bool   `json:"saved"`
}

type historyResponse struct {
	ID   string       `json:"id"`
	Runs []string     `json:"runs"`
	Rows []historyRow `json:"rows"`
}

type historyRow struct {
	Address  string   `json:"address"`
	Outcomes []string `json:"outcomes"`
}

func newRangeResponse(e rangecache.Entry) rangeResponse {
	return rangeResponse{
		ID:        e.Identifier,
		Network:   e.Range.Addr(),
		Mask:      e.Range.Netmask(),
		CIDR:      e.Range.CIDR(),
		HostCount: e.HostCount,
	}
}

// applySite fills the block and default probe args from the inventory when
// the request names a site. The site name doubles as the identifier.
func (s *Server) applySite(req *rangeRequest) (args string, err error) {
	if req.Site == "" {
		return "", nil
	}
	site, err := s.sites.Lookup(req.Site)
	if err != nil {
		return "", err
	}
	if req.ID == "" {
		req.ID = req.Site
	}
	req.Address, req.Mask = site.Spec()
	return site.ProbeArgs, nil
}

func (s *Server) handleGetRange(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := s.engine.Cache().Lookup(r.Context(), id)
	if err != nil {
		if errors.Is(err, rangecache.ErrNotFound) {
			NotFound(w, "no range stored for "+id, r.URL.Path)
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRangeResponse(e))
}

// handleResolveRange resolves through the cache, or replaces the stored
// range when overwrite is set.
func (s *Server) handleResolveRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}
	if _, err := s.applySite(&req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.Overwrite {
		e, err := s.replaceRange(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newRangeResponse(e))
		return
	}

	e, err := s.engine.NewSession().ResolveRange(r.Context(), req.ID, req.Address, req.Mask)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRangeResponse(e))
}

// replaceRange parses the request's block and stores it under its ID,
// replacing any cached entry.
func (s *Server) replaceRange(ctx context.Context, req rangeRequest) (rangecache.Entry, error) {
	rng, err := addrrange.Parse(req.Address, req.Mask)
	if err != nil {
		return rangecache.Entry{}, err
	}
	if _, err := s.engine.Cache().Save(ctx, req.ID, rng, true); err != nil {
		return rangecache.Entry{}, err
	}
	return rangecache.Entry{Identifier: req.ID, Range: rng, HostCount: rng.HostCount()}, nil
}

// openSession resolves the request's range on a new session. Site probe
// args fill in when the request has none.
func (s *Server) openSession(ctx context.Context, req *sweepRequest) (*rangeping.Session, error) {
	siteArgs, err := s.applySite(&req.rangeRequest)
	if err != nil {
		return nil, err
	}
	if req.Args == "" {
		req.Args = siteArgs
	}
	if req.Overwrite {
		if _, err := s.replaceRange(ctx, req.rangeRequest); err != nil {
			return nil, err
		}
	}
	sess := s.engine.NewSession()
	if _, err := sess.ResolveRange(ctx, req.ID, req.Address, req.Mask); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}
	sess, err := s.openSession(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	run, err := sess.Sweep(r.Context(), req.Args)
	if err != nil {
		writeError(w, r, err)
		return
	}

	for range run.Outcomes() {
	}
	if err := run.Err(); err != nil {
		s.logger.Info("sweep request cancelled", zap.String("sweep", run.ID()), zap.Error(err))
		return
	}

	resp, err := s.finishSweep(sess, run, req.Save, req.Fresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) finishSweep(sess *rangeping.Session, run *sweep.Run, save, fresh bool) (sweepResponse, error) {
	resp := sweepResponse{SweepResult: run.Results(), Status: sweep.StatusCompleted}
	if !run.Done() {
		resp.Status = sweep.StatusAbandoned
	}
	summary, err := sess.Summarize()
	if err != nil {
		return resp, err
	}
	resp.Summary = summary
	if save {
		resp.Saved, err = sess.PersistResults(fresh)
		if err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.History().List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tbl, err := s.engine.History().Load(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := historyResponse{ID: id, Runs: tbl.Runs()}
	for _, addr := range tbl.Addresses() {
		outcomes, _ := tbl.Lookup(addr)
		resp.Rows = append(resp.Rows, historyRow{Address: addr, Outcomes: outcomes})
	}
	writeJSON(w, http.StatusOK, resp)
}
