package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/export"
	"github.com/sells-group/health-advisor/internal/market"
	"github.com/sells-group/health-advisor/internal/model"
)

// LastUpdateLayout formats table update times for display.
const LastUpdateLayout = "2006-01-02 15:04:05"

// RefreshTimeout bounds an on-demand refresh.
const RefreshTimeout = 2 * time.Minute

type tableRes[T any] struct {
	Items      []T                `json:"items"`
	Total      int                `json:"total"`
	Status     model.ResultStatus `json:"status,omitempty"`
	LastUpdate string             `json:"last_update,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
}

func viewTable[T any](snap market.Snapshot[T], limit int) tableRes[T] {
	res := tableRes[T]{
		Items:     snap.Head(limit),
		Total:     len(snap.Items),
		Status:    snap.Status,
		LastError: snap.LastError,
	}
	if res.Items == nil {
		res.Items = []T{}
	}
	if !snap.UpdatedAt.IsZero() {
		res.LastUpdate = snap.UpdatedAt.Format(LastUpdateLayout)
	}
	return res
}

func (s *Server) handleIRDAI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, viewTable(s.deps.Refresher.Tables().IRDAI.Load(), s.deps.DisplayLimit), nil)
}

// Claims and premiums are shown in full, as a data grid.
func (s *Server) handleClaims(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, viewTable(s.deps.Refresher.Tables().Claims.Load(), 0), nil)
}

func (s *Server) handlePremiums(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, viewTable(s.deps.Refresher.Tables().Premiums.Load(), 0), nil)
}

func (s *Server) handleRefreshIRDAI(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := refreshContext(r)
	defer cancel()
	snap, err := s.deps.Refresher.RefreshIRDAI(ctx)
	writeRefresh(w, viewTable(snap, s.deps.DisplayLimit), err)
}

func (s *Server) handleRefreshClaims(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := refreshContext(r)
	defer cancel()
	snap, err := s.deps.Refresher.RefreshClaims(ctx)
	writeRefresh(w, viewTable(snap, 0), err)
}

func (s *Server) handleRefreshPremiums(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := refreshContext(r)
	defer cancel()
	snap, err := s.deps.Refresher.RefreshPremiums(ctx)
	writeRefresh(w, viewTable(snap, 0), err)
}

type refreshRes[T any] struct {
	tableRes[T]
	Refreshed bool   `json:"refreshed"`
	Error     string `json:"error,omitempty"`
}

// writeRefresh reports a failed scrape in the body. The table view is still
// returned since a failed scrape never aborts the request.
func writeRefresh[T any](w http.ResponseWriter, view tableRes[T], err error) {
	res := refreshRes[T]{tableRes: view, Refreshed: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	writeJSON(w, res, nil)
}

// refreshContext detaches the scrape from client disconnects so a started
// refresh always lands in the table.
func refreshContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), RefreshTimeout)
}

// xlsxContentType is the media type of an Office Open XML workbook.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExportMarket streams the current market tables as a workbook. No
// scrape is triggered.
func (s *Server) handleExportMarket(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.MarketSheets(s.deps.Refresher.Tables())); err != nil {
		zap.L().Error("market export failed", zap.Error(err))
		writeJSON(w, nil, httpErr{code: http.StatusInternalServerError, msg: "could not build workbook"})
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="market.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
