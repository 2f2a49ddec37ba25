package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"microtrader/internal/graph"
	"microtrader/internal/microerr"
)

// handleDescrs lists every graph series a named config exposes, in
// GraphConfigs order, unfiltered by any "(Graphs)" selection — matching
// main.py's getGraphDescrs, which reads off the static ProcessorConfig
// rather than a live handle.
func (s *Server) handleDescrs(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cfg, ok := graph.Get(name)
	if !ok {
		http.Error(w, "unknown graph config", http.StatusNotFound)
		return
	}

	var b strings.Builder
	for _, gc := range cfg.GraphConfigs {
		b.WriteString(gc.Name)
		b.WriteByte(';')
		b.WriteString(gc.Title)
		b.WriteByte(';')
		b.WriteString(gc.GraphType.String())
		b.WriteByte('\n')
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, b.String())
}

// handleDefaultParams lists a named config's DefaultParams as k=v lines,
// sorted by key for a stable response (the original's dict preserves
// declaration order; a Go map has none).
func (s *Server) handleDefaultParams(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cfg, ok := graph.Get(name)
	if !ok {
		http.Error(w, "unknown graph config", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, formatKV(cfg.DefaultParams))
}

// handleNew builds a new Processor for the named config, folding the
// interval/classCode/secCode the original threads through GraphBuilder's
// constructor into the caller-params map under reserved keys, and returns
// the new handle's id.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := graph.Get(name); !ok {
		http.Error(w, "unknown graph config", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 3 {
		http.Error(w, "expected 3 lines: interval, classCode, secCode", http.StatusBadRequest)
		return
	}

	callerParams := map[string]any{
		"interval":  lines[0],
		"classCode": lines[1],
		"secCode":   lines[2],
	}

	p, err := graph.New(name, callerParams)
	if err != nil {
		writeErr(w, err)
		return
	}

	id := s.cache.Add(p)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, id.String())
}

// handleSetParams replaces a handle's Processor with a structural clone
// built from the posted params, discarding whatever tick history the old
// one had accumulated, matching copyWithParams.
func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "malformed handle id", http.StatusBadRequest)
		return
	}

	proc, ok := s.cache.Get(id)
	if !ok {
		http.Error(w, "unknown handle", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	newParams, err := parseKV(string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	newProc, err := proc.CopyWithParams(newParams)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := s.cache.Replace(id, newProc); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleValues extends a handle's tick streams by one chunk and returns
// the selected graphs' new values, one line per graph in GraphConfigs
// order, an empty line for a graph the "(Graphs)" filter disabled. Each
// successful chunk is also pushed to any connected websocket clients.
func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "malformed handle id", http.StatusBadRequest)
		return
	}

	proc, ok := s.cache.Get(id)
	if !ok {
		http.Error(w, "unknown handle", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	price, volume, times, err := parseValuesBody(string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := proc.CalcValues(price, volume, times)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, formatRows(rows))

	if payload, err := json.Marshal(map[string]any{"id": id.String(), "rows": rows}); err == nil {
		s.hub.broadcast(id, payload)
	}
}

// handleOrders drains every order placed since the previous call, one
// k=v block per order separated by a blank line, matching main.py's
// getOrders.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.GetNew(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	blocks := make([]string, len(orders))
	for i, o := range orders {
		blocks[i] = formatKV(map[string]any{
			"TIME":      o.Time.Format(time.RFC3339Nano),
			"CLASSCODE": o.ClassCode,
			"SECCODE":   o.SecCode,
			"ACTION":    o.Action,
			"OPERATION": o.Operation,
			"PRICE":     strconv.FormatFloat(o.Price, 'f', -1, 64),
			"QUANTITY":  strconv.Itoa(o.Quantity),
			"TYPE":      o.Type,
		})
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, strings.Join(blocks, "\n\n"))
}

// writeErr maps a Processor/operator error onto an HTTP status: a
// ParamError (a caller-facing, malformed-input condition) is a 400,
// anything else a 500.
func writeErr(w http.ResponseWriter, err error) {
	var perr *microerr.ParamError
	if errors.As(err, &perr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// parseKV parses "k=v" lines into a string-valued param map; blank lines
// are skipped.
func parseKV(body string) (map[string]any, error) {
	out := map[string]any{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.New("malformed param line: " + line)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// formatKV renders a param map as sorted "k=v" lines.
func formatKV(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(m[k]))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// parseValuesBody parses the three ";"-separated lines postGraphValues
// sends: price, volume, and ISO8601 time, an empty field in any of them
// meaning "no value at this index", matching main.py's body parsing.
func parseValuesBody(body string) (price, volume []*float64, times []*time.Time, err error) {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) != 3 {
		return nil, nil, nil, errors.New("expected 3 lines: price, volume, time")
	}

	priceFields := strings.Split(lines[0], ";")
	volumeFields := strings.Split(lines[1], ";")
	timeFields := strings.Split(lines[2], ";")
	if len(priceFields) != len(volumeFields) || len(volumeFields) != len(timeFields) {
		return nil, nil, nil, errors.New("price, volume and time fields must be the same length")
	}

	price = make([]*float64, len(priceFields))
	for i, f := range priceFields {
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, nil, nil, errors.New("malformed price value: " + f)
		}
		price[i] = &v
	}

	volume = make([]*float64, len(volumeFields))
	for i, f := range volumeFields {
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, nil, nil, errors.New("malformed volume value: " + f)
		}
		volume[i] = &v
	}

	times = make([]*time.Time, len(timeFields))
	for i, f := range timeFields {
		if f == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, f)
		if err != nil {
			return nil, nil, nil, errors.New("malformed time value: " + f)
		}
		times[i] = &t
	}

	return price, volume, times, nil
}

// formatRows renders CalcValues' output as one line per graph slot: empty
// for a disabled slot, otherwise "offset;v1;v2;...".
func formatRows(rows []*graph.Row) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		if row == nil {
			lines[i] = ""
			continue
		}
		parts := make([]string, 0, len(row.Values)+1)
		parts = append(parts, strconv.Itoa(row.Offset))
		for _, v := range row.Values {
			if v == nil {
				parts = append(parts, "")
			} else {
				parts = append(parts, strconv.FormatFloat(*v, 'f', -1, 64))
			}
		}
		lines[i] = strings.Join(parts, ";")
	}
	return strings.Join(lines, "\n")
}
