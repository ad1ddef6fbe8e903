package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/discovery"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/output"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/dotcommander/mbiscore/internal/tabular"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type scoreRequest struct {
	ID        string `json:"id"`
	Responses []int  `json:"responses"`
}

// batchRow keeps answers raw so a bad value fails its row, not the request
type batchRow struct {
	ID        string            `json:"id"`
	Responses []json.RawMessage `json:"responses"`
}

type batchRequest struct {
	Rows []batchRow `json:"rows"`
}

// cells renders raw answers as table cells. Strings are unquoted, null is
// blank and anything else is kept verbatim for the row parser to judge.
func (r batchRow) cells() []string {
	cells := make([]string, len(r.Responses))
	for i, raw := range r.Responses {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			cells[i] = s
			continue
		}
		cells[i] = string(bytes.TrimSpace(raw))
	}
	return cells
}

type instrumentResponse struct {
	Name      string                  `json:"name"`
	Version   string                  `json:"version"`
	Items     int                     `json:"items"`
	Scale     instrument.Scale        `json:"scale"`
	Subscales []instrument.Definition `json:"subscales"`
	Prompts   []string                `json:"prompts"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestStatus maps a request error to its status; oversized bodies are 413
func requestStatus(err error, fallback int) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: scoring.KindName(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInstrument(w http.ResponseWriter, r *http.Request) {
	in := s.engine.Instrument()
	prompts := make([]string, 0, instrument.ItemCount)
	for item := 1; item <= instrument.ItemCount; item++ {
		prompts = append(prompts, in.Prompt(item))
	}
	writeJSON(w, http.StatusOK, instrumentResponse{
		Name:      in.Name(),
		Version:   in.Version(),
		Items:     instrument.ItemCount,
		Scale:     in.Scale(),
		Subscales: in.Definitions(),
		Prompts:   prompts,
	})
}

// handleScore scores one respondent; invalid responses are refused outright
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		err = fmt.Errorf("bad json: %w", err)
		writeError(w, requestStatus(err, http.StatusBadRequest), err)
		return
	}

	result, err := s.engine.EvaluateValues(req.ID, req.Responses)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, output.NewJSONRespondent(result))
}

// handleBatch scores a JSON, CSV, XLSX or multipart upload. Bad rows are
// reported in the response and never fail the request.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	rows, source, err := s.readBatch(r, body)
	if err != nil {
		status := requestStatus(err, http.StatusBadRequest)
		if errors.Is(err, instrument.ErrConfiguration) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}

	res := s.processor.Process(rows)
	s.log.Info("batch scored",
		"source", source,
		"scored", res.Summary.Scored,
		"failed", res.Summary.Failed,
		"duration", time.Since(start).Round(time.Millisecond))

	switch strings.ToLower(r.URL.Query().Get("export")) {
	case "":
	case "csv":
		s.writeExport(w, discovery.FormatCSV, res)
		return
	case "xlsx":
		s.writeExport(w, discovery.FormatXLSX, res)
		return
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported export format %q", r.URL.Query().Get("export")))
		return
	}

	in := s.engine.Instrument()
	rep := output.NewReport(in.Name()+" "+in.Version(), []string{source}, start, res)
	writeJSON(w, http.StatusOK, output.NewJSONBatchReport(rep))
}

func (s *Server) readBatch(r *http.Request, body io.Reader) ([]batch.Row, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "application/json", "":
		var req batchRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, "", fmt.Errorf("bad json: %w", err)
		}
		rows := make([]batch.Row, 0, len(req.Rows))
		for _, row := range req.Rows {
			rows = append(rows, batch.Row{Identifier: row.ID, Cells: row.cells()})
		}
		return rows, "request", nil
	case "text/csv":
		rows, err := tabular.ReadCSV("upload.csv", body, s.opts.Tabular)
		return rows, "upload.csv", err
	case tabular.ContentType(discovery.FormatXLSX):
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, "", fmt.Errorf("cannot read upload: %w", err)
		}
		rows, err := tabular.ReadXLSX("upload.xlsx", bytes.NewReader(data), s.opts.Tabular)
		return rows, "upload.xlsx", err
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
			return nil, "", fmt.Errorf("bad upload: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("missing form file \"file\": %w", err)
		}
		defer file.Close()
		rows, err := tabular.Read(header.Filename, file, s.opts.Tabular)
		return rows, header.Filename, err
	default:
		return nil, "", fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func (s *Server) writeExport(w http.ResponseWriter, format discovery.Format, res *batch.Result) {
	var buf bytes.Buffer
	if err := tabular.Export(&buf, format, res); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", tabular.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="mbi_hss_results.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
