package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/discovery"
	"github.com/dotcommander/mbiscore/internal/instrument"
	"github.com/dotcommander/mbiscore/internal/output"
	"github.com/dotcommander/mbiscore/internal/scoring"
	"github.com/dotcommander/mbiscore/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	engine := scoring.NewEngine(instrument.MustDefault())
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := httptest.NewServer(NewRouter(engine, batch.NewProcessor(engine, 2), opts))
	t.Cleanup(srv.Close)
	return srv
}

func constant(value int) []int {
	values := make([]int, instrument.ItemCount)
	for i := range values {
		values[i] = value
	}
	return values
}

func surveyCSV(rows ...[]string) string {
	header := []string{"id"}
	for i := 1; i <= instrument.ItemCount; i++ {
		header = append(header, strconv.Itoa(i))
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(header)
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.String()
}

func csvRow(id string, value string) []string {
	row := []string{id}
	for i := 0; i < instrument.ItemCount; i++ {
		row = append(row, value)
	}
	return row
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestInstrument(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/v1/instrument")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body instrumentResponse
	decode(t, resp, &body)
	assert.Equal(t, "MBI-HSS", body.Name)
	assert.Equal(t, 22, body.Items)
	require.Len(t, body.Subscales, 3)
	assert.Equal(t, instrument.Bounds{Low: 16, High: 26}, body.Subscales[0].Bounds)
	assert.Len(t, body.Prompts, 22)
}

func TestScore(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp := postJSON(t, srv.URL+"/v1/score", scoreRequest{ID: "r1", Responses: constant(3)})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body output.JSONRespondent
	decode(t, resp, &body)
	assert.Equal(t, "r1", body.ID)
	assert.Equal(t, 27, body.EE.Score)
	assert.Equal(t, scoring.RiskHigh, body.Risk)
	assert.Equal(t, scoring.Advisory(scoring.RiskHigh), body.Advisory)
}

func TestScore_Errors(t *testing.T) {
	srv := newTestServer(t, Options{})

	outOfRange := constant(3)
	outOfRange[3] = 8

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantKind   string
	}{
		{"short vector", scoreRequest{Responses: constant(3)[:5]}, http.StatusUnprocessableEntity, "InvalidResponseShape"},
		{"out of range", scoreRequest{Responses: outOfRange}, http.StatusUnprocessableEntity, "InvalidResponseValue"},
		{"not an object", []int{1, 2}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/score", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body errorResponse
			decode(t, resp, &body)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantKind, body.Kind)
		})
	}
}

func TestBatch_JSON(t *testing.T) {
	srv := newTestServer(t, Options{})
	bad := constant(3)
	bad[0] = 9

	resp := postJSON(t, srv.URL+"/v1/batch", map[string]any{"rows": []map[string]any{
		{"id": "a", "responses": constant(3)},
		{"responses": bad},
		{"responses": constant(0)},
	}})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body output.JSONBatchReport
	decode(t, resp, &body)

	require.Len(t, body.Results, 2)
	assert.Equal(t, "a", body.Results[0].ID)
	assert.Equal(t, "3", body.Results[1].ID)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, 2, body.Errors[0].Row)
	assert.Equal(t, "InvalidResponseValue", body.Errors[0].Kind)
	assert.Equal(t, 2, body.Summary.Scored)
	assert.Equal(t, 1, body.Summary.Failed)
	assert.NotEmpty(t, body.Header.RunID)
}

func TestBatch_JSONBadValuesFailTheirRow(t *testing.T) {
	srv := newTestServer(t, Options{})

	responses := func(at int, v any) []any {
		out := make([]any, instrument.ItemCount)
		for i := range out {
			out[i] = 3
		}
		out[at] = v
		return out
	}

	tests := []struct {
		name string
		bad  []any
		item int
	}{
		{"string", responses(4, "x"), 5},
		{"fractional", responses(0, 3.5), 1},
		{"null", responses(21, nil), 22},
		{"boolean", responses(9, true), 10},
		{"huge", responses(2, 1e12), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/batch", map[string]any{"rows": []map[string]any{
				{"id": "a", "responses": constant(3)},
				{"id": "b", "responses": tt.bad},
			}})
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body output.JSONBatchReport
			decode(t, resp, &body)
			require.Len(t, body.Results, 1)
			assert.Equal(t, "a", body.Results[0].ID)
			require.Len(t, body.Errors, 1)
			assert.Equal(t, "b", body.Errors[0].ID)
			assert.Equal(t, tt.item, body.Errors[0].Item)
		})
	}
}

func TestBatch_JSONStringNumbers(t *testing.T) {
	srv := newTestServer(t, Options{})
	answers := make([]string, instrument.ItemCount)
	for i := range answers {
		answers[i] = "2"
	}

	resp := postJSON(t, srv.URL+"/v1/batch", map[string]any{"rows": []map[string]any{
		{"id": "s", "responses": answers},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body output.JSONBatchReport
	decode(t, resp, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, 18, body.Results[0].EE.Score)
}

func TestBatch_CSV(t *testing.T) {
	srv := newTestServer(t, Options{})
	data := surveyCSV(csvRow("x", "3"), csvRow("y", "oops"))

	resp, err := http.Post(srv.URL+"/v1/batch", "text/csv", strings.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body output.JSONBatchReport
	decode(t, resp, &body)
	require.Len(t, body.Results, 1)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "y", body.Errors[0].ID)
	assert.Equal(t, 3, body.Errors[0].Line)
}

func TestBatch_SchemaError(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Post(srv.URL+"/v1/batch", "text/csv", strings.NewReader("id,1,2,3\nx,1,2,3\n"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body errorResponse
	decode(t, resp, &body)
	assert.Equal(t, "ConfigurationError", body.Kind)
	assert.Contains(t, body.Error, "missing item columns")
}

func TestBatch_XLSXBody(t *testing.T) {
	srv := newTestServer(t, Options{})

	wb := excelize.NewFile()
	header := []any{"id"}
	row := []any{"w1"}
	for i := 1; i <= instrument.ItemCount; i++ {
		header = append(header, i)
		row = append(row, 2)
	}
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &header))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &row))
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	require.NoError(t, wb.Close())

	resp, err := http.Post(srv.URL+"/v1/batch", tabular.ContentType(discovery.FormatXLSX), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body output.JSONBatchReport
	decode(t, resp, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "w1", body.Results[0].ID)
	assert.Equal(t, 18, body.Results[0].EE.Score)
}

func TestBatch_Multipart(t *testing.T) {
	srv := newTestServer(t, Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "respostas.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, surveyCSV(csvRow("m1", "1")))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/v1/batch", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body output.JSONBatchReport
	decode(t, resp, &body)
	assert.Equal(t, []string{"respostas.csv"}, body.Sources)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "m1", body.Results[0].ID)
}

func TestBatch_Export(t *testing.T) {
	srv := newTestServer(t, Options{})
	data := surveyCSV(csvRow("x", "3"), csvRow("y", "0"))

	t.Run("csv", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/batch?export=csv", "text/csv", strings.NewReader(data))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="mbi_hss_results.csv"`, resp.Header.Get("Content-Disposition"))
		records, err := csv.NewReader(resp.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, tabular.ResultHeader, records[0])
		assert.Equal(t, "High Risk", records[1][7])
	})

	t.Run("xlsx", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/batch?export=xlsx", "text/csv", strings.NewReader(data))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
		wb, err := excelize.OpenReader(resp.Body)
		require.NoError(t, err)
		defer wb.Close()
		assert.Equal(t, []string{tabular.SheetResults, tabular.SheetSummary, tabular.SheetErrors}, wb.GetSheetList())
	})

	t.Run("unknown", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/batch?export=pdf", "text/csv", strings.NewReader(data))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestBatch_UnsupportedContentType(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := http.Post(srv.URL+"/v1/batch", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBatch_UploadLimit(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 64})
	data := surveyCSV(csvRow("x", "3"))

	resp, err := http.Post(srv.URL+"/v1/batch", "text/csv", strings.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestScore_UploadLimit(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 16})
	resp := postJSON(t, srv.URL+"/v1/score", scoreRequest{ID: "r1", Responses: constant(3)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRequestStatus(t *testing.T) {
	tooLarge := fmt.Errorf("bad json: %w", &http.MaxBytesError{Limit: 8})
	assert.Equal(t, http.StatusRequestEntityTooLarge, requestStatus(tooLarge, http.StatusBadRequest))
	assert.Equal(t, http.StatusBadRequest, requestStatus(errors.New("bad json"), http.StatusBadRequest))
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/score", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNew_Defaults(t *testing.T) {
	engine := scoring.NewEngine(instrument.MustDefault())
	s := New(engine, batch.NewProcessor(engine, 1), Options{})
	assert.Equal(t, int64(10<<20), s.opts.MaxUploadBytes)
	assert.NotNil(t, s.log)
}

func TestBatchRowCells(t *testing.T) {
	row := batchRow{Responses: []json.RawMessage{
		json.RawMessage(`3`),
		json.RawMessage(` 4.0 `),
		json.RawMessage(`"5"`),
		json.RawMessage(`null`),
		json.RawMessage(`[1]`),
	}}
	assert.Equal(t, []string{"3", "4.0", "5", "", "[1]"}, row.cells())
}
