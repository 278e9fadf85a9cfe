package sales

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"salesdash/internal/ingest"
	"salesdash/internal/kpi"
	"salesdash/internal/metrics"
	"salesdash/internal/store"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	st := store.New(db)
	if err := st.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return &Deps{
		Store:      st,
		Aggregator: &kpi.Aggregator{Totals: st},
		Metrics:    metrics.NewRegistry(),
		Schema:     ingest.DefaultConfig(),
	}
}

func multipartUpload(t *testing.T, filename, mode, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if mode != "" {
		if err := mw.WriteField("mode", mode); err != nil {
			t.Fatalf("write mode field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file content: %v", err)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/sales/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doRequest(deps *Deps, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	NewRouter(deps).ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

const testCSV = "fecha,cliente,producto,importe,margen,dto. medio,cantidad\n" +
	"2025-03-01,Acme,Widget,100,30%,10%,1\n" +
	"2025-03-02,Beta,Gadget,200,20%,5%,2\n"

func TestUploadCSV(t *testing.T) {
	deps := testDeps(t)
	rr := doRequest(deps, multipartUpload(t, "ventas.csv", "add", testCSV))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if body["rows"].(float64) != 2 {
		t.Errorf("rows = %v, want 2", body["rows"])
	}
	if body["batch_id"].(string) == "" {
		t.Error("missing batch_id")
	}
	sample := body["sample"].([]interface{})
	if len(sample) != 2 {
		t.Errorf("sample rows = %d, want 2", len(sample))
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	deps := testDeps(t)

	rr := doRequest(deps, multipartUpload(t, "ventas.pdf", "add", "x"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad extension status = %d, want 400", rr.Code)
	}

	rr = doRequest(deps, multipartUpload(t, "ventas.csv", "upsert", testCSV))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad mode status = %d, want 400", rr.Code)
	}

	// no data was persisted by the rejected uploads
	totals, err := deps.Store.Totals(context.Background())
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Orders != 0 {
		t.Errorf("orders after rejected uploads = %d, want 0", totals.Orders)
	}
}

func TestUploadRejectsOversizePayload(t *testing.T) {
	deps := testDeps(t)
	req := multipartUpload(t, "ventas.csv", "add", testCSV)
	req.ContentLength = maxUploadBytes + 1
	rr := doRequest(deps, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestUploadCorruptWorkbook(t *testing.T) {
	deps := testDeps(t)
	rr := doRequest(deps, multipartUpload(t, "ventas.xlsx", "add", "not a workbook"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestUploadReplaceMode(t *testing.T) {
	deps := testDeps(t)
	if rr := doRequest(deps, multipartUpload(t, "old.csv", "add", testCSV)); rr.Code != http.StatusOK {
		t.Fatalf("seed upload: %d", rr.Code)
	}
	replacement := "fecha,cliente,importe\n2025-04-01,Gamma,500\n"
	if rr := doRequest(deps, multipartUpload(t, "new.csv", "replace", replacement)); rr.Code != http.StatusOK {
		t.Fatalf("replace upload: %d", rr.Code)
	}
	totals, err := deps.Store.Totals(context.Background())
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Orders != 1 || totals.Turnover != 500 {
		t.Errorf("totals after replace = %+v, want 1 row / 500", totals)
	}
}

func TestUndoEndpoint(t *testing.T) {
	deps := testDeps(t)

	rr := doRequest(deps, httptest.NewRequest(http.MethodDelete, "/sales/upload/undo", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("undo on empty store = %d, want 404", rr.Code)
	}

	doRequest(deps, multipartUpload(t, "ventas.csv", "add", testCSV))
	rr = doRequest(deps, httptest.NewRequest(http.MethodDelete, "/sales/upload/undo", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("undo = %d, body %s", rr.Code, rr.Body.String())
	}
	totals, _ := deps.Store.Totals(context.Background())
	if totals.Orders != 0 {
		t.Errorf("orders after undo = %d, want 0", totals.Orders)
	}
}

func TestBasicKPIsEndpoint(t *testing.T) {
	deps := testDeps(t)
	csv := "fecha,cliente,producto,importe,margen,dto. medio\n" +
		"2025-03-01,Acme,Widget,100,\"30,00 €\",10%\n" +
		"2025-03-02,Beta,Gadget,200,\"40,00 €\",5%\n"
	if rr := doRequest(deps, multipartUpload(t, "kpi.csv", "add", csv)); rr.Code != http.StatusOK {
		t.Fatalf("upload: %d", rr.Code)
	}

	rr := doRequest(deps, httptest.NewRequest(http.MethodGet, "/sales/kpis/basic", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("kpis = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	got := body["rows"].(map[string]interface{})
	if got["turnover"].(float64) != 300 || got["orders"].(float64) != 2 {
		t.Errorf("kpis = %v", got)
	}
	if got["ticket_average"].(float64) != 150 {
		t.Errorf("ticket_average = %v, want 150", got["ticket_average"])
	}
	if got["margin"].(float64) != 70 {
		t.Errorf("margin = %v, want 70", got["margin"])
	}
	if got["discount"].(float64) != 20 {
		t.Errorf("discount = %v, want 20", got["discount"])
	}
}

func TestABCEndpoint(t *testing.T) {
	deps := testDeps(t)
	csv := "fecha,producto,importe\n" +
		"2025-03-01,Top,80\n" +
		"2025-03-01,Mid,15\n" +
		"2025-03-01,Tail,5\n"
	if rr := doRequest(deps, multipartUpload(t, "abc.csv", "add", csv)); rr.Code != http.StatusOK {
		t.Fatalf("upload: %d", rr.Code)
	}

	rr := doRequest(deps, httptest.NewRequest(http.MethodGet, "/sales/kpis/abc?by=product", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("abc = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	tiers := body["rows"].(map[string]interface{})
	a := tiers["A"].([]interface{})
	if len(a) != 1 || a[0].(map[string]interface{})["name"] != "Top" {
		t.Errorf("tier A = %v, want [Top]", a)
	}

	rr = doRequest(deps, httptest.NewRequest(http.MethodGet, "/sales/kpis/abc?by=margin", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid dimension = %d, want 400", rr.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	deps := testDeps(t)
	doRequest(deps, multipartUpload(t, "ventas.csv", "add", testCSV))

	rr := doRequest(deps, httptest.NewRequest(http.MethodGet, "/sales/upload/history", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("history = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	entries := body["rows"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	entry := entries[0].(map[string]interface{})
	if entry["filename"] != "ventas.csv" || entry["mode"] != "add" {
		t.Errorf("history entry = %v", entry)
	}
}
