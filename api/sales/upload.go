package sales

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"salesdash/api"
	"salesdash/api/constants"
	"salesdash/internal/config"
	"salesdash/internal/fileparse"
	"salesdash/internal/ingest"
	"salesdash/internal/logger"
	"salesdash/internal/store"
)

const maxUploadBytes = config.MaxUploadMB << 20

// UploadSales ingests a spreadsheet/CSV export: parse, normalize, persist as
// one batch. Parsing happens before the transaction opens, so a corrupt file
// never leaves partial state behind.
func UploadSales(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		started := time.Now()

		if r.ContentLength > maxUploadBytes {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusRequestEntityTooLarge, constants.ErrFileTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFailedToParseMultipartForm)
			return
		}
		mode, err := store.ParseMode(r.FormValue(constants.KeyMode))
		if err != nil {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidMode)
			return
		}

		file, header, err := r.FormFile(constants.KeyFile)
		if err != nil {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileRequired)
			return
		}
		defer file.Close()

		ext := fileparse.Ext(header.Filename)
		if !fileparse.Supported(ext) {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrUnsupportedFileType)
			return
		}

		records, err := fileparse.Parse(file, ext)
		if err != nil {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileParseFailed+": "+err.Error())
			return
		}
		table, err := ingest.Normalize(records, deps.Schema)
		if err != nil {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrFileParseFailed+": "+err.Error())
			return
		}

		res, err := deps.Store.LoadBatch(ctx, table, header.Filename, mode)
		if err != nil {
			deps.Metrics.UploadsRejected.Inc()
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrIngestFailed+": "+err.Error())
			return
		}

		deps.Metrics.UploadsAccepted.Inc()
		deps.Metrics.RowsIngested.Add(float64(res.Rows))
		deps.Metrics.IngestSeconds.Observe(time.Since(started).Seconds())
		logger.Audit("batch %s loaded from %s (mode=%s, rows=%d)", res.BatchID, header.Filename, mode, res.Rows)

		w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			constants.ValueSuccess: true,
			"message":              "file ingested",
			"batch_id":             res.BatchID,
			"rows":                 res.Rows,
			"columns":              table.Columns,
			"sample":               sampleRows(table, config.SampleRowCount),
			"unmapped":             unmappedHeaders(table, deps.Schema),
		})
	}
}

// UndoLastUpload removes the most recent batch and its rows as one unit.
func UndoLastUpload(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Store.UndoLastBatch(r.Context())
		if errors.Is(err, store.ErrNoBatches) {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrNothingToUndo)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrUndoFailed+": "+err.Error())
			return
		}
		deps.Metrics.Undos.Inc()
		logger.Audit("batch %s undone (rows=%d)", res.BatchID, res.Rows)

		w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			constants.ValueSuccess: true,
			"batch_id":             res.BatchID,
			"rows":                 res.Rows,
		})
	}
}

// UploadHistory lists the audit entries, newest first.
func UploadHistory(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.Store.History(r.Context())
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrHistoryReadFailed+": "+err.Error())
			return
		}
		if entries == nil {
			entries = []store.HistoryEntry{}
		}
		api.RespondWithPayload(w, true, "", entries)
	}
}

// sampleRows returns up to n normalized rows keyed by canonical column name.
func sampleRows(t *ingest.Table, n int) []map[string]interface{} {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		cols[c] = true
	}
	out := make([]map[string]interface{}, 0, n)
	for _, rec := range t.Rows[:n] {
		row := map[string]interface{}{
			ingest.FieldAmount: rec.Amount,
			ingest.FieldMargin: rec.Margin,
		}
		if cols[ingest.FieldDate] {
			if rec.Date.IsZero() {
				row[ingest.FieldDate] = nil
			} else {
				row[ingest.FieldDate] = rec.Date.Format(constants.DateFormat)
			}
		}
		if cols[ingest.DimMarket] {
			row[ingest.DimMarket] = rec.Market
		}
		if cols[ingest.DimSegment] {
			row[ingest.DimSegment] = rec.Segment
		}
		if cols[ingest.DimCustomer] {
			row[ingest.DimCustomer] = rec.Customer
		}
		if cols[ingest.DimProduct] {
			row[ingest.DimProduct] = rec.Product
		}
		if cols[ingest.FieldQuantity] {
			row[ingest.FieldQuantity] = rec.Quantity
		}
		if cols[ingest.FieldDiscount] {
			row[ingest.FieldDiscount] = rec.Discount
		}
		out = append(out, row)
	}
	return out
}

// unmappedHeaders pairs leftover source headers with their closest known
// column name, when one is close enough to look like a typo.
func unmappedHeaders(t *ingest.Table, cfg ingest.Config) []map[string]string {
	suggestions := ingest.SuggestHeaders(t.Unmapped, cfg)
	out := make([]map[string]string, 0, len(t.Unmapped))
	for _, h := range t.Unmapped {
		entry := map[string]string{"header": h}
		if s, ok := suggestions[h]; ok {
			entry["did_you_mean"] = s
		}
		out = append(out, entry)
	}
	return out
}
