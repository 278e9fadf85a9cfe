package sales

import (
	"net/http"

	"salesdash/api"
	"salesdash/api/constants"
	"salesdash/internal/ingest"
	"salesdash/internal/kpi"
)

// BasicKPIs serves turnover/margin/discount/orders/ticket-average, blended
// with the external revenue sources. Connector failures contribute zero and
// never fail the request.
func BasicKPIs(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		basic, err := deps.Aggregator.Basic(r.Context())
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrKPIFailed+": "+err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", basic)
	}
}

// ABCClassification serves Pareto tiers for a grouping dimension
// (?by=product|customer, defaulting to product).
func ABCClassification(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dimension := r.URL.Query().Get("by")
		if dimension == "" {
			dimension = ingest.DimProduct
		}
		if dimension != ingest.DimProduct && dimension != ingest.DimCustomer {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidDimension)
			return
		}
		groups, err := deps.Store.GroupTotals(r.Context(), dimension)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrKPIFailed+": "+err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", kpi.Classify(groups))
	}
}
