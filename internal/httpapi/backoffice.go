package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/service"
)

func (a *API) handleQuotationOptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		options, err := a.service.ListQuotationOptions(r.Context(), includeInactive)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"options": options})
	case http.MethodPost:
		var req domain.QuotationOptionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		option, err := a.service.CreateQuotationOption(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"option": option})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleQuotationOptionActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r, "/api/v1/quotation/options/")
	if len(parts) != 1 {
		writeError(w, http.StatusBadRequest, errors.New("option id required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.QuotationOptionUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		option, err := a.service.UpdateQuotationOption(r.Context(), parts[0], req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"option": option})
	case http.MethodDelete:
		if err := a.service.DeleteQuotationOption(r.Context(), parts[0]); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleRefreshPriceTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	doc, err := a.service.RefreshPriceTable(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) handleOrderActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r, "/api/v1/orders/")
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("order id required"))
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		order, err := a.service.GetOrder(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order": order})
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodPatch {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.OrderStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		order, err := a.service.UpdateOrderStatus(r.Context(), id, req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order": order})
	case len(parts) == 2 && parts[1] == "payment":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.PaymentConfirmRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		order, err := a.service.ConfirmPayment(r.Context(), id, req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order": order})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown order action"))
	}
}

func (a *API) handlePricingRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := a.service.ListPricingRules(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
	case http.MethodPost:
		var req domain.PricingRuleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rule, err := a.service.CreatePricingRule(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"rule": rule})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handlePricingRuleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}
	parts := pathTail(r, "/api/v1/pricing-rules/")
	if len(parts) != 1 {
		writeError(w, http.StatusBadRequest, errors.New("rule id required"))
		return
	}
	var req domain.PricingRuleToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rule, err := a.service.SetPricingRuleActive(r.Context(), parts[0], req.Active)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rule": rule})
}

func (a *API) handleDealers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		dealers, err := a.service.ListDealers(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"dealers": dealers})
	case http.MethodPost:
		var req domain.DealerCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		dealer, err := a.service.CreateDealer(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"dealer": dealer})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), r.URL.Query().Get("date"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	report, err := a.service.SalesReport(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		a.fail(w, err)
		return
	}

	switch format {
	case "csv":
		body, err := service.SalesReportCSV(report)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeDocument(w, "text/csv; charset=utf-8", fmt.Sprintf("sales-report-%s.csv", report.Date), body)
	case "html", "pdf":
		body, err := service.SalesReportHTML(report)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeDocument(w, "text/html; charset=utf-8", "", body)
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (a *API) handleStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"staff": a.auth.ListStaff(r.Context())})
	case http.MethodPost:
		var req domain.StaffCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.auth.CreateStaff(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		writeMethodNotAllowed(w)
	}
}
