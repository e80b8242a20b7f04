package httpapi

import (
	"errors"
	"net/http"

	"cctvstore/backend/internal/domain"
)

func (a *API) handleDealerInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	inventory, err := a.service.DealerInventory(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inventory)
}

// handleInvoices lists invoices for both the dealer portal (own invoices)
// and the back office (all dealers). Only dealers create them.
func (a *API) handleInvoices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
		resp, err := a.service.ListInvoices(r.Context(), limit)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req domain.InvoiceCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		invoice, err := a.service.CreateInvoice(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, domain.InvoiceResponse{Invoice: invoice})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleInvoiceActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r, "/api/v1/dealer/invoices/")
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("invoice id required"))
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "finalize":
			if r.Method != http.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			invoice, err := a.service.FinalizeInvoice(r.Context(), id)
			if err != nil {
				a.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, domain.InvoiceResponse{Invoice: invoice})
		case "print":
			if r.Method != http.MethodGet {
				writeMethodNotAllowed(w)
				return
			}
			body, err := a.service.RenderInvoiceHTML(r.Context(), id)
			if err != nil {
				a.fail(w, err)
				return
			}
			writeDocument(w, "text/html; charset=utf-8", "", body)
		default:
			writeError(w, http.StatusNotFound, errors.New("unknown invoice action"))
		}
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown invoice action"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		invoice, err := a.service.GetInvoice(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.InvoiceResponse{Invoice: invoice})
	case http.MethodDelete:
		if err := a.service.DeleteInvoice(r.Context(), id); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}
