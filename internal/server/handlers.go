package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/anikets/bachatbuddy/internal/auth"
	"github.com/anikets/bachatbuddy/internal/catalog"
	"github.com/anikets/bachatbuddy/internal/extraction"
	"github.com/anikets/bachatbuddy/internal/history"
	"github.com/anikets/bachatbuddy/internal/user"
)

// maxUploadSize bounds bill uploads; high-resolution phone photos can be
// large.
const maxUploadSize = int64(50 << 20) // 50MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  user.Profile `json:"user"`
}

// handleRegister creates a new account and issues a token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := s.authenticator.Register(req.Username, req.Email, req.FullName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields), errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrAccountExists):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("Error registering user", "error", err)
			jsonError(w, "registration failed", http.StatusInternalServerError)
		}
		return
	}

	token, err := s.tokens.Generate(u)
	if err != nil {
		slog.Error("Error generating token", "error", err)
		jsonError(w, "registration failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: u.Profile()})
}

// handleLogin authenticates a user and issues a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := s.authenticator.Authenticate(req.Username, req.Password)
	if err != nil {
		jsonError(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	token, err := s.tokens.Generate(u)
	if err != nil {
		slog.Error("Error generating token", "error", err)
		jsonError(w, "login failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: u.Profile()})
}

// handleStats returns the user's derived accrual.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(userID(r.Context()))
	if err != nil {
		slog.Error("Error computing stats", "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type searchRequest struct {
	Query string `json:"query"`
}

// handleRecordSearch records a search event and returns the fresh accrual.
func (s *Server) handleRecordSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	stats, err := s.service.RecordSearch(userID(r.Context()), req.Query)
	if err != nil {
		if errors.Is(err, history.ErrEmptyQuery) {
			jsonError(w, history.ErrEmptyQuery.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Error recording search", "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSearchPrices records the search and returns ranked offers.
func (s *Server) handleSearchPrices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	sortKey := catalog.SortKey(r.URL.Query().Get("sort"))
	if sortKey != catalog.SortByDistance {
		sortKey = catalog.SortByPrice
	}

	offers, err := s.service.SearchPrices(userID(r.Context()), query, sortKey)
	if err != nil {
		slog.Error("Error searching prices", "query", query, "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

type priceEntryRequest struct {
	ShopID      string  `json:"shop_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Unit        string  `json:"unit"`
}

// handleSetPrice applies a manual shopkeeper price entry.
func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req priceEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	price, err := s.service.SetShopPrice(req.ShopID, req.ProductName, req.Price, req.Unit)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidShopReference):
			jsonError(w, "unknown shop", http.StatusBadRequest)
		case errors.Is(err, catalog.ErrInvalidPriceEntry):
			jsonError(w, catalog.ErrInvalidPriceEntry.Error(), http.StatusBadRequest)
		default:
			slog.Error("Error saving price entry", "error", err)
			jsonError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, price)
}

// handleExtractBill accepts a multipart bill upload and returns the
// extracted draft for review.
func (s *Server) handleExtractBill(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "error parsing form"
		if err.Error() == "http: request body too large" {
			message = "file is too large, maximum size is 50MB"
		}
		jsonError(w, message, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "no file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		jsonError(w, "file is too large, maximum size is 50MB", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		jsonError(w, "error reading file", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	draft, err := s.service.ExtractBill(data, contentType)
	if err != nil {
		jsonError(w, "could not extract bill contents", http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

type confirmBillRequest struct {
	ShopID      string                     `json:"shop_id"`
	ShopName    string                     `json:"shop_name"`
	Items       []extraction.ExtractedItem `json:"items"`
	TotalAmount float64                    `json:"total_amount"`
}

type confirmBillResponse struct {
	Bill   history.Bill   `json:"bill"`
	Result catalog.Result `json:"result"`
}

// handleConfirmBill saves a reviewed draft: reconciles the items into the
// price catalog and records the bill against the user.
func (s *Server) handleConfirmBill(w http.ResponseWriter, r *http.Request) {
	var req confirmBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	draft := extraction.BillData{
		ShopName:    req.ShopName,
		Items:       req.Items,
		TotalAmount: req.TotalAmount,
	}
	bill, result, err := s.service.ConfirmBill(userID(r.Context()), req.ShopID, draft)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidShopReference) {
			jsonError(w, "unknown shop", http.StatusBadRequest)
			return
		}
		if errors.Is(err, catalog.ErrInvalidLineItem) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Error confirming bill", "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, confirmBillResponse{Bill: *bill, Result: *result})
}

// handleListBills returns the user's bill history.
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.service.Bills(userID(r.Context()))
	if err != nil {
		slog.Error("Error listing bills", "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleDeleteBill removes a bill from the user's history.
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	billID := r.PathValue("id")
	if err := s.service.DeleteBill(userID(r.Context()), billID); err != nil {
		if errors.Is(err, history.ErrBillNotFound) {
			jsonError(w, "bill not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting bill", "bill_id", billID, "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNearbyShops returns shops around the given coordinates.
func (s *Server) handleNearbyShops(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		jsonError(w, "lat and lng query parameters are required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.NearbyShops(lat, lng))
}

// handleListShops returns the registered shop directory.
func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.service.Shops()
	if err != nil {
		slog.Error("Error listing shops", "error", err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, shops)
}
