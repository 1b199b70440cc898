package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	models "storefront-cart/model"
	"storefront-cart/service"
	"storefront-cart/store"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler is the HTTP layer in front of the cart and the catalog
type Handler struct {
	cart    service.CartService
	catalog store.Catalog
	events  http.Handler
	log     logrus.FieldLogger
}

// NewHandler returns a Handler instance. catalog and events may be nil, in
// which case their routes are not registered.
func NewHandler(cart service.CartService, catalog store.Catalog, events http.Handler, log logrus.FieldLogger) *Handler {
	return &Handler{cart: cart, catalog: catalog, events: events, log: log}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(h.logRequests)

	r.HandleFunc("/health", h.Health).Methods("GET")

	// Cart
	r.HandleFunc("/cart", h.ListCart).Methods("GET")
	r.HandleFunc("/cart/add", h.AddProduct).Methods("POST")
	r.HandleFunc("/cart/remove", h.RemoveProduct).Methods("POST")
	r.HandleFunc("/cart/amount", h.UpdateProductAmount).Methods("POST")

	if h.events != nil {
		r.Handle("/notifications", h.events).Methods("GET")
	}

	// Catalog
	if h.catalog != nil {
		r.HandleFunc("/products", h.CreateProduct).Methods("POST")
		r.HandleFunc("/products/list", h.ListProducts).Methods("GET")
		r.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods("GET")
		r.HandleFunc("/stock/{id:[0-9]+}", h.GetStock).Methods("GET")
		r.HandleFunc("/stock", h.UpdateStock).Methods("POST")
	}
}

// --- request / response shapes ---
type productReq struct {
	ProductID int64 `json:"product_id"`
}

type createProductReq struct {
	Name     string  `json:"name"`
	ImageURL string  `json:"image_url,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

type updateStockReq struct {
	ProductID int64 `json:"product_id"`
	NewStock  int   `json:"new_stock"`
}

type cartResp struct {
	Items    models.Cart `json:"items"`
	Count    int         `json:"count"`
	Subtotal float64     `json:"subtotal"`
}

type outcomeResp struct {
	Outcome string      `json:"outcome"`
	Message string      `json:"message,omitempty"`
	Cart    models.Cart `json:"cart"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeOutcome maps a cart outcome to a status code. failMsg is the
// operation's generic failure message.
func (h *Handler) writeOutcome(w http.ResponseWriter, o service.Outcome, failMsg string) {
	resp := outcomeResp{Outcome: o.String(), Cart: h.cart.Cart()}
	code := http.StatusOK
	switch o {
	case service.OutOfStock:
		code = http.StatusConflict
		resp.Message = service.MsgOutOfStock
	case service.NotFound:
		code = http.StatusNotFound
		resp.Message = failMsg
	case service.Failed:
		code = http.StatusBadGateway
		resp.Message = failMsg
	}
	writeJSON(w, code, resp)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

// --- Cart ---

// ListCart handles GET /cart
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request) {
	c := h.cart.Cart()
	writeJSON(w, http.StatusOK, cartResp{Items: c, Count: c.Count(), Subtotal: c.Subtotal()})
}

// AddProduct handles POST /cart/add
// body: { "product_id": 1 }
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.writeOutcome(w, h.cart.AddProduct(r.Context(), req.ProductID), service.MsgAddFailed)
}

// RemoveProduct handles POST /cart/remove
// body: { "product_id": 1 }
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.writeOutcome(w, h.cart.RemoveProduct(r.Context(), req.ProductID), service.MsgRemoveFailed)
}

// UpdateProductAmount handles POST /cart/amount
// body: { "product_id": 1, "amount": 3 }
func (h *Handler) UpdateProductAmount(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProductAmount
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.writeOutcome(w, h.cart.UpdateProductAmount(r.Context(), req), service.MsgUpdateFailed)
}

// --- Catalog ---

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price < 0 {
		writeErr(w, http.StatusBadRequest, "price must be >= 0")
		return
	}
	if req.Stock < 0 {
		writeErr(w, http.StatusBadRequest, "stock must be >= 0")
		return
	}

	id, err := h.catalog.CreateProduct(r.Context(), req.Name, req.ImageURL, req.Price, req.Stock)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// ListProducts handles GET /products/list
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, toProduct(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	row, err := h.catalog.GetProduct(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toProduct(row))
}

// GetStock handles GET /stock/{id}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	n, err := h.catalog.GetStock(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.Stock{ID: id, Amount: n})
}

// UpdateStock handles POST /stock
// body: { "product_id": 1, "new_stock": 10 }
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req updateStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == 0 {
		writeErr(w, http.StatusBadRequest, "product_id required")
		return
	}
	if req.NewStock < 0 {
		writeErr(w, http.StatusBadRequest, "new_stock must be >= 0")
		return
	}
	if err := h.catalog.UpdateStock(r.Context(), req.ProductID, req.NewStock); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "product not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toProduct(row store.ProductRow) models.Product {
	p := models.Product{ID: row.ID, Name: row.Name, Price: row.Price}
	if row.ImageURL.Valid {
		p.ImageURL = row.ImageURL.String
	}
	return p
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// websocket upgrades need the raw writer for Hijack
		if r.URL.Path == "/notifications" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
