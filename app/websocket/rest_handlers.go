package websocket

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"YellowbellPOS/app/models"
	"YellowbellPOS/app/services"

	"github.com/go-chi/chi/v5"
)

// MaxBodyBytes caps request bodies
const MaxBodyBytes = 1 << 20

// SnapshotProvider serves the read side of the REST API
type SnapshotProvider interface {
	Snapshot(collection models.Collection) (interface{}, error)
	KitchenBoard() ([]services.KitchenGroup, error)
}

// POSActions are the till operations mobile clients reach over HTTP
type POSActions interface {
	PlaceOrder(req services.PlaceOrderRequest) (*models.CustomerOrder, error)
	DeleteOrder(orderID string) error
	ConfirmPrepared(items []services.CartLine, mealType string) (*models.PreparedOrder, error)
	ConvertToOrder(preparedID string, perItemQty []int, customerName string) (*models.SalesOrder, error)
	DeletePrepared(preparedID string) error
}

// RESTHandlers exposes collection snapshots, kitchen actions and till actions over HTTP
type RESTHandlers struct {
	snapshots SnapshotProvider
	actions   KitchenActions
	pos       POSActions
}

// NewRESTHandlers creates the REST handlers. actions may be nil for a read-only API;
// till routes are served when actions also implements POSActions.
func NewRESTHandlers(snapshots SnapshotProvider, actions KitchenActions) *RESTHandlers {
	h := &RESTHandlers{snapshots: snapshots, actions: actions}
	if pos, ok := actions.(POSActions); ok {
		h.pos = pos
	}
	return h
}

// RegisterRoutes mounts the API on r
func (h *RESTHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/inventory", h.collection(models.CollectionInventory))
	r.Get("/sales", h.collection(models.CollectionSalesOrders))
	r.Get("/notifications", h.collection(models.CollectionNotifications))

	r.Route("/kitchen", func(r chi.Router) {
		r.Get("/", h.collection(models.CollectionKitchenItems))
		r.Get("/board", h.HandleKitchenBoard)
		r.Post("/undo", h.HandleUndoCook)
		r.Post("/{id}/cook", h.HandleCook)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.collection(models.CollectionCustomerOrders))
		r.Post("/", h.HandlePlaceOrder)
		r.Delete("/{id}", h.HandleDeleteOrder)
		r.Post("/{id}/deliver", h.HandleDeliver)
		r.Post("/{id}/undeliver", h.HandleUndeliver)
	})

	r.Route("/prepared", func(r chi.Router) {
		r.Get("/", h.collection(models.CollectionPreparedOrders))
		r.Post("/", h.HandleConfirmPrepared)
		r.Post("/{id}/convert", h.HandleConvertPrepared)
		r.Delete("/{id}", h.HandleDeletePrepared)
	})
}

func (h *RESTHandlers) collection(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h.snapshots.Snapshot(c)
		if err != nil {
			log.Printf("REST: snapshot of %s failed: %v", c, err)
			writeError(w, http.StatusInternalServerError, "could not load "+string(c))
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

// HandleKitchenBoard returns the grouped kitchen board
func (h *RESTHandlers) HandleKitchenBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.snapshots.KitchenBoard()
	if err != nil {
		log.Printf("REST: kitchen board failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load kitchen board")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type quantityRequest struct {
	ItemName string `json:"item_name,omitempty"`
	Quantity int    `json:"quantity"`
}

// HandleCook marks units of a kitchen item cooked
func (h *RESTHandlers) HandleCook(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.act(w, func(a KitchenActions) error {
		return a.MarkItemAsCooked(chi.URLParam(r, "id"), req.Quantity)
	})
}

// HandleUndoCook takes back cooked units of an item
func (h *RESTHandlers) HandleUndoCook(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.act(w, func(a KitchenActions) error {
		return a.UndoCooked(req.ItemName, req.Quantity)
	})
}

// HandleDeliver confirms delivery of an order
func (h *RESTHandlers) HandleDeliver(w http.ResponseWriter, r *http.Request) {
	h.act(w, func(a KitchenActions) error {
		return a.MarkOrderAsDelivered(chi.URLParam(r, "id"))
	})
}

// HandleUndeliver reverts a delivery confirmation
func (h *RESTHandlers) HandleUndeliver(w http.ResponseWriter, r *http.Request) {
	h.act(w, func(a KitchenActions) error {
		return a.MarkOrderAsUndelivered(chi.URLParam(r, "id"))
	})
}

// HandlePlaceOrder places an order from a JSON cart
func (h *RESTHandlers) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req services.PlaceOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.till(w, func(p POSActions) (interface{}, error) {
		return p.PlaceOrder(req)
	})
}

// HandleDeleteOrder deletes an order and restores its stock
func (h *RESTHandlers) HandleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.till(w, func(p POSActions) (interface{}, error) {
		return nil, p.DeleteOrder(chi.URLParam(r, "id"))
	})
}

type confirmPreparedRequest struct {
	Items    []services.CartLine `json:"items"`
	MealType string              `json:"mealType,omitempty"`
}

// HandleConfirmPrepared takes a pre-cooked batch out of stock
func (h *RESTHandlers) HandleConfirmPrepared(w http.ResponseWriter, r *http.Request) {
	var req confirmPreparedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.till(w, func(p POSActions) (interface{}, error) {
		return p.ConfirmPrepared(req.Items, req.MealType)
	})
}

type convertPreparedRequest struct {
	Quantities   []int  `json:"quantities"`
	CustomerName string `json:"customerName,omitempty"`
}

// HandleConvertPrepared sells units from a prepared batch
func (h *RESTHandlers) HandleConvertPrepared(w http.ResponseWriter, r *http.Request) {
	var req convertPreparedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.till(w, func(p POSActions) (interface{}, error) {
		return p.ConvertToOrder(chi.URLParam(r, "id"), req.Quantities, req.CustomerName)
	})
}

// HandleDeletePrepared deletes a batch and returns its unsold units to stock
func (h *RESTHandlers) HandleDeletePrepared(w http.ResponseWriter, r *http.Request) {
	h.till(w, func(p POSActions) (interface{}, error) {
		return nil, p.DeletePrepared(chi.URLParam(r, "id"))
	})
}

// till runs a till action; a returned record is answered with 201, no record with 200
func (h *RESTHandlers) till(w http.ResponseWriter, fn func(POSActions) (interface{}, error)) {
	if h.pos == nil {
		writeError(w, http.StatusNotImplemented, "till actions are not available")
		return
	}
	record, err := fn(h.pos)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if record == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *RESTHandlers) act(w http.ResponseWriter, fn func(KitchenActions) error) {
	if h.actions == nil {
		writeError(w, http.StatusNotImplemented, "actions are not available")
		return
	}
	if err := fn(h.actions); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrExceedsRemaining):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("REST: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
