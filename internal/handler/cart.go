package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/service"
)

// CartResponse is the body of every cart endpoint. TotalPrice is rendered
// with two decimals, e.g. "10.00".
type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice string            `json:"total_price"`
	Loading    bool              `json:"loading"`
}

// AddCartItemRequest is the body of POST /cart/items.
type AddCartItemRequest struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	ImageURL  string `json:"image"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/{productID}.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart handles GET /cart.
func (s *Server) GetCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cartToResponse(s.cart.Snapshot()))
}

// AddCartItem handles POST /cart/items.
// Adding a product already in the cart increments its quantity.
func (s *Server) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var body AddCartItemRequest
	if !decodeBody(w, r, &body) {
		return
	}

	snap, err := s.cart.AddItem(domain.CartItem{
		ProductID: body.ProductID,
		Name:      body.Name,
		Price:     body.Price,
		ImageURL:  body.ImageURL,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, cartToResponse(snap))
}

// UpdateCartItem handles PUT /cart/items/{productID}.
// A quantity of zero or less removes the line.
func (s *Server) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := bindProductID(w, r)
	if !ok {
		return
	}

	var body UpdateCartItemRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Quantity == nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("quantity is required"))
		return
	}

	snap, err := s.cart.UpdateQuantity(productID, *body.Quantity)
	if err != nil {
		s.writeServiceError(w, r, err, "product not in cart")
		return
	}
	writeJSON(w, http.StatusOK, cartToResponse(snap))
}

// RemoveCartItem handles DELETE /cart/items/{productID}. Removing an absent
// product succeeds.
func (s *Server) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := bindProductID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cartToResponse(s.cart.RemoveItem(productID)))
}

// ClearCart handles DELETE /cart.
func (s *Server) ClearCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cartToResponse(s.cart.ClearCart()))
}

func bindProductID(w http.ResponseWriter, r *http.Request) (int, bool) {
	var productID int
	err := runtime.BindStyledParameterWithOptions("simple", "productID", chi.URLParam(r, "productID"), &productID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("product id must be an integer"))
		return 0, false
	}
	return productID, true
}

func cartToResponse(snap service.CartSnapshot) CartResponse {
	return CartResponse{
		Items:      snap.Items,
		TotalItems: snap.TotalItems,
		TotalPrice: snap.TotalPrice.StringFixed(2),
		Loading:    snap.Loading,
	}
}
