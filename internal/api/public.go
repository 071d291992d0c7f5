package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"storefront-service/internal/media"
	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.svc.Catalog.ListProducts(c.Request.Context(), models.ProductFilter{
		Category: models.Category(c.Query("category")),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]models.Product, len(products))
	for i, p := range products {
		out[i] = p.Redacted()
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *Handler) getProduct(c *gin.Context) {
	p, err := h.svc.Catalog.GetProduct(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.Redacted())
}

func (h *Handler) createCart(c *gin.Context) {
	cart, err := h.svc.Carts.CreateCart(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, redactCart(cart))
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.svc.Carts.GetCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redactCart(cart))
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req service.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.svc.Carts.AddItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redactCart(cart))
}

func (h *Handler) setCartQuantity(c *gin.Context) {
	var req service.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := h.svc.Carts.SetQuantity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, redactCart(cart))
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.svc.Carts.ClearCart(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func redactCart(cart *models.Cart) models.Cart {
	out := *cart
	out.Items = cart.Items.Redacted()
	return out
}

func (h *Handler) startCheckout(c *gin.Context) {
	var req struct {
		CartID string `json:"cart_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.svc.Checkout.StartCheckout(c.Request.Context(), req.CartID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session.Redacted())
}

func (h *Handler) getCheckout(c *gin.Context) {
	session, err := h.svc.Checkout.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Redacted())
}

func (h *Handler) submitDetails(c *gin.Context) {
	var details models.CustomerDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.svc.Checkout.SubmitDetails(c.Request.Context(), c.Param("id"), details)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Redacted())
}

func (h *Handler) chooseMethod(c *gin.Context) {
	var req struct {
		PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.Checkout.ChooseMethod(c.Request.Context(), c.Param("id"), req.PaymentMethod)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCheckout(c, res)
}

// submitPayment takes multipart form fields transaction_id and screenshot
func (h *Handler) submitPayment(c *gin.Context) {
	shot, err := readScreenshot(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.svc.Checkout.SubmitPayment(c.Request.Context(), c.Param("id"), c.PostForm("transaction_id"), shot)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCheckout(c, res)
}

func (h *Handler) respondCheckout(c *gin.Context, res *service.CheckoutResult) {
	session := res.Session.Redacted()
	body := gin.H{"session": session}
	status := http.StatusOK
	if res.Order != nil {
		body["order"] = res.Order.Redacted()
		status = http.StatusCreated
	}
	c.JSON(status, body)
}

func (h *Handler) trackOrder(c *gin.Context) {
	order, err := h.svc.Orders.TrackOrder(c.Request.Context(), c.Param("id"), c.Query("phone"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// resubmitPayment takes multipart form fields phone, transaction_id and screenshot
func (h *Handler) resubmitPayment(c *gin.Context) {
	shot, err := readScreenshot(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	req, err := h.svc.Verifications.ResubmitPayment(c.Request.Context(),
		c.Param("id"), c.PostForm("phone"), c.PostForm("transaction_id"), shot)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) listPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.svc.Verifications.Plans()})
}

// submitSubscription accepts JSON, or a multipart form with an optional screenshot
func (h *Handler) submitSubscription(c *gin.Context) {
	var in service.SubscriptionRequest
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, err)
		return
	}
	shot, err := readScreenshot(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	req, err := h.svc.Verifications.SubmitSubscription(c.Request.Context(), in, shot)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) createTicket(c *gin.Context) {
	var req service.TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ticket, err := h.svc.Tickets.CreateTicket(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.svc.Accounts.GetProfile(c.Request.Context(), c.Param("phone"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in service.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.svc.Accounts.UpdateProfile(c.Request.Context(), c.Param("phone"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) deleteAccount(c *gin.Context) {
	var req struct {
		ConfirmPhone string `json:"confirm_phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Accounts.DeleteAccount(c.Request.Context(), c.Param("phone"), req.ConfirmPhone)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": result})
}

func (h *Handler) premiumDelivery(c *gin.Context) {
	link, err := h.svc.Accounts.PremiumDelivery(c.Request.Context(), c.Param("phone"), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_link": link})
}

// readScreenshot loads the optional screenshot form file. A request without
// one yields nil; the service decides whether it was required.
func readScreenshot(c *gin.Context) (*service.Screenshot, error) {
	fh, err := c.FormFile("screenshot")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewValidationError("screenshot", "could not be read")
	}
	if fh.Size > media.MaxScreenshotBytes {
		return nil, models.NewValidationError("screenshot", fmt.Sprintf("must be at most %d MB", media.MaxScreenshotBytes>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("screenshot", "could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, media.MaxScreenshotBytes+1))
	if err != nil {
		return nil, models.NewValidationError("screenshot", "could not be read")
	}
	if len(data) > media.MaxScreenshotBytes {
		return nil, models.NewValidationError("screenshot", fmt.Sprintf("must be at most %d MB", media.MaxScreenshotBytes>>20))
	}

	contentType := fh.Header.Get("Content-Type")
	if !media.AllowedType(contentType) {
		contentType = http.DetectContentType(data)
	}
	if !media.AllowedType(contentType) {
		return nil, models.NewValidationError("screenshot", "must be a JPEG, PNG or WebP image")
	}
	return &service.Screenshot{ContentType: contentType, Data: data}, nil
}
