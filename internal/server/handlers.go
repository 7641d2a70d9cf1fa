package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/treehouse/treehouse/internal/notify"
	"github.com/treehouse/treehouse/internal/registry"
	"github.com/treehouse/treehouse/internal/schedule"
)

type signupBody struct {
	PhoneNumber    string     `json:"phone_number"`
	DormBuilding   string     `json:"dorm_building"`
	SMSConsent     bool       `json:"sms_consent"`
	OptInTimestamp *time.Time `json:"opt_in_timestamp"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	RoomNumber     string     `json:"room_number"`
}

type windowResponse struct {
	schedule.WindowState
	Countdown string `json:"countdown"`
	Accepting bool   `json:"accepting"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSignup(c *gin.Context) {
	var body signupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	user, created, err := s.reg.Signup(registry.SignupRequest{
		PhoneNumber:    body.PhoneNumber,
		Name:           body.Name,
		Email:          body.Email,
		DormBuilding:   body.DormBuilding,
		RoomNumber:     body.RoomNumber,
		SMSConsent:     body.SMSConsent,
		OptInTimestamp: body.OptInTimestamp,
	})
	if errors.Is(err, registry.ErrPhoneRequired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("signup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.Info().Int64("user_id", user.ID).Bool("created", created).Msg("signup")
	if created && s.notifier != nil {
		event := notify.Event{
			Type:         notify.EventSignup,
			Message:      "new signup",
			Status:       "success",
			PhoneNumber:  user.PhoneNumber,
			DormBuilding: user.DormBuilding,
			StartedAt:    user.CreatedAt,
			EndedAt:      user.CreatedAt,
		}
		if err := s.notifier.Notify(c.Request.Context(), event); err != nil {
			s.log.Warn().Err(err).Msg("signup notification failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sign-up successful!",
		"user_id": user.ID,
	})
}

func (s *Server) handleMenus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"menus": s.reg.Menus()})
}

func (s *Server) handleMenuItems(c *gin.Context) {
	var menuID int64
	if raw := c.Query("restaurant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "restaurant_id must be an integer"})
			return
		}
		menuID = id
	}
	c.JSON(http.StatusOK, gin.H{"menu_items": s.reg.MenuItems(menuID)})
}

func (s *Server) handleInitSampleData(c *gin.Context) {
	s.reg.SeedSampleData()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Sample data initialized successfully!",
	})
}

func (s *Server) handleWindow(c *gin.Context) {
	at := s.now()
	c.JSON(http.StatusOK, s.describe(at, s.sched.Compute(at)))
}

func (s *Server) handleHotSpots(c *gin.Context) {
	if s.board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "hot spots are disabled"})
		return
	}
	s.boardMu.Lock()
	view := s.board.View(s.cfg.HotSpots.MaxBatchSize)
	s.boardMu.Unlock()
	c.JSON(http.StatusOK, view)
}

// describe decorates state, which must have been computed at at.
func (s *Server) describe(at time.Time, state schedule.WindowState) windowResponse {
	_, _, accepting := s.sched.Accepting(at)
	return windowResponse{WindowState: state, Countdown: state.Countdown(), Accepting: accepting}
}

type orderLineBody struct {
	MenuItemID          int64  `json:"menu_item_id"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"special_instructions"`
}

type orderBody struct {
	UserID      int64            `json:"user_id"`
	Items       []orderLineBody  `json:"items"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee"`
}

// handlePlaceOrder attaches the order to the delivery batch of the window it
// was placed in, or of the next window once the cutoff has passed.
func (s *Server) handlePlaceOrder(c *gin.Context) {
	var body orderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	at := s.now()
	slot, ok := s.sched.DeliverySlot(at)
	if !ok {
		state := s.sched.Compute(at)
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Ordering is closed. Orders open at " + state.DisplayLabel,
			"next_open": state.WindowStart,
			"countdown": state.Countdown(),
		})
		return
	}

	req := registry.OrderRequest{UserID: body.UserID, DeliveryFee: body.DeliveryFee, ScheduledTime: slot}
	for _, line := range body.Items {
		req.Items = append(req.Items, registry.OrderLine{
			MenuItemID:          line.MenuItemID,
			Quantity:            line.Quantity,
			SpecialInstructions: line.SpecialInstructions,
		})
	}
	order, err := s.reg.PlaceOrder(req)
	switch {
	case errors.Is(err, registry.ErrOrderIncomplete):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID and items are required"})
		return
	case errors.Is(err, registry.ErrInvalidQuantity), errors.Is(err, registry.ErrInvalidFee):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, registry.ErrUserNotFound), errors.Is(err, registry.ErrMenuItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.log.Error().Err(err).Msg("place order failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.Info().Int64("order_id", order.ID).Int64("batch_id", order.BatchID).Str("total", order.TotalAmount.StringFixed(2)).Msg("order placed")
	if s.notifier != nil {
		event := notify.Event{
			Type:      notify.EventOrder,
			Message:   "new order",
			Status:    "success",
			OrderID:   order.ID,
			Amount:    order.TotalAmount.StringFixed(2),
			StartedAt: order.CreatedAt,
			EndedAt:   order.CreatedAt,
		}
		if detail, err := s.reg.Order(order.ID); err == nil {
			event.PhoneNumber = detail.User.PhoneNumber
			event.DormBuilding = detail.User.DormBuilding
		}
		if err := s.notifier.Notify(c.Request.Context(), event); err != nil {
			s.log.Warn().Err(err).Msg("order notification failed")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":                 true,
		"message":                 "Order created successfully!",
		"order_id":                order.ID,
		"total_amount":            order.TotalAmount,
		"delivery_batch_id":       order.BatchID,
		"scheduled_delivery_time": order.ScheduledDeliveryTime,
	})
}

func (s *Server) handleOrders(c *gin.Context) {
	var userID int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be an integer"})
			return
		}
		userID = id
	}
	c.JSON(http.StatusOK, gin.H{"orders": s.reg.Orders(userID)})
}

func (s *Server) handleOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id must be an integer"})
		return
	}
	detail, err := s.reg.Order(id)
	if errors.Is(err, registry.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// handleDeliveryBatches filters by ?date=YYYY-MM-DD in the schedule's timezone and ?status.
func (s *Server) handleDeliveryBatches(c *gin.Context) {
	filter := registry.BatchFilter{Status: c.Query("status")}
	if raw := c.Query("date"); raw != "" {
		loc := s.sched.Policy().Location
		if loc == nil {
			loc = s.now().Location()
		}
		day, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		filter.On = day
	}
	c.JSON(http.StatusOK, gin.H{"delivery_batches": s.reg.DeliveryBatches(filter)})
}
