package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/application"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
	"github.com/DimaJoyti/go-coffee/pkg/monitoring"
)

// startHTTPServer exposes the orchestration core's admission, transition,
// and rebalance operations over a small REST surface. It is not the
// system's customer-facing API (that lives upstream of this core); it is
// the operational surface the Lifecycle Controller and Queue Sequencer are
// driven through.
func startHTTPServer(port int, lifecycleService application.LifecycleService, queueService application.QueueService, metrics *monitoring.PrometheusMetrics, log *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName, "timestamp": time.Now().UTC()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		orders.POST("/:id/transitions", transitionHandler(lifecycleService, log))

		queues := v1.Group("/queues")
		queues.POST("/:queueId/items", admitHandler(queueService, log))
		queues.POST("/:queueId/rebalance", rebalanceHandler(queueService, log))
		queues.POST("/items/:itemId/move", moveHandler(queueService, log))
		queues.POST("/items/:itemId/hold", holdHandler(queueService, log))
		queues.POST("/items/:itemId/release", releaseHandler(queueService, log))
		queues.POST("/items/:itemId/expedite", expediteHandler(queueService, log))
	}

	handler := metrics.MetricsMiddleware(serviceName)(router)
	server := &http.Server{Addr: mustAddr(port), Handler: handler}
	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()
	return server
}

func mustAddr(port int) string {
	if port <= 0 {
		port = 8090
	}
	return ":" + itoa(port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

type transitionRequest struct {
	NewStatus domain.OrderStatus `json:"new_status" binding:"required"`
	ActorID   string             `json:"actor_id" binding:"required"`
	Reason    string             `json:"reason"`
}

func transitionHandler(svc application.LifecycleService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")
		var req transitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := svc.Transition(c.Request.Context(), orderID, req.NewStatus, req.ActorID, req.Reason)
		if err != nil {
			log.WithError(err).WithField("order_id", orderID).Error("transition failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order":           result.Order.ToDTO(),
			"pricing_applied": result.PricingApplied,
			"deducted":        result.Deducted,
			"reversed":        result.Reversed,
		})
	}
}

type admitRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

func admitHandler(svc application.QueueService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		queueID := c.Param("queueId")
		var req admitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := svc.Admit(c.Request.Context(), queueID, req.OrderID, application.AdmitHints{})
		if err != nil {
			log.WithError(err).WithField("queue_id", queueID).Error("admit failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, queueItemDTO(item))
	}
}

func rebalanceHandler(svc application.QueueService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		queueID := c.Param("queueId")
		force := c.Query("force") == "true"
		result, err := svc.Rebalance(c.Request.Context(), queueID, force)
		if err != nil {
			log.WithError(err).WithField("queue_id", queueID).Error("rebalance failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type moveRequest struct {
	NewPosition int    `json:"new_position" binding:"required"`
	Reason      string `json:"reason"`
}

func moveHandler(svc application.QueueService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID := c.Param("itemId")
		var req moveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.Move(c.Request.Context(), itemID, req.NewPosition, req.Reason); err != nil {
			log.WithError(err).WithField("item_id", itemID).Error("move failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "moved"})
	}
}

type holdRequest struct {
	Until  time.Time `json:"until" binding:"required"`
	Reason string    `json:"reason"`
}

func holdHandler(svc application.QueueService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID := c.Param("itemId")
		var req holdRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.Hold(c.Request.Context(), itemID, req.Until, req.Reason); err != nil {
			log.WithError(err).WithField("item_id", itemID).Error("hold failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "held"})
	}
}

func releaseHandler(svc application.QueueService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID := c.Param("itemId")
		if err := svc.ReleaseHold(c.Request.Context(), itemID); err != nil {
			log.WithError(err).WithField("item_id", itemID).Error("release failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "released"})
	}
}

type expediteRequest struct {
	PriorityBoost float64 `json:"priority_boost" binding:"required"`
	MoveToFront   bool    `json:"move_to_front"`
	Reason        string  `json:"reason"`
}

func expediteHandler(svc application.QueueService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID := c.Param("itemId")
		var req expediteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := svc.Expedite(c.Request.Context(), itemID, req.PriorityBoost, req.MoveToFront, req.Reason)
		if err != nil {
			log.WithError(err).WithField("item_id", itemID).Error("expedite failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, queueItemDTO(item))
	}
}

// queueItemDTO projects a QueueItem's private fields into a JSON-friendly
// shape; QueueItem itself exposes no exported fields for the encoder.
func queueItemDTO(item *domain.QueueItem) gin.H {
	return gin.H{
		"id":              item.ID(),
		"queue_id":        item.QueueID(),
		"order_id":        item.OrderID(),
		"sequence_number": item.SequenceNumber(),
		"priority":        item.Priority(),
		"expedited":       item.Expedited(),
		"status":          item.Status(),
		"queued_at":       item.QueuedAt(),
		"started_at":      item.StartedAt(),
		"ready_at":        item.ReadyAt(),
		"completed_at":    item.CompletedAt(),
		"hold_until":      item.HoldUntil(),
	}
}
