package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"bnpl-gateway/internal/domain"
	"bnpl-gateway/internal/usecase"
)

// handlePay bootstraps a payment attempt: issues the return nonce, mints
// and persists a fresh transaction reference and hands back the payload
// the checkout widget needs.
func (s *Server) handlePay(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.err(c, http.StatusBadRequest, "BadRequest", "order id must be numeric")
		return
	}
	order, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.err(c, http.StatusNotFound, "NotFound", "order not found")
			return
		}
		s.err(c, http.StatusInternalServerError, "ServerError", "cannot load order")
		return
	}
	nonce, err := s.nonces.Issue(id)
	if err != nil {
		s.err(c, http.StatusInternalServerError, "ServerError", "cannot issue nonce")
		return
	}
	redirectURL := fmt.Sprintf("%s/gateway/vida/return?order_id=%d&_wpnonce=%s",
		strings.TrimRight(s.cfg.PublicBaseURL, "/"), id, url.QueryEscape(nonce))
	args, err := s.builder.Build(c.Request.Context(), order, redirectURL)
	if err != nil {
		s.err(c, http.StatusInternalServerError, "ServerError", "cannot build payment request")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":       "success",
		"redirect":     redirectURL,
		"payment_args": args,
	})
}

// handleReturn is the browser-redirect verification path. Every branch
// terminates with an explicit redirect or error response.
func (s *Server) handleReturn(c *gin.Context) {
	ctx := c.Request.Context()
	s.metrics.ReturnRequests.Inc()

	ref := param(c, "reference")
	nonce := param(c, "_wpnonce")

	var orderID int64
	if ref != "" {
		if id, err := domain.ParseReference(ref); err == nil {
			orderID = id
		}
	}
	if orderID == 0 {
		if id, err := strconv.ParseInt(param(c, "order_id"), 10, 64); err == nil {
			orderID = id
		}
	}

	if nonce == "" || orderID == 0 || s.nonces.Verify(nonce, orderID) != nil {
		// Expired or forged session: never touch the engine.
		if orderID != 0 {
			if order, err := s.store.Get(ctx, orderID); err == nil {
				_ = s.store.AddNote(ctx, orderID, "Attention: Customer session expired. Customer should try again; the order is still pending payment.", false)
				s.redirect(c, withQuery(order.CancelURL, "refresh_totals", "1"))
				return
			}
		}
		s.redirect(c, "/")
		return
	}

	if ref == "" {
		order, err := s.store.Get(ctx, orderID)
		if err != nil {
			s.err(c, http.StatusBadRequest, "BadRequest", "unknown order")
			return
		}
		ref = order.Meta[usecase.MetaTxnRef]
		if ref == "" {
			s.err(c, http.StatusBadRequest, "BadRequest", "no transaction reference recorded for this order")
			return
		}
	}

	customerCancelled := param(c, "status") == "cancelled"
	outcome, err := s.reconciler.FromReturn(ctx, ref, customerCancelled)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedReference):
			s.err(c, http.StatusBadRequest, "BadRequest", "malformed transaction reference")
		case errors.Is(err, domain.ErrOrderNotFound):
			s.err(c, http.StatusBadRequest, "BadRequest", "unknown order")
		default:
			s.log.Error("return-flow reconciliation failed", "reference", ref, "err", err)
			s.err(c, http.StatusBadGateway, "UpstreamError", "could not reconcile payment")
		}
		return
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		s.redirect(c, "/")
		return
	}
	switch outcome {
	case usecase.OutcomeCancelled:
		s.redirect(c, firstNonEmpty(s.cfg.CartURL, order.CancelURL))
	case usecase.OutcomePendingRetry, usecase.OutcomeFailed:
		s.redirect(c, order.CheckoutURL)
	default:
		_ = s.carts.Empty(ctx, orderID)
		s.redirect(c, order.ReturnURL)
	}
}

type webhookTransaction struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type webhookEvent struct {
	Notify     string              `json:"notify"`
	NotifyType string              `json:"notifyType"`
	Data       *webhookTransaction `json:"data"`
}

// handleWebhook is the asynchronous push path.
func (s *Server) handleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	ip := clientIP(c.Request)
	if s.cfg.AllowedWebhookIP == "" || ip != s.cfg.AllowedWebhookIP {
		s.log.Warn("fraudulent webhook notification attempt, access restricted", "remote_ip", ip)
		s.metrics.WebhookRequests.WithLabelValues("unauthorized").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Unauthorized Access (Restriction)"})
		return
	}

	var evt webhookEvent
	if err := c.ShouldBindJSON(&evt); err != nil || (evt.Notify == "" && evt.Data == nil) {
		s.metrics.WebhookRequests.WithLabelValues("malformed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Webhook sent is deformed. missing data object."})
		return
	}

	switch evt.Notify {
	case "test_assess":
		s.metrics.WebhookRequests.WithLabelValues("test").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Webhook Test Successful. handler is accessible"})

	case "transaction":
		// Let any in-flight return-flow verification settle first; the
		// per-order lock in the engine closes the remaining race.
		s.pause(s.settleDelay)

		if evt.Data == nil || !strings.HasPrefix(evt.Data.Reference, domain.ReferencePrefix) {
			ref := ""
			if evt.Data != nil {
				ref = evt.Data.Reference
			}
			s.metrics.WebhookRequests.WithLabelValues("bad_reference").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "The transaction reference " + ref + " is not a Vida WooCommerce Generated transaction"})
			return
		}

		outcome, err := s.reconciler.FromWebhook(ctx, evt.Data.Reference)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrMalformedReference):
				s.metrics.WebhookRequests.WithLabelValues("bad_reference").Inc()
				c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "The transaction reference " + evt.Data.Reference + " is not a Vida WooCommerce Generated transaction"})
			case errors.Is(err, domain.ErrOrderNotFound):
				s.metrics.WebhookRequests.WithLabelValues("unknown_order").Inc()
				c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "message": "This transaction does not exist."})
			default:
				s.log.Error("webhook reconciliation failed", "reference", evt.Data.Reference, "err", err)
				s.metrics.WebhookRequests.WithLabelValues("error").Inc()
				c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "could not reconcile payment"})
			}
			return
		}
		if outcome == usecase.OutcomeAlreadyProcessed {
			s.metrics.WebhookRequests.WithLabelValues("already_processed").Inc()
			c.JSON(http.StatusCreated, gin.H{"status": "error", "message": "Order already processed"})
			return
		}
		s.metrics.WebhookRequests.WithLabelValues("processed").Inc()
		c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Order Processed Successfully"})

	default:
		s.metrics.WebhookRequests.WithLabelValues("unknown_notify").Inc()
		c.JSON(http.StatusCreated, gin.H{"status": "failed", "message": "Unable to Processed Successfully"})
	}
}

func (s *Server) redirect(c *gin.Context, target string) {
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
}

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": msg,
		},
	})
}

func withQuery(target, key, value string) string {
	if target == "" {
		return "/?" + key + "=" + url.QueryEscape(value)
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + key + "=" + url.QueryEscape(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
