package domain

import (
	"github.com/DimaJoyti/go-coffee/pkg/errors"
)

// Closed set of error codes the Order Orchestration Core surfaces to
// callers. Every component-level error goes through one of these
// constructors instead of a bare fmt.Errorf so callers can branch on
// .Code without parsing messages.
const (
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeAlreadySynced         = "ALREADY_SYNCED"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeQueueFull             = "QUEUE_FULL"
	CodeDuplicateOrder        = "DUPLICATE_ORDER"
	CodeRuleEvalError         = "RULE_EVAL_ERROR"
	CodeInvalidConditions     = "INVALID_CONDITIONS"
	CodeNotFound              = "NOT_FOUND"
	CodePermissionDenied      = "PERMISSION_DENIED"
	CodeTimeout               = "TIMEOUT"
)

// ShortageDetail describes a single ingredient shortfall, attached as
// context to an INSUFFICIENT_INVENTORY error.
type ShortageDetail struct {
	InventoryID string  `json:"inventory_id"`
	Required    string  `json:"required"`
	Available   string  `json:"available"`
}

// ErrInsufficientInventory builds a structured shortage error.
func ErrInsufficientInventory(shortages []ShortageDetail) *errors.AppError {
	return errors.New("insufficient inventory to fulfill order").
		WithCode(CodeInsufficientInventory).
		WithContext("shortages", shortages)
}

// ErrAlreadySynced signals a reversal was refused because the original
// adjustment was already synced to an external system.
func ErrAlreadySynced(orderID string) *errors.AppError {
	return errors.New("adjustments for order already synced to external system").
		WithCode(CodeAlreadySynced).
		WithContext("order_id", orderID)
}

// ErrInvalidTransition signals a status change outside the allowed DAG.
func ErrInvalidTransition(from, to string) *errors.AppError {
	return errors.New("invalid status transition").
		WithCode(CodeInvalidTransition).
		WithContext("from", from).
		WithContext("to", to)
}

// ErrQueueFull signals a queue has reached its configured capacity.
func ErrQueueFull(queueID string) *errors.AppError {
	return errors.New("queue is at capacity").
		WithCode(CodeQueueFull).
		WithContext("queue_id", queueID)
}

// ErrDuplicateOrder signals an order is already present in a live queue item.
func ErrDuplicateOrder(orderID string) *errors.AppError {
	return errors.New("order already present in an active queue").
		WithCode(CodeDuplicateOrder).
		WithContext("order_id", orderID)
}

// ErrRuleEvalError wraps a rule evaluation failure, non-fatal to the batch.
func ErrRuleEvalError(ruleID string, cause error) *errors.AppError {
	return errors.Wrap(cause, "rule evaluation failed").
		WithCode(CodeRuleEvalError).
		WithContext("rule_id", ruleID)
}

// ErrInvalidConditions signals a rule's conditions document failed schema
// validation.
func ErrInvalidConditions(reason string) *errors.AppError {
	return errors.New("invalid rule conditions: " + reason).
		WithCode(CodeInvalidConditions)
}

// ErrNotFound signals a missing entity.
func ErrNotFound(kind, id string) *errors.AppError {
	return errors.New(kind + " not found").
		WithCode(CodeNotFound).
		WithContext("id", id)
}

// ErrPermissionDenied signals an authorization refusal.
func ErrPermissionDenied(action string) *errors.AppError {
	return errors.New("permission denied: " + action).
		WithCode(CodePermissionDenied)
}

// ErrTimeout signals a deadline was exceeded.
func ErrTimeout(operation string) *errors.AppError {
	return errors.New("operation timed out: " + operation).
		WithCode(CodeTimeout)
}
