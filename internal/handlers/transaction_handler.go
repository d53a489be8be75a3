package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
	"stashsmart/internal/services"
)

// TransactionHandler handles transaction-related requests. Every write goes
// through the transaction workflow.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	workflow           services.TransactionWorkflow
	insights           services.InsightServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	workflow services.TransactionWorkflow,
	insights services.InsightServicer,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		workflow:           workflow,
		insights:           insights,
	}
}

// TransactionRequest is the payload for creating or replacing a transaction.
type TransactionRequest struct {
	AccountID       string                 `json:"account_id" binding:"required,uuid"`
	CategoryID      string                 `json:"category_id" binding:"required,uuid"`
	Type            models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount          decimal.Decimal        `json:"amount" binding:"required,gt=0"`
	Description     string                 `json:"description" binding:"max=255"`
	TransactionDate string                 `json:"transaction_date"`
	PaymentMethod   models.PaymentMethod   `json:"payment_method" binding:"omitempty,payment_method"`
	ReferenceNumber string                 `json:"reference_number" binding:"max=100"`
	Notes           string                 `json:"notes" binding:"max=1000"`
	ReceiptPath     string                 `json:"receipt_path" binding:"max=255"`
	Tags            []string               `json:"tags" binding:"max=20,dive,min=1,max=50"`
}

// TransactionListQuery holds the transaction list filters.
type TransactionListQuery struct {
	Type       string `form:"type" binding:"omitempty,transaction_type"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	AccountID  string `form:"account_id" binding:"omitempty,uuid"`
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	Search     string `form:"search" binding:"max=100"`
}

// AnalyticsRequest holds the spending analytics range.
type AnalyticsRequest struct {
	Period   string `form:"period" binding:"omitempty,oneof=week month year custom"`
	FromDate string `form:"from_date"`
	ToDate   string `form:"to_date"`
}

func (r TransactionRequest) toInput() (services.CreateTransactionInput, error) {
	var date time.Time
	if r.TransactionDate != "" {
		parsed, err := parseDate("transaction_date", r.TransactionDate)
		if err != nil {
			return services.CreateTransactionInput{}, err
		}
		date = parsed
	}

	method := r.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCash
	}

	return services.CreateTransactionInput{
		AccountID:       r.AccountID,
		CategoryID:      r.CategoryID,
		Type:            r.Type,
		Amount:          r.Amount,
		Description:     r.Description,
		TransactionDate: date,
		PaymentMethod:   method,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		ReceiptPath:     r.ReceiptPath,
		Tags:            r.Tags,
	}, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create transaction
// @Description Record a transaction and update the account balance, budgets, goals and activity log in one unit of work
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} services.TransactionRecord "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Account or category belongs to another user"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.workflow.CreateTransaction(c.Request.Context(), userID, input, requestMeta(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetUserTransactions handles the retrieval of transactions for a user
// @Summary     List transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Param       type        query string false "income, expense or transfer"
// @Param       category_id query string false "Category ID"
// @Param       account_id  query string false "Account ID"
// @Param       from_date   query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date     query string false "Latest date, inclusive (YYYY-MM-DD)"
// @Param       search      query string false "Text in description or notes"
// @Success     200 {object} pagination.PageResponse[services.TransactionRecord] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var query TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (q TransactionListQuery) toFilter() (services.TransactionFilter, error) {
	filter := services.TransactionFilter{Search: q.Search}

	from, err := parseOptionalDate("from_date", &q.FromDate)
	if err != nil {
		return filter, err
	}
	filter.FromDate = from

	to, err := parseOptionalDate("to_date", &q.ToDate)
	if err != nil {
		return filter, err
	}
	if to != nil && len(q.ToDate) == len(dateLayout) {
		// A bare date covers the whole day.
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	filter.ToDate = to

	if q.Type != "" {
		t := models.TransactionType(q.Type)
		filter.Type = &t
	}
	if q.CategoryID != "" {
		filter.CategoryID = &q.CategoryID
	}
	if q.AccountID != "" {
		filter.AccountID = &q.AccountID
	}
	return filter, nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} services.TransactionRecord "Transaction details"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction replaces a transaction and moves balances accordingly
// @Summary     Update transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Transaction ID"
// @Param       request body TransactionRequest true "Replacement transaction details"
// @Success     200 {object} services.TransactionRecord "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Transaction belongs to another user"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.workflow.UpdateTransaction(c.Request.Context(), userID, transactionID, input, requestMeta(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction removes a transaction and reverses its balance effect
// @Summary     Delete transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "No Content"
// @Failure     403 {object} ErrorResponse "Transaction belongs to another user"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.workflow.DeleteTransaction(c.Request.Context(), userID, transactionID, requestMeta(c)); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSpendingAnalytics aggregates spending by category and month
// @Summary     Spending analytics
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       period    query string false "week, month (default), year or custom"
// @Param       from_date query string false "Custom range start (YYYY-MM-DD)"
// @Param       to_date   query string false "Custom range end, inclusive (YYYY-MM-DD)"
// @Success     200 {object} services.SpendingAnalytics "Analytics"
// @Failure     400 {object} ErrorResponse "Invalid range"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions/analytics [get]
func (h *TransactionHandler) GetSpendingAnalytics(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	query := services.AnalyticsQuery{Period: services.AnalyticsPeriod(req.Period)}
	if query.From, err = parseOptionalDate("from_date", &req.FromDate); err != nil {
		respondWithError(c, err)
		return
	}
	if query.To, err = parseOptionalDate("to_date", &req.ToDate); err != nil {
		respondWithError(c, err)
		return
	}

	analytics, err := h.insights.GetSpendingAnalytics(c.Request.Context(), userID, query)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analytics": analytics})
}
