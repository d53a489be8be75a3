package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
)

// transactionService handles transaction reads and the persist step of the
// transaction workflow.
type transactionService struct {
	db       *gorm.DB
	balances BalanceMaintainer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, balances BalanceMaintainer) TransactionServicer {
	return &transactionService{
		db:       db,
		balances: balances,
	}
}

// CreateWithDB inserts a transaction row and applies its balance effect using
// the given unit of work.
func (s *transactionService) CreateWithDB(tx *gorm.DB, userID string, input CreateTransactionInput) (*models.Transaction, error) {
	transaction := &models.Transaction{UserID: userID}
	applyTransactionInput(transaction, input)

	if err := tx.Omit(clause.Associations).Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.balances.ApplyCreate(tx, transaction); err != nil {
		return nil, err
	}

	return transaction, nil
}

// applyTransactionInput copies the writable fields onto a transaction.
func applyTransactionInput(t *models.Transaction, input CreateTransactionInput) {
	date := input.TransactionDate
	if date.IsZero() {
		date = time.Now()
	}

	t.AccountID = input.AccountID
	t.CategoryID = input.CategoryID
	t.Type = input.Type
	t.Amount = input.Amount
	t.Description = strings.TrimSpace(input.Description)
	t.TransactionDate = date.UTC()
	t.PaymentMethod = input.PaymentMethod
	t.ReferenceNumber = input.ReferenceNumber
	t.Notes = input.Notes
	t.ReceiptPath = input.ReceiptPath
	t.Tags = models.Tags(input.Tags)
}

// withDisplayRelations preloads category and account even when either has
// since been soft deleted.
func withDisplayRelations(q *gorm.DB) *gorm.DB {
	unscoped := func(db *gorm.DB) *gorm.DB { return db.Unscoped() }
	return q.Preload("Category", unscoped).Preload("Account", unscoped)
}

func newTransactionRecord(t models.Transaction) TransactionRecord {
	rec := TransactionRecord{Transaction: t}
	if t.Category != nil {
		rec.CategoryName = t.Category.Name
		rec.CategoryColor = t.Category.Color
		rec.CategoryIcon = t.Category.Icon
	}
	if t.Account != nil {
		rec.AccountName = t.Account.Name
	}
	return rec
}

// GetRecordWithDB loads a transaction with its display fields using the given connection.
func (s *transactionService) GetRecordWithDB(tx *gorm.DB, userID, transactionID string) (*TransactionRecord, error) {
	var transaction models.Transaction
	if err := withDisplayRelations(tx).
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	rec := newTransactionRecord(transaction)
	return &rec, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*TransactionRecord, error) {
	return s.GetRecordWithDB(s.db, userID, transactionID)
}

// GetUserTransactions retrieves a paginated, filtered list of a user's
// transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[TransactionRecord], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := withDisplayRelations(base).
		Scopes(pagination.Paginate(page)).
		Order("transaction_date DESC").
		Order("created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	records := make([]TransactionRecord, 0, len(transactions))
	for _, t := range transactions {
		records = append(records, newTransactionRecord(t))
	}

	result := pagination.NewPageResponse(records, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("transaction_date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("transaction_date <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where("description LIKE ? OR notes LIKE ?", like, like)
	}
	return q
}
