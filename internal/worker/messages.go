package worker

import (
	"github.com/dvloznov/ledgr/internal/apperr"
	"github.com/dvloznov/ledgr/internal/domain"
	"github.com/dvloznov/ledgr/internal/parser"
)

// Request is the closed set of operations the worker accepts. Only types in
// this package implement it.
type Request interface {
	// Type names the operation on the wire and in responses.
	Type() string
	isRequest()
}

// Response answers the request with the same ID.
type Response struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload any             `json:"payload,omitempty"`
	Error   *apperr.Payload `json:"error,omitempty"`
}

// InitRequest seeds the ledger on first use.
type InitRequest struct{}

// CloseRequest stops the worker after it has replied.
type CloseRequest struct{}

// ImportFilesRequest imports statement files into one account.
type ImportFilesRequest struct {
	AccountID int64
	Files     []parser.File
}

// ImportHistoryRequest lists past import jobs, optionally for one account.
type ImportHistoryRequest struct {
	AccountID int64
	Limit     int
}

// GetTransactionsRequest returns the first page of a filtered view together
// with the cash flow of the whole view.
type GetTransactionsRequest struct {
	Filters domain.Filters
	Offset  int
	Limit   int
}

// FetchMoreTransactionsRequest returns a further page of a filtered view.
type FetchMoreTransactionsRequest struct {
	Filters domain.Filters
	Offset  int
	Limit   int
}

// UpdateTransactionRequest merges a patch into one transaction.
type UpdateTransactionRequest struct {
	ID    string
	Patch domain.TransactionPatch
}

// DeleteTransactionRequest removes one transaction.
type DeleteTransactionRequest struct {
	ID string
}

// GetAllAccountsRequest lists accounts.
type GetAllAccountsRequest struct{}

// CreateAccountRequest registers an account.
type CreateAccountRequest struct {
	Account domain.Account
}

// GetStatsRequest returns the cached cash-flow stats.
type GetStatsRequest struct{}

// ComputeStatsRequest recomputes the cash-flow stats.
type ComputeStatsRequest struct{}

// TagTransactionRequest sets the category of one transaction.
type TagTransactionRequest struct {
	ID       string
	Category string
}

// TagTransactionsRequest sets the category of many transactions, chosen
// either by explicit IDs or, when IDs is empty, by Filters.
type TagTransactionsRequest struct {
	Filters  domain.Filters
	IDs      []string
	Category string
}

// GetUntaggedGroupsRequest clusters the untagged backlog.
type GetUntaggedGroupsRequest struct {
	Limit int
}

// GetAllCategoriesRequest lists categories.
type GetAllCategoriesRequest struct{}

// AddCategoryRequest creates a category.
type AddCategoryRequest struct {
	Category domain.Category
}

// UpdateCategoryRequest merges a patch into one category.
type UpdateCategoryRequest struct {
	ID    int64
	Patch domain.CategoryPatch
}

// DeleteCategoryRequest removes a category and retags its transactions.
type DeleteCategoryRequest struct {
	ID int64
}

// LoadSnapshotRequest replaces the ledger with a downloaded snapshot.
type LoadSnapshotRequest struct {
	Snapshot domain.Snapshot
}

// ExportSnapshotRequest captures the ledger for upload.
type ExportSnapshotRequest struct{}

// GetMetadataRequest reads the version and the last sync time.
type GetMetadataRequest struct{}

// SetLastSyncRequest records a finished sync at At, in Unix milliseconds.
type SetLastSyncRequest struct {
	At int64
}

// TransactionsPage is the payload of GetTransactionsRequest.
type TransactionsPage struct {
	Transactions []domain.Transaction `json:"transactions"`
	CashFlow     domain.CashFlow      `json:"cashFlow"`
}

func (InitRequest) Type() string                  { return "init" }
func (CloseRequest) Type() string                 { return "close" }
func (ImportFilesRequest) Type() string           { return "importFiles" }
func (ImportHistoryRequest) Type() string         { return "importHistory" }
func (GetTransactionsRequest) Type() string       { return "getTransactions" }
func (FetchMoreTransactionsRequest) Type() string { return "fetchMoreTransactions" }
func (UpdateTransactionRequest) Type() string     { return "updateTransaction" }
func (DeleteTransactionRequest) Type() string     { return "deleteTransaction" }
func (GetAllAccountsRequest) Type() string        { return "getAllAccounts" }
func (CreateAccountRequest) Type() string         { return "createAccount" }
func (GetStatsRequest) Type() string              { return "getTransactionStats" }
func (ComputeStatsRequest) Type() string          { return "computeTransactionStats" }
func (TagTransactionRequest) Type() string        { return "tagTransaction" }
func (TagTransactionsRequest) Type() string       { return "tagTransactions" }
func (GetUntaggedGroupsRequest) Type() string     { return "getUntaggedGroups" }
func (GetAllCategoriesRequest) Type() string      { return "getAllCategories" }
func (AddCategoryRequest) Type() string           { return "addCategory" }
func (UpdateCategoryRequest) Type() string        { return "updateCategory" }
func (DeleteCategoryRequest) Type() string        { return "deleteCategory" }
func (LoadSnapshotRequest) Type() string          { return "loadSnapshot" }
func (ExportSnapshotRequest) Type() string        { return "exportSnapshot" }
func (GetMetadataRequest) Type() string           { return "getMetadata" }
func (SetLastSyncRequest) Type() string           { return "setLastSync" }

func (InitRequest) isRequest()                  {}
func (CloseRequest) isRequest()                 {}
func (ImportFilesRequest) isRequest()           {}
func (ImportHistoryRequest) isRequest()         {}
func (GetTransactionsRequest) isRequest()       {}
func (FetchMoreTransactionsRequest) isRequest() {}
func (UpdateTransactionRequest) isRequest()     {}
func (DeleteTransactionRequest) isRequest()     {}
func (GetAllAccountsRequest) isRequest()        {}
func (CreateAccountRequest) isRequest()         {}
func (GetStatsRequest) isRequest()              {}
func (ComputeStatsRequest) isRequest()          {}
func (TagTransactionRequest) isRequest()        {}
func (TagTransactionsRequest) isRequest()       {}
func (GetUntaggedGroupsRequest) isRequest()     {}
func (GetAllCategoriesRequest) isRequest()      {}
func (AddCategoryRequest) isRequest()           {}
func (UpdateCategoryRequest) isRequest()        {}
func (DeleteCategoryRequest) isRequest()        {}
func (LoadSnapshotRequest) isRequest()          {}
func (ExportSnapshotRequest) isRequest()        {}
func (GetMetadataRequest) isRequest()           {}
func (SetLastSyncRequest) isRequest()           {}

// detach deep-copies the caller-owned memory a request carries, slices and
// pointers alike, so the caller may reuse it as soon as Call returns or is
// abandoned.
func detach(req Request) Request {
	switch r := req.(type) {
	case ImportFilesRequest:
		files := make([]parser.File, len(r.Files))
		for i, f := range r.Files {
			f.Data = append([]byte(nil), f.Data...)
			files[i] = f
		}
		r.Files = files
		return r
	case TagTransactionsRequest:
		r.IDs = append([]string(nil), r.IDs...)
		r.Filters = detachFilters(r.Filters)
		return r
	case GetTransactionsRequest:
		r.Filters = detachFilters(r.Filters)
		return r
	case FetchMoreTransactionsRequest:
		r.Filters = detachFilters(r.Filters)
		return r
	case UpdateTransactionRequest:
		p := r.Patch
		p.Category = clonePtr(p.Category)
		p.ExcludeFromCashFlow = clonePtr(p.ExcludeFromCashFlow)
		p.AccountID = clonePtr(p.AccountID)
		r.Patch = p
		return r
	case AddCategoryRequest:
		r.Category = detachCategory(r.Category)
		return r
	case UpdateCategoryRequest:
		p := r.Patch
		p.Name = clonePtr(p.Name)
		p.IconName = clonePtr(p.IconName)
		p.Color = clonePtr(p.Color)
		p.Emoji = clonePtr(p.Emoji)
		p.IsEnabled = clonePtr(p.IsEnabled)
		p.ParentID = clonePtr(p.ParentID)
		p.ExcludeFromCashFlow = clonePtr(p.ExcludeFromCashFlow)
		r.Patch = p
		return r
	case LoadSnapshotRequest:
		snap := r.Snapshot
		snap.Accounts = append([]domain.Account(nil), snap.Accounts...)
		snap.Transactions = append([]domain.Transaction(nil), snap.Transactions...)
		if snap.Categories != nil {
			cats := make([]domain.Category, len(snap.Categories))
			for i, c := range snap.Categories {
				cats[i] = detachCategory(c)
			}
			snap.Categories = cats
		}
		r.Snapshot = snap
		return r
	}
	return req
}

func detachFilters(f domain.Filters) domain.Filters {
	f.Categories = append([]string(nil), f.Categories...)
	f.DateRange = clonePtr(f.DateRange)
	return f
}

func detachCategory(c domain.Category) domain.Category {
	c.ParentID = clonePtr(c.ParentID)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
