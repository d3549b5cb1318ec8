package db

import (
	"context"
	"log"

	"bookswap/models"
)

// Operation represents a database operation that needs to be executed
type Operation struct {
	Execute func() error
	Result  chan error
}

// OperationWithResult represents a database operation that returns a result
type OperationWithResult struct {
	Execute func() (interface{}, error)
	Result  chan OperationResult
}

// OperationResult contains the result of an operation
type OperationResult struct {
	Data  interface{}
	Error error
}

// DBManager serializes loan-state writes. SQLite allows a single writer at a
// time; funneling borrow/return and inserts through one worker keeps racing
// requests from tripping over database-is-locked errors.
type DBManager struct {
	opQueue       chan Operation
	resultOpQueue chan OperationWithResult
	stopping      chan struct{}
}

// NewDBManager creates a new database manager
func NewDBManager() *DBManager {
	m := &DBManager{
		opQueue:       make(chan Operation, 100),
		resultOpQueue: make(chan OperationWithResult, 100),
		stopping:      make(chan struct{}),
	}

	go m.worker()
	log.Println("Database access manager started")

	return m
}

// worker processes operations one at a time
func (m *DBManager) worker() {
	for {
		select {
		case op := <-m.opQueue:
			err := op.Execute()
			op.Result <- err
		case op := <-m.resultOpQueue:
			data, err := op.Execute()
			op.Result <- OperationResult{Data: data, Error: err}
		case <-m.stopping:
			return
		}
	}
}

// ExecuteOperation executes a database operation on the worker
func (m *DBManager) ExecuteOperation(execute func() error) error {
	resultChan := make(chan error, 1)
	m.opQueue <- Operation{
		Execute: execute,
		Result:  resultChan,
	}
	return <-resultChan
}

// ExecuteOperationWithResult executes a database operation that returns a result
func (m *DBManager) ExecuteOperationWithResult(execute func() (interface{}, error)) (interface{}, error) {
	resultChan := make(chan OperationResult, 1)
	m.resultOpQueue <- OperationWithResult{
		Execute: execute,
		Result:  resultChan,
	}
	result := <-resultChan
	return result.Data, result.Error
}

// Stop stops the database manager
func (m *DBManager) Stop() {
	close(m.stopping)
}

// Methods for specific repository operations

// CreateBook serializes access to book creation
func (m *DBManager) CreateBook(repo BookRepository, ctx context.Context, book *models.Book) (*models.Book, error) {
	result, err := m.ExecuteOperationWithResult(func() (interface{}, error) {
		return repo.Create(ctx, book)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Book), nil
}

// MarkBorrowed serializes the available-to-borrowed transition
func (m *DBManager) MarkBorrowed(repo BookRepository, ctx context.Context, id, borrower string) error {
	return m.ExecuteOperation(func() error {
		return repo.MarkBorrowed(ctx, id, borrower)
	})
}

// MarkReturned serializes the borrowed-to-available transition
func (m *DBManager) MarkReturned(repo BookRepository, ctx context.Context, id, borrower string) error {
	return m.ExecuteOperation(func() error {
		return repo.MarkReturned(ctx, id, borrower)
	})
}

// CreateMessage serializes access to message creation
func (m *DBManager) CreateMessage(repo MessageRepository, ctx context.Context, message *models.Message) error {
	return m.ExecuteOperation(func() error {
		return repo.Create(ctx, message)
	})
}
