package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/internal/repository"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

type spyInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (s *spyInvalidator) InvalidateList(ctx context.Context) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

var (
	student      = &models.User{ID: 1, Name: "Ana", UserType: models.UserTypeStudent, Active: true}
	otherStudent = &models.User{ID: 2, Name: "Caio", UserType: models.UserTypeStudent, Active: true}
	librarian    = &models.User{ID: 3, Name: "Bo", UserType: models.UserTypeStaff, Active: true}
	admin        = &models.User{ID: 4, Name: "Root", UserType: models.UserTypeAdmin, Active: true}
)

func newCheckoutFixture() (*memoryLibrary, *spyInvalidator, *CheckoutService) {
	lib := newMemoryLibrary()
	lib.borrowers[student.ID] = student.Name
	lib.borrowers[otherStudent.ID] = otherStudent.Name
	spy := &spyInvalidator{}
	svc := NewCheckoutService(lib, spy, zap.NewNop(), NewMetricsService())
	return lib, spy, svc
}

func requireCode(t *testing.T, err error, want *appErrors.Error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, want.Code, appErr.Code)
	assert.Equal(t, want.Status, appErr.Status)
	return appErr
}

func TestCheckoutServiceCheckoutAndReturn(t *testing.T) {
	lib, spy, svc := newCheckoutFixture()
	bookID := lib.addBook("Dune", "Frank Herbert")
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Checkout(context.Background(), student, bookID)
	require.NoError(t, err)
	assert.Equal(t, bookID, res.BookID)
	assert.Equal(t, student.ID, res.UserID)
	assert.Equal(t, fixed.AddDate(0, 0, 14), res.DueDate)
	assert.Equal(t, models.BookCheckedOut, lib.status(bookID))
	assert.Equal(t, 1, spy.calls)

	closed, err := svc.Return(context.Background(), student, bookID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutReturned, closed.Status)
	require.NotNil(t, closed.ReturnDate)
	assert.Equal(t, fixed, *closed.ReturnDate)
	assert.Equal(t, models.BookAvailable, lib.status(bookID))
	assert.Equal(t, 2, spy.calls)

	_, err = svc.Checkout(context.Background(), otherStudent, bookID)
	require.NoError(t, err, "a returned book can be borrowed again")
}

func TestCheckoutServiceDueInFourteenDays(t *testing.T) {
	lib := newMemoryLibrary()
	bookID := lib.addBook("Dune", "Frank Herbert")
	svc := NewCheckoutService(lib, nil, nil, nil)
	fixed := time.Date(2024, 3, 25, 17, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Checkout(context.Background(), student, bookID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 8, 17, 30, 0, 0, time.UTC), res.DueDate)
	assert.Equal(t, 14*24*time.Hour, res.DueDate.Sub(fixed))
}

func TestCheckoutServiceOnlyStudentsBorrow(t *testing.T) {
	lib, spy, svc := newCheckoutFixture()
	bookID := lib.addBook("Dune", "Frank Herbert")

	for _, actor := range []*models.User{librarian, admin} {
		_, err := svc.Checkout(context.Background(), actor, bookID)
		requireCode(t, err, appErrors.ErrForbidden)
	}
	_, err := svc.Checkout(context.Background(), nil, bookID)
	requireCode(t, err, appErrors.ErrUnauthorized)

	assert.Equal(t, models.BookAvailable, lib.status(bookID))
	assert.Zero(t, spy.calls)
}

func TestCheckoutServiceCheckoutErrors(t *testing.T) {
	lib, _, svc := newCheckoutFixture()
	bookID := lib.addBook("Dune", "Frank Herbert")

	_, err := svc.Checkout(context.Background(), student, 999)
	requireCode(t, err, appErrors.ErrNotFound)

	_, err = svc.Checkout(context.Background(), student, bookID)
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), student, bookID)
	appErr := requireCode(t, err, appErrors.ErrCheckoutConflict)
	assert.Equal(t, "you already have this book checked out", appErr.Message)

	_, err = svc.Checkout(context.Background(), otherStudent, bookID)
	appErr = requireCode(t, err, appErrors.ErrCheckoutConflict)
	assert.Equal(t, "book is already checked out", appErr.Message)

	assert.Equal(t, 1, lib.activeCount(bookID))
}

type failingLedger struct {
	*memoryLibrary
	err error
}

func (f *failingLedger) Checkout(ctx context.Context, params repository.CheckoutParams) (*models.Checkout, error) {
	return nil, f.err
}

func TestCheckoutServiceStoreErrors(t *testing.T) {
	ledger := &failingLedger{memoryLibrary: newMemoryLibrary(), err: errors.New("connection refused")}
	svc := NewCheckoutService(ledger, nil, nil, nil)

	_, err := svc.Checkout(context.Background(), student, 1)
	requireCode(t, err, appErrors.ErrInternal)

	ledger.err = context.DeadlineExceeded
	_, err = svc.Checkout(context.Background(), student, 1)
	requireCode(t, err, appErrors.ErrStoreUnavailable)
}

func TestCheckoutServiceReturnAuthorization(t *testing.T) {
	lib, _, svc := newCheckoutFixture()
	bookID := lib.addBook("Dune", "Frank Herbert")

	_, err := svc.Return(context.Background(), student, bookID)
	appErr := requireCode(t, err, appErrors.ErrNotFound)
	assert.Contains(t, appErr.Message, "no active checkout")

	_, err = svc.Checkout(context.Background(), student, bookID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), otherStudent, bookID)
	requireCode(t, err, appErrors.ErrForbidden)
	assert.Equal(t, models.BookCheckedOut, lib.status(bookID))

	_, err = svc.Return(context.Background(), librarian, bookID)
	require.NoError(t, err)
	assert.Equal(t, models.BookAvailable, lib.status(bookID))

	_, err = svc.Return(context.Background(), librarian, bookID)
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestCheckoutServiceConcurrentCheckoutHasOneWinner(t *testing.T) {
	lib, _, svc := newCheckoutFixture()
	bookID := lib.addBook("Dune", "Frank Herbert")

	const borrowers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < borrowers; i++ {
		actor := &models.User{ID: int64(100 + i), UserType: models.UserTypeStudent, Active: true}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Checkout(context.Background(), actor, bookID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			if appErrors.FromError(err).Code == appErrors.ErrCheckoutConflict.Code {
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, borrowers-1, conflicts)
	assert.Equal(t, 1, lib.activeCount(bookID))
	assert.Equal(t, models.BookCheckedOut, lib.status(bookID))
}

func TestCheckoutServiceListForStaff(t *testing.T) {
	lib, _, svc := newCheckoutFixture()
	first := lib.addBook("Dune", "Frank Herbert")
	second := lib.addBook("Emma", "Jane Austen")
	_, err := svc.Checkout(context.Background(), student, first)
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), otherStudent, second)
	require.NoError(t, err)

	_, err = svc.ListForStaff(context.Background(), student)
	requireCode(t, err, appErrors.ErrForbidden)

	rentals, err := svc.ListForStaff(context.Background(), librarian)
	require.NoError(t, err)
	require.Len(t, rentals, 2)
	assert.Equal(t, "Emma", rentals[0].BookTitle)
	assert.Equal(t, "Caio", rentals[0].BorrowerName)
}

func TestCheckoutServiceExportCSV(t *testing.T) {
	lib, _, svc := newCheckoutFixture()
	bookID := lib.addBook("Dune", "Frank Herbert")
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	_, err := svc.Checkout(context.Background(), student, bookID)
	require.NoError(t, err)

	file, err := svc.Export(context.Background(), admin, "csv")
	require.NoError(t, err)
	assert.Equal(t, "rentals-20240301.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, rentalHeaders, records[0])
	assert.Equal(t, "Dune", records[1][1])
	assert.Equal(t, "2024-03-15", records[1][7])
	assert.Equal(t, "active", records[1][9])
}

func TestCheckoutServiceExportPDFAndErrors(t *testing.T) {
	_, _, svc := newCheckoutFixture()

	file, err := svc.Export(context.Background(), librarian, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))

	_, err = svc.Export(context.Background(), librarian, "xlsx")
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.Export(context.Background(), student, "csv")
	requireCode(t, err, appErrors.ErrForbidden)
}

func TestRentalDatasetMarksOverdue(t *testing.T) {
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	returned := now.Add(-48 * time.Hour)
	data := RentalDataset([]models.RentalDetail{
		{Checkout: models.Checkout{ID: 1, Status: models.CheckoutActive, DueDate: now.Add(-time.Hour)}},
		{Checkout: models.Checkout{ID: 2, Status: models.CheckoutReturned, DueDate: now.Add(-time.Hour), ReturnDate: &returned}},
	}, now)

	require.Len(t, data.Rows, 2)
	assert.Equal(t, "overdue", data.Rows[0][9])
	assert.Equal(t, "returned", data.Rows[1][9])
	assert.Equal(t, "2024-03-30", data.Rows[1][8])
}
