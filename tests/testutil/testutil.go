// Package testutil holds helpers shared by the credit backend tests: a
// sqlmock-backed GORM handle, fake credit fixtures and an event recorder.
package testutil

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockDB is a GORM handle over sqlmock. It uses the postgres dialect, so the
// expected SQL is what the repositories send to PostgreSQL.
type MockDB struct {
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
}

// NewMockDB opens a MockDB that is closed when the test ends
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open GORM over sqlmock")

	return &MockDB{DB: db, Mock: mock}
}

// AssertExpectations fails the test when an expected statement never ran
func (m *MockDB) AssertExpectations(t *testing.T) {
	t.Helper()
	assert.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet SQL expectations")
}

// NewTestUUID derives a stable UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("fiado-test:"+seed))
}

// TestUserID is the cashier the tests act as
func TestUserID() uuid.UUID {
	return NewTestUUID("cashier")
}
