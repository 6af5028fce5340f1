package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/soramar/chatd/chatd/session/ports"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "chatd-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) User {
	t.Helper()
	user, err := NewUserStore(db).Create(context.Background(), "ada", email, "hash")
	require.NoError(t, err)
	return user
}

func TestConnect_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "chatd.db")
	db, err := Connect(path)
	require.NoError(t, err)
	defer db.Close()

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
}

func TestUserStore_CreateAndLookup(t *testing.T) {
	db := openTestDB(t)
	users := NewUserStore(db)

	created, err := users.Create(context.Background(), "ada", "ada@example.com", "bcrypt-hash")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := users.ByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "ada", found.Username)
	assert.Equal(t, "bcrypt-hash", found.PasswordHash)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	users := NewUserStore(db)

	_, err := users.Create(context.Background(), "ada", "ada@example.com", "h1")
	require.NoError(t, err)

	_, err = users.Create(context.Background(), "other", "ada@example.com", "h2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserStore_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := NewUserStore(db).ByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHistoryStore_EmptyForNewUser(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "ada@example.com")

	turns, err := NewHistoryStore(db).LoadHistory(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestHistoryStore_AppendPairPreservesOrder(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "ada@example.com")
	history := NewHistoryStore(db)
	ctx := context.Background()

	require.NoError(t, history.AppendPair(ctx, user.ID,
		ports.Turn{Role: ports.RoleUser, Text: "hi"},
		ports.Turn{Role: ports.RoleModel, Text: "hello Ada"},
	))
	require.NoError(t, history.AppendPair(ctx, user.ID,
		ports.Turn{Role: ports.RoleUser, Text: "how are you?"},
		ports.Turn{Role: ports.RoleModel, Text: "well"},
	))

	turns, err := history.LoadHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, []ports.Turn{
		{Role: ports.RoleUser, Text: "hi"},
		{Role: ports.RoleModel, Text: "hello Ada"},
		{Role: ports.RoleUser, Text: "how are you?"},
		{Role: ports.RoleModel, Text: "well"},
	}, turns)
}

func TestHistoryStore_UsersAreIsolated(t *testing.T) {
	db := openTestDB(t)
	ada := createTestUser(t, db, "ada@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	history := NewHistoryStore(db)
	ctx := context.Background()

	require.NoError(t, history.AppendPair(ctx, ada.ID,
		ports.Turn{Role: ports.RoleUser, Text: "ada says"},
		ports.Turn{Role: ports.RoleModel, Text: "to ada"},
	))

	turns, err := history.LoadHistory(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestHistoryStore_ConcurrentAppendsBothSurvive(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "ada@example.com")
	history := NewHistoryStore(db)
	ctx := context.Background()

	const writers = 8
	var wg conc.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Go(func() {
			err := history.AppendPair(ctx, user.ID,
				ports.Turn{Role: ports.RoleUser, Text: fmt.Sprintf("q%d", i)},
				ports.Turn{Role: ports.RoleModel, Text: fmt.Sprintf("a%d", i)},
			)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	turns, err := history.LoadHistory(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, turns, writers*2)

	// Every pair must be contiguous: user turn immediately followed by its
	// model turn, in some overall order.
	seen := make(map[string]bool)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, ports.RoleUser, turns[i].Role, "turn %d", i)
		assert.Equal(t, ports.RoleModel, turns[i+1].Role, "turn %d", i+1)
		assert.Equal(t, turns[i].Text[1:], turns[i+1].Text[1:], "pair %d split", i/2)
		seen[turns[i].Text[1:]] = true
	}
	assert.Len(t, seen, writers)
}

func TestHistoryStore_RejectsUnknownRole(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "ada@example.com")
	history := NewHistoryStore(db)

	err := history.AppendPair(context.Background(), user.ID,
		ports.Turn{Role: "narrator", Text: "meanwhile"},
		ports.Turn{Role: ports.RoleModel, Text: "reply"},
	)
	assert.Error(t, err)

	turns, loadErr := history.LoadHistory(context.Background(), user.ID)
	require.NoError(t, loadErr)
	assert.Empty(t, turns)
}
