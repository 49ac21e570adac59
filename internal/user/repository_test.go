package user

import (
	"context"
	"testing"

	"terminal-terrace/foodgram/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFollowConstraints(t *testing.T) {
	db := testutils.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutils.CreateTestUser(db)
	bob := testutils.CreateTestUser(db)

	require.NoError(t, repo.CreateFollow(ctx, alice.ID, bob.ID))

	err := db.Transaction(func(tx *gorm.DB) error {
		return NewUserRepository(tx).CreateFollow(ctx, alice.ID, alice.ID)
	})
	assert.ErrorIs(t, err, gorm.ErrCheckConstraintViolated)

	err = db.Transaction(func(tx *gorm.DB) error {
		return NewUserRepository(tx).CreateFollow(ctx, alice.ID, bob.ID)
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	affected, err := repo.DeleteFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	affected, err = repo.DeleteFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestListFollowingAndRecipesLimit(t *testing.T) {
	db := testutils.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	reader := testutils.CreateTestUser(db)
	chef := testutils.CreateTestUser(db)
	baker := testutils.CreateTestUser(db)
	for i := 0; i < 3; i++ {
		testutils.CreateTestRecipe(db, chef.ID, nil)
	}
	testutils.CreateTestRecipe(db, baker.ID, nil)

	require.NoError(t, repo.CreateFollow(ctx, reader.ID, chef.ID))
	require.NoError(t, repo.CreateFollow(ctx, reader.ID, baker.ID))

	authors, total, err := repo.ListFollowing(ctx, reader.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, authors, 2)

	limited, err := repo.RecipesByAuthors(ctx, []uint{chef.ID, baker.ID}, 2)
	require.NoError(t, err)
	assert.Len(t, limited[chef.ID], 2)
	assert.Len(t, limited[baker.ID], 1)

	all, err := repo.RecipesByAuthors(ctx, []uint{chef.ID}, NoRecipesLimit)
	require.NoError(t, err)
	assert.Len(t, all[chef.ID], 3)

	none, err := repo.RecipesByAuthors(ctx, []uint{chef.ID}, 0)
	require.NoError(t, err)
	assert.Empty(t, none[chef.ID])

	flags, err := repo.SubscribedAuthorIDs(ctx, reader.ID, []uint{chef.ID, baker.ID, reader.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{chef.ID: true, baker.ID: true}, flags)
}

func TestFindConflict(t *testing.T) {
	db := testutils.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := testutils.CreateTestUser(db, testutils.WithUsername("conflict_user"), testutils.WithEmail("conflict@example.com"))

	found, err := repo.FindConflict(ctx, "conflict_user", "free@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = repo.FindConflict(ctx, "free_user", "free@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
