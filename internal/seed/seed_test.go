package seed

import (
	"context"
	"testing"

	"yatube/internal/forms"
	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testOptions() Options {
	return Options{
		Users:           5,
		Groups:          3,
		Posts:           12,
		CommentsPerPost: 2,
		FollowsPerUser:  2,
		RandSeed:        42,
		BcryptCost:      bcrypt.MinCost,
	}
}

func TestSeed_CreatesRequestedRows(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	summary, err := Seed(ctx, db, testOptions())
	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 5, Groups: 3, Posts: 12, Comments: 24, Follows: 10}, summary)

	var users, posts, comments, follows int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(12), posts)
	assert.Equal(t, int64(24), comments)
	assert.Equal(t, int64(10), follows)

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = author_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)
}

func TestSeed_UsersCanLogIn(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := Seed(context.Background(), db, testOptions())
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DemoPassword)))
	assert.LessOrEqual(t, len(user.Username), forms.MaxUsernameLength)
}

func TestSeed_CleanRemovesPreviousRun(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	_, err := Seed(ctx, db, testOptions())
	require.NoError(t, err)

	opts := testOptions()
	opts.Clean = true
	opts.RandSeed = 7
	_, err = Seed(ctx, db, opts)
	require.NoError(t, err)

	var users, groups int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Group{}).Count(&groups).Error)
	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(3), groups)
}

func TestSeed_NoUsersSkipsContent(t *testing.T) {
	db := testutil.NewDB(t)
	summary, err := Seed(context.Background(), db, Options{Groups: 2, Posts: 5, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Equal(t, Summary{Groups: 2}, summary)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Cats":          "cats",
		"Hello, World!": "hello-world",
		"  ":            "group",
		"Тест":          "group",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "leo.tolstoy", sanitizeUsername("leo .tolstoy"))
	assert.Equal(t, "user", sanitizeUsername("!!!"))
}
