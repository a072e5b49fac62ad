package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for error-path tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")

	got, err := repo.GetByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, leo.ID, got.ID)

	got, err = repo.GetByID(ctx, leo.ID)
	require.NoError(t, err)
	assert.Equal(t, "leo", got.Username)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.True(t, models.IsNotFound(err))
	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, models.IsNotFound(err))

	exists, err := repo.ExistsByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByUsername(ctx, "anna")
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Create(ctx, &models.User{Username: "leo", Password: "x"})
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	require.NoError(t, repo.UpdatePassword(ctx, leo.ID, "new-hash"))
	got, err = repo.GetByID(ctx, leo.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.Password)
	assert.True(t, models.IsNotFound(repo.UpdatePassword(ctx, 9999, "x")))
}

func TestGroupRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Group{Title: "Zeta", Slug: "zeta"}))
	alpha := testutil.CreateGroup(t, db, "alpha")

	got, err := repo.GetBySlug(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, alpha.ID, got.ID)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.True(t, models.IsNotFound(err))

	exists, err := repo.Exists(ctx, alpha.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, alpha.ID+100)
	require.NoError(t, err)
	assert.False(t, exists)

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Group alpha", groups[0].Title)
	assert.Equal(t, "Zeta", groups[1].Title)
}

func TestPostRepository_ListNewestFirstWithRelations(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "group1")
	first := testutil.CreatePost(t, db, leo, group, "first")
	second := testutil.CreatePost(t, db, leo, nil, "second")

	posts, err := repo.List(ctx, PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
	assert.Equal(t, "leo", posts[0].Author.Username)
	assert.Nil(t, posts[0].Group)
	require.NotNil(t, posts[1].Group)
	assert.Equal(t, "group1", posts[1].Group.Slug)
}

func TestPostRepository_FiltersIsolateListings(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	anna := testutil.CreateUser(t, db, "anna")
	groupA := testutil.CreateGroup(t, db, "a")
	groupB := testutil.CreateGroup(t, db, "b")
	for i := 0; i < 3; i++ {
		testutil.CreatePost(t, db, leo, groupA, fmt.Sprintf("leo in a %d", i))
	}
	testutil.CreatePost(t, db, anna, groupB, "anna in b")

	posts, err := repo.List(ctx, PostFilter{GroupID: groupB.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "anna in b", posts[0].Text)

	count, err := repo.Count(ctx, PostFilter{GroupID: groupA.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = repo.Count(ctx, PostFilter{AuthorID: anna.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	posts, err = repo.List(ctx, PostFilter{AuthorID: leo.ID}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestPostRepository_FollowerFeed(t *testing.T) {
	db := testutil.NewDB(t)
	posts := NewPostRepository(db)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	reader := testutil.CreateUser(t, db, "reader")
	leo := testutil.CreateUser(t, db, "leo")
	anna := testutil.CreateUser(t, db, "anna")
	testutil.CreatePost(t, db, leo, nil, "by leo")
	testutil.CreatePost(t, db, anna, nil, "by anna")

	feed, err := posts.List(ctx, PostFilter{FollowerID: reader.ID}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, feed)

	require.NoError(t, follows.Create(ctx, reader.ID, leo.ID))
	feed, err = posts.List(ctx, PostFilter{FollowerID: reader.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "by leo", feed[0].Text)

	count, err := posts.Count(ctx, PostFilter{FollowerID: reader.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPostRepository_UpdateKeepsPubDateAndAuthor(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "g")
	post := testutil.CreatePost(t, db, leo, group, "before")
	original, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, &models.Post{ID: post.ID, Text: "after", Image: "posts/a.gif"}))

	updated, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Text)
	assert.Nil(t, updated.GroupID)
	assert.Equal(t, "posts/a.gif", updated.Image)
	assert.Equal(t, leo.ID, updated.AuthorID)
	assert.True(t, original.PubDate.Equal(updated.PubDate))
}

func TestPostDeletionCascadesComments(t *testing.T) {
	db := testutil.NewDB(t)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	post := testutil.CreatePost(t, db, leo, nil, "text")
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: leo.ID, Text: "hi"}))

	require.NoError(t, db.Delete(&models.Post{}, post.ID).Error)
	count, err := comments.CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommentRepository_ListOldestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	anna := testutil.CreateUser(t, db, "anna")
	post := testutil.CreatePost(t, db, leo, nil, "text")
	other := testutil.CreatePost(t, db, leo, nil, "other")

	require.NoError(t, repo.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: anna.ID, Text: "one"}))
	require.NoError(t, repo.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: leo.ID, Text: "two"}))
	require.NoError(t, repo.Create(ctx, &models.Comment{PostID: other.ID, AuthorID: leo.ID, Text: "elsewhere"}))

	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Text)
	assert.Equal(t, "anna", list[0].Author.Username)
	assert.Equal(t, "two", list[1].Text)
}

func TestFollowRepository_CreateIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	reader := testutil.CreateUser(t, db, "reader")
	leo := testutil.CreateUser(t, db, "leo")

	require.NoError(t, repo.Create(ctx, reader.ID, leo.ID))
	require.NoError(t, repo.Create(ctx, reader.ID, leo.ID))

	assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.Follow{}))

	exists, err := repo.Exists(ctx, reader.ID, leo.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, leo.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Delete(ctx, reader.ID, leo.ID))
	require.NoError(t, repo.Delete(ctx, reader.ID, leo.ID))
	assert.Zero(t, testutil.CountRows(t, db, &models.Follow{}))
}

func TestRepositories_QueryFailuresAreInternal(t *testing.T) {
	db, mock := setupMockDB(t)
	boom := errors.New("connection reset")
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnError(boom)
	_, err := NewPostRepository(db).GetByID(ctx, 1)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "posts"`).WillReturnError(boom)
	_, err = NewPostRepository(db).Count(ctx, PostFilter{})
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	mock.ExpectQuery(`SELECT \* FROM "post_groups"`).WillReturnError(boom)
	_, err = NewGroupRepository(db).GetBySlug(ctx, "g")
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "follows"`).WillReturnError(boom)
	_, err = NewFollowRepository(db).Exists(ctx, 1, 2)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_NotFoundFromMock(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewPostRepository(db).GetByID(context.Background(), 42)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, "Post 42 not found", err.Error())
}
