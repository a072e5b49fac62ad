// Package seed fills the database with demo users, groups, posts, comments
// and follows. It is meant for local development and tests only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"yatube/internal/forms"
	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// Options configures a seeding run.
type Options struct {
	Users           int
	Groups          int
	Posts           int
	CommentsPerPost int
	FollowsPerUser  int
	Clean           bool

	// RandSeed makes runs reproducible when non-zero.
	RandSeed int64
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// MaxDays spreads publication dates over this many past days.
	MaxDays int
}

// Summary reports how many rows a run created.
type Summary struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Factory builds and persists demo entities.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	opts  Options
	hash  string
	taken map[string]bool
}

// NewFactory creates a Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{
		db:    db,
		faker: gofakeit.New(seed),
		opts:  opts,
		hash:  string(hash),
		taken: map[string]bool{},
	}, nil
}

// CreateUser persists a user with a unique generated username.
func (f *Factory) CreateUser(ctx context.Context) (*models.User, error) {
	username := f.uniqueUsername()
	user := &models.User{
		Username:  username,
		Email:     strings.ToLower(username) + "@" + f.faker.DomainName(),
		FirstName: f.faker.FirstName(),
		LastName:  f.faker.LastName(),
		Password:  f.hash,
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return user, nil
}

func (f *Factory) uniqueUsername() string {
	for {
		name := sanitizeUsername(f.faker.Username())
		if len(name) > forms.MaxUsernameLength-4 {
			name = name[:forms.MaxUsernameLength-4]
		}
		name = fmt.Sprintf("%s%d", name, f.faker.Number(100, 999))
		if !f.taken[name] {
			f.taken[name] = true
			return name
		}
	}
}

// CreateGroup persists a group; n keeps slugs unique within a run.
func (f *Factory) CreateGroup(ctx context.Context, n int) (*models.Group, error) {
	word := f.faker.Noun()
	group := &models.Group{
		Title:       strings.ToUpper(word[:1]) + word[1:],
		Slug:        fmt.Sprintf("%s-%d", slugify(word), n),
		Description: f.faker.Sentence(12),
	}
	if err := f.db.WithContext(ctx).Create(group).Error; err != nil {
		return nil, fmt.Errorf("create group %s: %w", group.Slug, err)
	}
	return group, nil
}

// CreatePost persists a post by author, in group when it is not nil.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, group *models.Group) (*models.Post, error) {
	post := &models.Post{
		Text:     f.faker.Paragraph(1, f.faker.Number(1, 4), 12, "\n"),
		AuthorID: author.ID,
		PubDate:  f.pastTime(),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	if err := f.db.WithContext(ctx).Omit("Author", "Group").Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CreateComment persists a comment on post, dated after the post.
func (f *Factory) CreateComment(ctx context.Context, post *models.Post, author *models.User) (*models.Comment, error) {
	created := post.PubDate.Add(time.Duration(f.faker.Number(1, 48*60)) * time.Minute)
	if now := time.Now(); created.After(now) {
		created = now
	}
	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Text:     f.faker.Sentence(f.faker.Number(4, 16)),
		Created:  created,
	}
	if err := f.db.WithContext(ctx).Omit("Post", "Author").Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// CreateFollow subscribes user to author. Existing edges are kept as they are.
func (f *Factory) CreateFollow(ctx context.Context, user, author *models.User) error {
	follow := &models.Follow{UserID: user.ID, AuthorID: author.ID}
	err := f.db.WithContext(ctx).
		Omit("User", "Author").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow).Error
	if err != nil {
		return fmt.Errorf("create follow %d->%d: %w", user.ID, author.ID, err)
	}
	return nil
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// Seed runs a full seeding pass.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (Summary, error) {
	var summary Summary

	if opts.Clean {
		if err := ClearAll(ctx, db); err != nil {
			return summary, err
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return summary, err
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return summary, err
		}
		users = append(users, u)
	}
	summary.Users = len(users)

	groups := make([]*models.Group, 0, opts.Groups)
	for i := 0; i < opts.Groups; i++ {
		g, err := f.CreateGroup(ctx, i+1)
		if err != nil {
			return summary, err
		}
		groups = append(groups, g)
	}
	summary.Groups = len(groups)

	if len(users) == 0 {
		return summary, nil
	}

	for i := 0; i < opts.Posts; i++ {
		author := users[f.faker.Number(0, len(users)-1)]
		var group *models.Group
		if len(groups) > 0 && f.faker.Bool() {
			group = groups[f.faker.Number(0, len(groups)-1)]
		}
		post, err := f.CreatePost(ctx, author, group)
		if err != nil {
			return summary, err
		}
		summary.Posts++

		for j := 0; j < opts.CommentsPerPost; j++ {
			commenter := users[f.faker.Number(0, len(users)-1)]
			if _, err := f.CreateComment(ctx, post, commenter); err != nil {
				return summary, err
			}
			summary.Comments++
		}
	}

	for _, u := range users {
		for _, author := range f.pickAuthors(users, u, opts.FollowsPerUser) {
			if err := f.CreateFollow(ctx, u, author); err != nil {
				return summary, err
			}
			summary.Follows++
		}
	}

	return summary, nil
}

// pickAuthors returns up to n distinct users other than self.
func (f *Factory) pickAuthors(users []*models.User, self *models.User, n int) []*models.User {
	candidates := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.ID != self.ID {
			candidates = append(candidates, u)
		}
	}
	f.faker.ShuffleAnySlice(candidates)
	if n > len(candidates) {
		n = len(candidates)
	}
	if n < 0 {
		n = 0
	}
	return candidates[:n]
}

// ClearAll deletes every seeded table, children first.
func ClearAll(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "group"
	}
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return slug
}
