// Package service holds the business rules between handlers and repositories.
package service

import (
	"context"
	"fmt"
	"strings"

	"yatube/internal/forms"
	"yatube/internal/media"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo       repository.PostRepository
	groupRepo      repository.GroupRepository
	storage        media.Storage
	perPage        int
	maxUploadBytes int64
}

type PostServiceConfig struct {
	PerPage        int
	MaxUploadBytes int64
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	storage media.Storage,
	cfg PostServiceConfig,
) *PostService {
	if cfg.PerPage <= 0 {
		cfg.PerPage = 10
	}
	return &PostService{
		postRepo:       postRepo,
		groupRepo:      groupRepo,
		storage:        storage,
		perPage:        cfg.PerPage,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// ListPosts returns one page of posts matching filter, newest first.
// rawPage is the unparsed page query parameter.
func (s *PostService) ListPosts(ctx context.Context, filter repository.PostFilter, rawPage string) (_ pagination.Page[models.Post], err error) {
	ctx, span := observability.StartSpan(ctx, "posts.list",
		attribute.Int64("yatube.group_id", int64(filter.GroupID)),
		attribute.Int64("yatube.author_id", int64(filter.AuthorID)),
		attribute.Int64("yatube.follower_id", int64(filter.FollowerID)),
		attribute.String("yatube.page", strings.TrimSpace(rawPage)),
	)
	defer func() { observability.EndSpan(span, err) }()

	total, err := s.postRepo.Count(ctx, filter)
	if err != nil {
		return pagination.Page[models.Post]{}, err
	}
	p := pagination.New(total, s.perPage, rawPage)
	span.SetAttributes(attribute.Int("yatube.page_number", p.Number), attribute.Int64("yatube.post_count", total))
	posts, err := s.postRepo.List(ctx, filter, p.Limit(), p.Offset())
	if err != nil {
		return pagination.Page[models.Post]{}, err
	}
	return pagination.NewPage(p, posts), nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// CountByAuthor is the author's total number of posts.
func (s *PostService) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.postRepo.Count(ctx, repository.PostFilter{AuthorID: authorID})
}

// GetGroup looks a group up by slug.
func (s *PostService) GetGroup(ctx context.Context, slug string) (*models.Group, error) {
	return s.groupRepo.GetBySlug(ctx, slug)
}

// Groups lists the choices for the post form.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

// CreatePost validates the form and saves a post written by authorID.
// An invalid form yields forms.FieldErrors and nothing is stored.
func (s *PostService) CreatePost(ctx context.Context, authorID uint, form forms.PostForm) (_ *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "posts.create", attribute.Int64("yatube.author_id", int64(authorID)))
	defer func() { observability.EndSpan(span, err) }()

	payload, err := form.Validate(ctx, s.groupRepo, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     payload.Text,
		AuthorID: authorID,
		GroupID:  payload.GroupID,
	}
	if payload.Image != nil {
		if post.Image, err = s.storage.Save(ctx, models.PostImageDir, payload.Image); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("save image: %w", err))
		}
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardImage(ctx, post.Image)
		return nil, err
	}

	observability.RecordEvent("post_created")
	observability.Logger.InfoContext(ctx, "post created", "post_id", post.ID, "author_id", authorID)
	return post, nil
}

// CanEdit reports whether userID may edit post.
func (s *PostService) CanEdit(post *models.Post, userID uint) bool {
	return post != nil && userID != 0 && post.AuthorID == userID
}

// EditPost applies the form to an existing post. Only the author may edit;
// anyone else gets a FORBIDDEN AppError. The publication date never changes.
func (s *PostService) EditPost(ctx context.Context, userID, postID uint, form forms.PostForm) (_ *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "posts.edit",
		attribute.Int64("yatube.post_id", int64(postID)),
		attribute.Int64("yatube.user_id", int64(userID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !s.CanEdit(post, userID) {
		return nil, models.NewForbiddenError("only the author can edit this post")
	}

	payload, err := form.Validate(ctx, s.groupRepo, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}

	previousImage := post.Image
	post.Text = payload.Text
	post.GroupID = payload.GroupID
	post.Group = nil
	switch {
	case payload.Image != nil:
		if post.Image, err = s.storage.Save(ctx, models.PostImageDir, payload.Image); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("save image: %w", err))
		}
	case form.ClearImage:
		post.Image = ""
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if post.Image != previousImage {
			s.discardImage(ctx, post.Image)
		}
		return nil, err
	}

	observability.RecordEvent("post_edited")
	return post, nil
}

func (s *PostService) discardImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.storage.Delete(name); err != nil {
		observability.Logger.WarnContext(ctx, "failed to remove orphaned image", "image", name, "error", err)
	}
}
