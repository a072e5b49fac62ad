package server

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"yatube/internal/forms"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), repository.PostFilter{}, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/index", fiber.Map{
		"Title": "Latest posts",
		"Page":  page,
	})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	group, err := s.postService.GetGroup(ctx, c.Params("slug"))
	if err != nil {
		return err
	}
	page, err := s.postService.ListPosts(ctx, repository.PostFilter{GroupID: group.ID}, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/group_list", fiber.Map{
		"Title": group.Title,
		"Group": group,
		"Page":  page,
	})
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, err := s.authService.GetUserByUsername(ctx, c.Params("username"))
	if err != nil {
		return err
	}
	page, err := s.postService.ListPosts(ctx, repository.PostFilter{AuthorID: author.ID}, c.Query("page"))
	if err != nil {
		return err
	}

	viewerID := currentUserID(c)
	following, err := s.followService.IsFollowing(ctx, viewerID, author.ID)
	if err != nil {
		return err
	}

	return s.render(c, fiber.StatusOK, "posts/profile", fiber.Map{
		"Title":     "Profile of " + author.FullName(),
		"Author":    author,
		"Page":      page,
		"PostCount": page.Count,
		"IsSelf":    viewerID == author.ID,
		"Following": following,
	})
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	postID, err := parsePostID(c)
	if err != nil {
		return err
	}
	return s.renderPostDetail(c, postID, forms.CommentForm{}, nil)
}

func (s *Server) renderPostDetail(c *fiber.Ctx, postID uint, form forms.CommentForm, errs forms.FieldErrors) error {
	ctx := c.UserContext()
	post, err := s.postService.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	count, err := s.postService.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return err
	}
	comments, err := s.commentService.ListComments(ctx, post.ID)
	if err != nil {
		return err
	}
	if errs == nil {
		errs = forms.FieldErrors{}
	}

	return s.render(c, fiber.StatusOK, "posts/post_detail", fiber.Map{
		"Title":     "Post " + post.String(),
		"Post":      post,
		"PostCount": count,
		"CanEdit":   s.postService.CanEdit(post, currentUserID(c)),
		"Comments":  comments,
		"Form":      form,
		"Errors":    errs,
	})
}

// PostCreate handles GET and POST /create/
func (s *Server) PostCreate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := middleware.CurrentUser(c)

	if c.Method() != fiber.MethodPost {
		return s.renderPostForm(c, fiber.Map{"Form": forms.PostForm{}})
	}

	form, err := bindPostForm(c)
	if err != nil {
		return err
	}
	if _, err := s.postService.CreatePost(ctx, user.ID, form); err != nil {
		if errs, ok := asFieldErrors(err); ok {
			return s.renderPostForm(c, fiber.Map{"Form": form, "Errors": errs})
		}
		return err
	}
	return c.Redirect(profileURL(user.Username), fiber.StatusFound)
}

// PostEdit handles GET and POST /posts/:id/edit/
// Anyone but the author is sent back to the post without changes.
func (s *Server) PostEdit(c *fiber.Ctx) error {
	ctx := c.UserContext()
	postID, err := parsePostID(c)
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	userID := currentUserID(c)
	if !s.postService.CanEdit(post, userID) {
		return c.Redirect(postURL(post.ID), fiber.StatusFound)
	}

	data := fiber.Map{
		"IsEdit":       true,
		"PostID":       post.ID,
		"CurrentImage": post.Image,
	}
	if c.Method() != fiber.MethodPost {
		data["Form"] = formFromPost(post)
		return s.renderPostForm(c, data)
	}

	form, err := bindPostForm(c)
	if err != nil {
		return err
	}
	if _, err := s.postService.EditPost(ctx, userID, post.ID, form); err != nil {
		if errs, ok := asFieldErrors(err); ok {
			data["Form"] = form
			data["Errors"] = errs
			return s.renderPostForm(c, data)
		}
		if models.ErrorCode(err) == models.CodeForbidden {
			return c.Redirect(postURL(post.ID), fiber.StatusFound)
		}
		return err
	}
	return c.Redirect(postURL(post.ID), fiber.StatusFound)
}

func (s *Server) renderPostForm(c *fiber.Ctx, data fiber.Map) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return err
	}
	data["Groups"] = groups
	if data["IsEdit"] == true {
		data["Title"] = "Edit post"
	} else {
		data["Title"] = "New post"
	}
	return s.render(c, fiber.StatusOK, "posts/create_post", data)
}

// AddComment handles POST /posts/:id/comment/ and POST /posts/:id/
// An invalid comment re-renders the post page with the form errors.
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := parsePostID(c)
	if err != nil {
		return err
	}
	form := forms.CommentForm{Text: c.FormValue("text")}
	if _, err := s.commentService.AddComment(c.UserContext(), currentUserID(c), postID, form); err != nil {
		if errs, ok := asFieldErrors(err); ok {
			return s.renderPostDetail(c, postID, form, errs)
		}
		return err
	}
	return c.Redirect(postURL(postID), fiber.StatusFound)
}

// FollowIndex handles GET /follow/
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	filter := repository.PostFilter{FollowerID: currentUserID(c)}
	page, err := s.postService.ListPosts(c.UserContext(), filter, c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts/follow", fiber.Map{
		"Title": "Following",
		"Page":  page,
	})
}

// ProfileFollow handles POST /profile/:username/follow/
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.followService.Follow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

// ProfileUnfollow handles POST /profile/:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(profileURL(author.Username), fiber.StatusFound)
}

// bindPostForm reads the multipart post form. A missing file is not an error.
func bindPostForm(c *fiber.Ctx) (forms.PostForm, error) {
	form := forms.PostForm{
		Text:       c.FormValue("text"),
		Group:      c.FormValue("group"),
		ClearImage: c.FormValue("image-clear") != "",
	}

	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return form, nil
		}
		return form, fiber.NewError(fiber.StatusBadRequest, "Unable to read uploaded file")
	}
	if file.Filename == "" || file.Size == 0 {
		return form, nil
	}

	src, err := file.Open()
	if err != nil {
		return form, fiber.NewError(fiber.StatusBadRequest, "Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return form, fiber.NewError(fiber.StatusBadRequest, "Unable to read uploaded file")
	}
	form.ImageName = file.Filename
	form.ImageData = content
	return form, nil
}

func formFromPost(post *models.Post) forms.PostForm {
	form := forms.PostForm{Text: post.Text}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return form
}

// parsePostID reads :id. Anything but a positive integer is a missing page.
func parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

func currentUserID(c *fiber.Ctx) uint {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}
