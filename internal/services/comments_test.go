package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"inkblog/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type commentFixture struct {
	db        *gorm.DB
	svc       *CommentService
	reactions *ReactionService
	flags     *FlagService
	mailer    *fakeMailer
	notifier  *Notifier
	article   *models.Article
	author    *models.User
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	gdb := newTestDB(t)
	cfg := testBlogConfig()

	mailer := &fakeMailer{}
	notifier, err := NewNotifier(mailer, siteForTest(), zerolog.Nop())
	require.NoError(t, err)

	author := createUser(t, gdb, "alice", "alice@example.com", "")
	article := createArticle(t, gdb, author, "hello", models.StatusPublished, time.Now())

	return &commentFixture{
		db:        gdb,
		svc:       NewCommentService(gdb, cfg, RoleAuthorizer{}, newRegistry(gdb), notifier, zerolog.Nop()),
		reactions: NewReactionService(gdb, zerolog.Nop()),
		flags:     NewFlagService(gdb, cfg, RoleAuthorizer{}, zerolog.Nop()),
		mailer:    mailer,
		notifier:  notifier,
		article:   article,
		author:    author,
	}
}

func (f *commentFixture) input(content string, parentID *uint) CreateCommentInput {
	return CreateCommentInput{App: "blog", Model: "article", ObjectID: f.article.ID, Content: content, ParentID: parentID}
}

func TestCreate_TopLevelAndReplyFragments(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	bob := createUser(t, f.db, "bob", "", "")

	top, err := f.svc.Create(ctx, f.input("  first!  ", nil), bob)
	require.NoError(t, err)
	assert.Equal(t, FragmentParent, top.Fragment)
	assert.Equal(t, "first!", top.Comment.Content)
	assert.True(t, top.Comment.IsParent())
	assert.Equal(t, ArticleContentType, top.Comment.ContentType)

	reply, err := f.svc.Create(ctx, f.input("reply", &top.Comment.ID), f.author)
	require.NoError(t, err)
	assert.Equal(t, FragmentChild, reply.Fragment)
	require.NotNil(t, reply.Comment.ParentID)
	assert.Equal(t, top.Comment.ID, *reply.Comment.ParentID)

	_, err = f.svc.Create(ctx, f.input("too deep", &reply.Comment.ID), bob)
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)
	assert.ErrorIs(t, err, ErrBadRequest)

	f.notifier.Wait()
}

func TestCreate_MissingParentFallsBackToTopLevel(t *testing.T) {
	f := newCommentFixture(t)
	bob := createUser(t, f.db, "bob", "", "")
	missing := uint(4242)

	res, err := f.svc.Create(context.Background(), f.input("orphan", &missing), bob)
	require.NoError(t, err)
	assert.Nil(t, res.Comment.ParentID)
	assert.Equal(t, FragmentParent, res.Fragment)
	f.notifier.Wait()
}

func TestCreate_ParentOnAnotherTarget(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	bob := createUser(t, f.db, "bob", "", "")
	other := createArticle(t, f.db, f.author, "other", models.StatusPublished, time.Now())

	elsewhere := createComment(t, f.db, other, bob, nil, time.Now())
	_, err := f.svc.Create(ctx, f.input("cross", &elsewhere.ID), bob)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestCreate_Validation(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	bob := createUser(t, f.db, "bob", "", "")

	_, err := f.svc.Create(ctx, f.input("   ", nil), bob)
	assert.ErrorIs(t, err, ErrInvalidContent)

	_, err = f.svc.Create(ctx, f.input(strings.Repeat("x", 3001), nil), bob)
	assert.ErrorIs(t, err, ErrInvalidContent)

	_, err = f.svc.Create(ctx, f.input("hi", nil), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Create(ctx, CreateCommentInput{App: "shop", Model: "product", ObjectID: 1, Content: "hi"}, bob)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Create(ctx, CreateCommentInput{App: "blog", Model: "article", ObjectID: 9999, Content: "hi"}, bob)
	assert.ErrorIs(t, err, ErrNotFound)

	draft := createArticle(t, f.db, f.author, "draft", models.StatusDraft, time.Now())
	_, err = f.svc.Create(ctx, CreateCommentInput{App: "blog", Model: "article", ObjectID: draft.ID, Content: "hi"}, bob)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := f.svc.Count(ctx, ArticleContentType, f.article.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdate_OnlyAuthor(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	bob := createUser(t, f.db, "bob", "", "")
	admin := createUser(t, f.db, "root", "", models.RoleAdmin)
	c := createComment(t, f.db, f.article, bob, nil, time.Now())

	_, err := f.svc.Update(ctx, c.ID, "changed", admin)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Update(ctx, c.ID, "", bob)
	assert.ErrorIs(t, err, ErrInvalidContent)

	updated, err := f.svc.Update(ctx, c.ID, "changed", bob)
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Content)
	assert.True(t, updated.IsEdited())

	stored, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", stored.Content)
	assert.NotNil(t, stored.Edited)

	_, err = f.svc.Update(ctx, 9999, "x", bob)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_Permissions(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	bob := createUser(t, f.db, "bob", "", "")
	carol := createUser(t, f.db, "carol", "", "")
	mod := createUser(t, f.db, "mod", "", models.RoleModerator)
	admin := createUser(t, f.db, "root", "", models.RoleAdmin)

	tests := []struct {
		name      string
		requester *models.User
		flagged   bool
		wantErr   error
	}{
		{name: "author", requester: bob},
		{name: "admin", requester: admin},
		{name: "moderator on flagged comment", requester: mod, flagged: true},
		{name: "moderator on clean comment", requester: mod, wantErr: ErrPermissionDenied},
		{name: "other user", requester: carol, wantErr: ErrPermissionDenied},
		{name: "other user on flagged comment", requester: carol, flagged: true, wantErr: ErrPermissionDenied},
		{name: "anonymous", requester: nil, wantErr: ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createComment(t, f.db, f.article, bob, nil, time.Now())
			if tt.flagged {
				_, err := f.flags.RaiseFlag(ctx, c.ID, carol, models.ReasonSpam, "")
				require.NoError(t, err)
			}

			err := f.svc.Delete(ctx, c.ID, tt.requester)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, getErr := f.svc.Get(ctx, c.ID)
				assert.NoError(t, getErr, "comment must survive a denied delete")
				return
			}
			require.NoError(t, err)
			_, getErr := f.svc.Get(ctx, c.ID)
			assert.ErrorIs(t, getErr, ErrNotFound)
		})
	}

	assert.ErrorIs(t, f.svc.Delete(ctx, 9999, admin), ErrNotFound)
}

func TestDelete_CascadesToRepliesReactionsAndFlags(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	bob := createUser(t, f.db, "bob", "", "")
	carol := createUser(t, f.db, "carol", "", "")

	parent := createComment(t, f.db, f.article, bob, nil, time.Now())
	child := createComment(t, f.db, f.article, carol, parent, time.Now())
	keep := createComment(t, f.db, f.article, carol, nil, time.Now())

	_, err := f.reactions.SetReaction(ctx, parent.ID, carol, models.ReactionLike)
	require.NoError(t, err)
	_, err = f.reactions.SetReaction(ctx, child.ID, bob, models.ReactionDislike)
	require.NoError(t, err)
	_, err = f.reactions.SetReaction(ctx, keep.ID, bob, models.ReactionLike)
	require.NoError(t, err)
	_, err = f.flags.RaiseFlag(ctx, child.ID, bob, models.ReasonAbusive, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, parent.ID, bob))

	var n int64
	require.NoError(t, f.db.Model(&models.Comment{}).Count(&n).Error)
	assert.EqualValues(t, 1, n, "only the unrelated comment remains")
	require.NoError(t, f.db.Model(&models.Reaction{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	require.NoError(t, f.db.Model(&models.ReactionInstance{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	require.NoError(t, f.db.Model(&models.Flag{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, f.db.Model(&models.FlagInstance{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestThread(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	bob := createUser(t, f.db, "bob", "", "")
	carol := createUser(t, f.db, "carol", "", "")
	base := time.Now().Add(-time.Hour)

	first := createComment(t, f.db, f.article, bob, nil, base)
	second := createComment(t, f.db, f.article, carol, nil, base.Add(time.Minute))
	createComment(t, f.db, f.article, carol, first, base.Add(2*time.Minute))
	createComment(t, f.db, f.article, f.author, first, base.Add(3*time.Minute))

	_, err := f.reactions.SetReaction(ctx, first.ID, carol, models.ReactionLike)
	require.NoError(t, err)
	_, err = f.reactions.SetReaction(ctx, first.ID, f.author, models.ReactionDislike)
	require.NoError(t, err)
	_, err = f.flags.RaiseFlag(ctx, second.ID, bob, models.ReasonSpam, "")
	require.NoError(t, err)

	thread, err := f.svc.Thread(ctx, ArticleContentType, f.article.ID, bob)
	require.NoError(t, err)
	require.Len(t, thread, 2)

	assert.Equal(t, first.ID, thread[0].Comment.ID)
	assert.Equal(t, "bob", thread[0].Comment.User.Username)
	assert.Equal(t, 1, thread[0].Likes)
	assert.Equal(t, 1, thread[0].Dislikes)
	assert.True(t, thread[0].CanEdit)
	assert.True(t, thread[0].CanDelete)
	require.Len(t, thread[0].Replies, 2)
	assert.Equal(t, "carol", thread[0].Replies[0].Comment.User.Username)
	assert.False(t, thread[0].Replies[0].CanEdit)

	assert.Equal(t, second.ID, thread[1].Comment.ID)
	assert.True(t, thread[1].ViewerFlagged)
	assert.Empty(t, thread[1].Replies)

	asCarol, err := f.svc.Thread(ctx, ArticleContentType, f.article.ID, carol)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLike, asCarol[0].ViewerReaction)

	anon, err := f.svc.Thread(ctx, ArticleContentType, f.article.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionNone, anon[0].ViewerReaction)
	assert.False(t, anon[0].CanDelete)
}
