package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhall/models"
	"unionhall/snapshot"
	"unionhall/thread"
)

func text(s string) *string { return &s }

func seed(f *fakeRemote) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.posts["P1"] = &models.Post{ID: "P1", Board: models.BoardFree, Title: "old", Content: text("a"), CreatedAt: base}
	f.posts["P2"] = &models.Post{ID: "P2", Board: models.BoardFree, Title: "new", Content: text("b"), CreatedAt: base.Add(time.Hour), Password: "1234"}
	f.posts["P123"] = &models.Post{ID: "P123", Board: models.BoardFree, Title: "thread", Content: text("c"), CreatedAt: base.Add(-time.Hour),
		Comments: []models.Comment{{ID: "c1", Author: "Kim", Content: "first"}}}
	f.members["m1"] = &models.Member{ID: "m1", Name: "Lee", Garage: "North Garage"}
	f.settings = &models.SiteSettings{Greeting: "hi"}
}

func loaded(t *testing.T) (*Store, *fakeRemote, snapshot.Store) {
	t.Helper()
	remote := newFakeRemote()
	seed(remote)
	local := snapshot.NewMemoryStore()
	s := New(local, remote)
	require.Equal(t, Applied, s.LoadAll(context.Background()).Status)
	return s, remote, local
}

func TestLoadAllFromRemote(t *testing.T) {
	s, _, local := loaded(t)

	posts := s.Posts()
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"P2", "P1", "P123"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	for _, p := range posts {
		assert.False(t, p.Detailed(), "list posts are light")
	}
	assert.Len(t, s.Members(), 1)
	assert.Equal(t, "hi", s.Settings().Greeting)

	var persisted []*models.Post
	require.NoError(t, local.Load(snapshot.KeyPosts, &persisted))
	assert.Len(t, persisted, 3)
}

func TestLoadAllFallsBackToSnapshot(t *testing.T) {
	local := snapshot.NewMemoryStore()
	require.NoError(t, local.Save(snapshot.KeyPosts, []*models.Post{{ID: "L1", Board: models.BoardFree}}))
	require.NoError(t, local.Save(snapshot.KeyTrash, []*models.Post{{ID: "T1", Board: models.BoardFree}}))

	s := New(local, nil)
	assert.Equal(t, Applied, s.LoadAll(context.Background()).Status)
	require.Len(t, s.Posts(), 1)
	assert.Equal(t, "L1", s.Posts()[0].ID)
	assert.Equal(t, "T1", s.Trash()[0].ID)
	assert.Nil(t, s.Settings())

	remote := newFakeRemote()
	remote.fail = true
	s = New(local, remote)
	o := s.LoadAll(context.Background())
	assert.Equal(t, LocalOnly, o.Status)
	assert.ErrorIs(t, o.Err, errOffline)
	assert.Equal(t, "L1", s.Posts()[0].ID)
}

func TestLoadAllFailureKeepsPreviousState(t *testing.T) {
	s, remote, _ := loaded(t)
	remote.fail = true
	s.local = snapshot.NewMemoryStore()

	o := s.LoadAll(context.Background())
	assert.Equal(t, LocalOnly, o.Status)
	assert.Len(t, s.Posts(), 3)
	assert.Equal(t, "hi", s.Settings().Greeting)
}

func TestSavePostCreatesAndPersists(t *testing.T) {
	s, remote, local := loaded(t)

	p := &models.Post{Board: models.BoardFree, Title: "brand new", Content: text("x"), Author: "Lee"}
	o := s.SavePost(context.Background(), p)
	assert.Equal(t, Applied, o.Status)
	require.NotEmpty(t, p.ID)
	assert.Equal(t, p.ID, s.Posts()[0].ID, "newest first")

	var persisted []*models.Post
	require.NoError(t, local.Load(snapshot.KeyPosts, &persisted))
	assert.Len(t, persisted, 4)
	assert.Contains(t, remote.posts, p.ID)

	o = s.SavePost(context.Background(), &models.Post{Board: "bogus"})
	assert.Equal(t, Rejected, o.Status)
	assert.Len(t, s.Posts(), 4)
}

func TestRemoteFailureKeepsOptimisticChange(t *testing.T) {
	s, remote, _ := loaded(t)
	remote.fail = true

	p := &models.Post{Board: models.BoardFree, Title: "offline"}
	o := s.SavePost(context.Background(), p)
	assert.Equal(t, LocalOnly, o.Status)
	assert.True(t, o.Changed())
	assert.ErrorIs(t, o.Err, errOffline)
	assert.NotNil(t, s.Post(p.ID), "read-your-writes survives the failure")
}

func TestPinnedPostsSortFirst(t *testing.T) {
	s, _, _ := loaded(t)
	p := s.Post("P123")
	pinned := *p
	pinned.Pinned = true
	require.Equal(t, Applied, s.SavePost(context.Background(), &pinned).Status)

	assert.Equal(t, "P123", s.Posts()[0].ID)
	assert.NotNil(t, s.Posts()[0].PinnedAt)
}

func TestDeletePostMovesToTrash(t *testing.T) {
	s, remote, local := loaded(t)
	before := s.Post("P1")
	require.NotNil(t, before)

	o := s.DeletePost(context.Background(), "P1")
	assert.Equal(t, Applied, o.Status)

	assert.Nil(t, s.Post("P1"))
	got, _ := thread.Find(s.Trash(), "P1")
	require.NotNil(t, got)
	assert.True(t, got.Detailed(), "the full post is fetched before it leaves the remote")
	assert.Equal(t, before.Title, got.Title)
	assert.Equal(t, []string{"P1"}, remote.deletes)

	var trash []*models.Post
	require.NoError(t, local.Load(snapshot.KeyTrash, &trash))
	assert.Equal(t, "P1", trash[0].ID)

	assert.Equal(t, Rejected, s.DeletePost(context.Background(), "P1").Status)
}

func TestPurgeAndRestore(t *testing.T) {
	s, remote, _ := loaded(t)
	s.DeletePost(context.Background(), "P1")
	s.DeletePost(context.Background(), "P2")

	assert.Equal(t, Applied, s.PurgePost("P1").Status)
	assert.Len(t, s.Trash(), 1)
	assert.Equal(t, Rejected, s.PurgePost("P1").Status)

	assert.Equal(t, Applied, s.RestorePost(context.Background(), "P2").Status)
	assert.Empty(t, s.Trash())
	assert.NotNil(t, s.Post("P2"))
	assert.Contains(t, remote.posts, "P2")
}

func TestRestoreOfListViewPostKeepsBody(t *testing.T) {
	s, remote, _ := loaded(t)
	ctx := context.Background()
	require.False(t, s.Post("P123").Detailed())

	require.Equal(t, Applied, s.DeletePost(ctx, "P123").Status)
	require.True(t, s.Trash()[0].Detailed(), "trash keeps the full post")
	assert.NotContains(t, remote.posts, "P123")

	require.Equal(t, Applied, s.RestorePost(ctx, "P123").Status)
	restored := remote.posts["P123"]
	require.NotNil(t, restored)
	require.NotNil(t, restored.Content)
	assert.Equal(t, "c", *restored.Content)
	require.Len(t, restored.Comments, 1)
	assert.Equal(t, "first", restored.Comments[0].Content)
}

func TestDeleteWithoutDetailChangesNothing(t *testing.T) {
	s, remote, _ := loaded(t)
	remote.fail = true

	o := s.DeletePost(context.Background(), "P123")
	assert.Equal(t, Rejected, o.Status)
	assert.ErrorIs(t, o.Err, ErrDetailUnavailable)
	assert.NotNil(t, s.Post("P123"))
	assert.Empty(t, s.Trash())
	assert.Contains(t, remote.posts, "P123")
}

func TestRestoreRejectsLightTrashEntry(t *testing.T) {
	local := snapshot.NewMemoryStore()
	require.NoError(t, local.Save(snapshot.KeyTrash, []*models.Post{{ID: "T1", Board: models.BoardFree, Title: "old"}}))
	remote := newFakeRemote()
	s := New(local, remote)
	s.LoadAll(context.Background())

	o := s.RestorePost(context.Background(), "T1")
	assert.Equal(t, Rejected, o.Status)
	assert.ErrorIs(t, o.Err, ErrDetailUnavailable)
	assert.Len(t, s.Trash(), 1)
	assert.Zero(t, remote.upserts)
}

func TestAddCommentFetchesDetailFirst(t *testing.T) {
	s, remote, _ := loaded(t)
	require.False(t, s.Post("P123").Detailed())

	c := thread.NewComment("Lee", nil, "hello")
	o := s.AddComment(context.Background(), "P123", "", c)
	assert.Equal(t, Applied, o.Status)

	p := s.Post("P123")
	require.Len(t, p.Comments, 2)
	assert.Equal(t, "first", p.Comments[0].Content)
	assert.Equal(t, "hello", p.Comments[1].Content)
	assert.Equal(t, "c", *p.Content)
	assert.Len(t, remote.posts["P123"].Comments, 2)
}

func TestCommentOpsLeaveOtherPostsShared(t *testing.T) {
	s, _, _ := loaded(t)
	s.FetchPostDetail(context.Background(), "P123")
	before := s.Posts()

	require.Equal(t, Applied, s.AddComment(context.Background(), "P123", "c1", thread.NewComment("Lee", nil, "re")).Status)
	after := s.Posts()
	for i := range before {
		if before[i].ID == "P123" {
			assert.NotSame(t, before[i], after[i])
		} else {
			assert.Same(t, before[i], after[i])
		}
	}

	p := s.Post("P123")
	replyID := p.Comments[0].Replies[0].ID
	require.Equal(t, Applied, s.EditComment(context.Background(), "P123", replyID, "c1", "edited").Status)
	assert.Equal(t, "edited", s.Post("P123").Comments[0].Replies[0].Content)

	require.Equal(t, Applied, s.DeleteComment(context.Background(), "P123", "c1", "").Status)
	assert.Empty(t, s.Post("P123").Comments)

	assert.Equal(t, Rejected, s.DeleteComment(context.Background(), "P123", "c1", "").Status)
}

func TestCommentWithoutDetailChangesNothing(t *testing.T) {
	s, remote, _ := loaded(t)
	remote.fail = true

	o := s.AddComment(context.Background(), "P123", "", thread.NewComment("Lee", nil, "hello"))
	assert.Equal(t, Rejected, o.Status)
	assert.ErrorIs(t, o.Err, ErrDetailUnavailable)
	assert.Nil(t, s.Post("P123").Comments)

	remote.fail = false
	p, fetched := s.FetchPostDetail(context.Background(), "P123")
	require.Equal(t, Applied, fetched.Status)
	require.Len(t, p.Comments, 1)
	assert.Equal(t, "first", p.Comments[0].Content)

	// once the detail is in, the comment goes through and survives a refetch
	require.Equal(t, Applied, s.AddComment(context.Background(), "P123", "", thread.NewComment("Lee", nil, "hello")).Status)
	p, _ = s.FetchPostDetail(context.Background(), "P123")
	require.Len(t, p.Comments, 2)
	assert.Equal(t, "hello", p.Comments[1].Content)
}

func TestFetchPostDetailKeepsLocalViews(t *testing.T) {
	s, remote, _ := loaded(t)
	remote.fail = true
	s.IncrementViews("P1")
	s.IncrementViews("P1")
	s.Wait()
	remote.fail = false

	p, o := s.FetchPostDetail(context.Background(), "P1")
	assert.Equal(t, Applied, o.Status)
	assert.True(t, p.Detailed())
	assert.Equal(t, 2, p.Views)
	assert.Same(t, p, s.Post("P1"))
}

func TestIncrementViews(t *testing.T) {
	s, remote, _ := loaded(t)
	before := s.Post("P1")

	s.IncrementViews("P1")
	s.Wait()

	assert.Equal(t, 1, s.Post("P1").Views)
	assert.Equal(t, 0, before.Views, "previous pointer untouched")
	assert.Equal(t, 1, remote.views["P1"])

	s.IncrementViews("missing")
	s.Wait()
}

func TestCheckPostPassword(t *testing.T) {
	s, _, _ := loaded(t)

	ok, o := s.CheckPostPassword(context.Background(), "P2", "1234")
	assert.True(t, ok)
	assert.Equal(t, Applied, o.Status)

	ok, _ = s.CheckPostPassword(context.Background(), "P2", "0000")
	assert.False(t, ok)

	local := &models.Post{Board: models.BoardFree, Title: "t", Password: "pw"}
	s.SavePost(context.Background(), local)
	ok, _ = s.CheckPostPassword(context.Background(), local.ID, "pw")
	assert.True(t, ok)

	_, o = s.CheckPostPassword(context.Background(), "missing", "pw")
	assert.Equal(t, Rejected, o.Status)
}

func TestMembers(t *testing.T) {
	s, remote, local := loaded(t)

	assert.Len(t, s.PendingMembers(), 1)
	assert.Equal(t, Applied, s.ApproveMember(context.Background(), "m1").Status)
	assert.True(t, s.Member("m1").IsApproved)
	assert.True(t, remote.members["m1"].IsApproved)
	assert.Empty(t, s.PendingMembers())

	assert.Equal(t, Applied, s.AddMember(&models.Member{ID: "m2", Name: "Park"}).Status)
	assert.Equal(t, "m2", s.Members()[0].ID)

	assert.Equal(t, Applied, s.RemoveMember(context.Background(), "m1").Status)
	assert.Nil(t, s.Member("m1"))
	assert.NotContains(t, remote.members, "m1")
	assert.Equal(t, Rejected, s.RemoveMember(context.Background(), "m1").Status)
	assert.Equal(t, Rejected, s.ApproveMember(context.Background(), "nope").Status)

	var persisted []*models.Member
	require.NoError(t, local.Load(snapshot.KeyMembers, &persisted))
	assert.Len(t, persisted, 1)
}

func TestUpdateSettings(t *testing.T) {
	s, remote, _ := loaded(t)
	remote.fail = true

	o := s.UpdateSettings(context.Background(), models.SiteSettings{Greeting: "welcome"})
	assert.Equal(t, LocalOnly, o.Status)
	assert.Equal(t, "welcome", s.Settings().Greeting)
	assert.Equal(t, "hi", remote.settings.Greeting)
}

func TestSortPosts(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	posts := []*models.Post{
		{ID: "a", CreatedAt: t0},
		{ID: "b", CreatedAt: t1},
		{ID: "c", CreatedAt: t0, Pinned: true, PinnedAt: &t0},
		{ID: "d", CreatedAt: t0, Pinned: true, PinnedAt: &t1},
	}
	got := SortPosts(posts)
	assert.Equal(t, []string{"d", "c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
	assert.Equal(t, "a", posts[0].ID, "input order untouched")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "local-only", LocalOnly.String())
	assert.Equal(t, "rejected", Rejected.String())
}
