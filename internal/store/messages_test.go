package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func seedMessages(s *Store, channelID string, ids ...string) {
	msgs := make([]Message, len(ids))
	for i, id := range ids {
		msgs[i] = Message{RawMessage: RawMessage{ID: id, ChannelID: channelID}}
	}
	tx := s.Begin()
	tx.SetMessages(channelID, msgs)
	tx.Commit()
}

func TestFetchAndCacheReversesToNewestFirst(t *testing.T) {
	calls := 0
	svc := &fakeServices{
		fetchMessages: func(_ context.Context, channelID string, opts FetchMessagesOptions) ([]RawMessage, error) {
			calls++
			if opts.Limit != DefaultFetchLimit {
				t.Errorf("limit = %d, want %d", opts.Limit, DefaultFetchLimit)
			}
			if opts.After != "" || opts.Before != "" {
				t.Errorf("cursors = %q/%q, want none on a first page", opts.After, opts.Before)
			}
			// Server order is oldest first.
			return []RawMessage{
				{ID: "m1", ChannelID: channelID, CreatedAt: 1},
				{ID: "m2", ChannelID: channelID, CreatedAt: 2},
			}, nil
		},
	}
	s := testStore(t, svc)

	if err := s.Messages.FetchAndCache(context.Background(), "c1", false); err != nil {
		t.Fatal(err)
	}
	msgs := s.Messages.ChannelMessages("c1")
	if len(msgs) != 2 || msgs[0].ID != "m2" || msgs[1].ID != "m1" {
		t.Fatalf("page = %v, want [m2 m1]", messageIDs(msgs))
	}

	// A second fetch without force is a no-op.
	if err := s.Messages.FetchAndCache(context.Background(), "c1", false); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
	if err := s.Messages.FetchAndCache(context.Background(), "c1", true); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("fetch calls after force = %d, want 2", calls)
	}
}

func TestLoadMoreAppendsOlderPage(t *testing.T) {
	var gotBefore string
	svc := &fakeServices{
		fetchMessages: func(_ context.Context, channelID string, opts FetchMessagesOptions) ([]RawMessage, error) {
			gotBefore = opts.Before
			// Older page, still oldest first.
			return []RawMessage{
				{ID: "m0", ChannelID: channelID, CreatedAt: 0},
				{ID: "m1", ChannelID: channelID, CreatedAt: 1},
			}, nil
		},
	}
	s := testStore(t, svc)
	seedMessages(s, "c1", "m3", "m2")

	if err := s.Messages.LoadMore(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if gotBefore != "m2" {
		t.Errorf("before cursor = %q, want m2", gotBefore)
	}
	msgs := s.Messages.ChannelMessages("c1")
	want := []string{"m3", "m2", "m1", "m0"}
	got := messageIDs(msgs)
	if len(got) != len(want) {
		t.Fatalf("page = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("page = %v, want %v", got, want)
		}
	}
}

func TestLoadMoreSkipsUncachedChannel(t *testing.T) {
	svc := &fakeServices{
		fetchMessages: func(ctx context.Context, channelID string, opts FetchMessagesOptions) ([]RawMessage, error) {
			t.Fatal("unexpected fetch for an uncached channel")
			return nil, nil
		},
	}
	s := testStore(t, svc)
	if err := s.Messages.LoadMore(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
}

func TestPostMessageOptimisticConfirm(t *testing.T) {
	var sawProvisional []Message
	var gotSocketID string
	var s *Store
	svc := &fakeServices{
		postMessage: func(_ context.Context, channelID, content, socketID string, _ *FileAttach) (*RawMessage, error) {
			// The provisional entry must already be visible while the
			// request is in flight.
			sawProvisional = s.Messages.ChannelMessages(channelID)
			gotSocketID = socketID
			return &RawMessage{ID: "srv-id", ChannelID: channelID, Content: content, CreatedAt: 42}, nil
		},
	}
	s = testStore(t, svc)
	loginSelf(s, "me")
	seedMessages(s, "c1", "m2", "m1")

	if err := s.Messages.PostMessage(context.Background(), "c1", "hello", nil); err != nil {
		t.Fatal(err)
	}

	if len(sawProvisional) != 3 {
		t.Fatalf("in-flight page = %v, want provisional at head", messageIDs(sawProvisional))
	}
	if sawProvisional[0].SentStatus != SentStatusSending || sawProvisional[0].Content != "hello" {
		t.Errorf("provisional = %+v, want sending 'hello'", sawProvisional[0])
	}
	if sawProvisional[0].CreatedBy.ID != "me" {
		t.Errorf("provisional author = %q, want me", sawProvisional[0].CreatedBy.ID)
	}
	if gotSocketID != "sock-1" {
		t.Errorf("socket id = %q, want sock-1", gotSocketID)
	}

	// Confirmation replaces in place: same length, canonical entry at the
	// provisional's slot.
	msgs := s.Messages.ChannelMessages("c1")
	if len(msgs) != 3 {
		t.Fatalf("page = %v, want 3 entries after confirm", messageIDs(msgs))
	}
	if msgs[0].ID != "srv-id" || msgs[0].SentStatus != SentStatusNone {
		t.Errorf("head = %+v, want confirmed srv-id", msgs[0])
	}
}

func TestPostMessageFailureKeepsFailedEntry(t *testing.T) {
	sendErr := errors.New("network down")
	svc := &fakeServices{
		postMessage: func(_ context.Context, _, _, _ string, _ *FileAttach) (*RawMessage, error) {
			return nil, sendErr
		},
	}
	s := testStore(t, svc)
	loginSelf(s, "me")
	seedMessages(s, "c1", "m1")

	err := s.Messages.PostMessage(context.Background(), "c1", "hello", nil)
	if !errors.Is(err, sendErr) {
		t.Fatalf("err = %v, want %v", err, sendErr)
	}

	msgs := s.Messages.ChannelMessages("c1")
	if len(msgs) != 2 {
		t.Fatalf("page = %v, want failed entry kept", messageIDs(msgs))
	}
	if msgs[0].SentStatus != SentStatusFailed {
		t.Errorf("head status = %v, want failed", msgs[0].SentStatus)
	}
}

func TestPostMessageRequiresLogin(t *testing.T) {
	s := testStore(t, &fakeServices{})
	if err := s.Messages.PostMessage(context.Background(), "c1", "hello", nil); err == nil {
		t.Fatal("expected error when not logged in")
	}
	if s.Messages.ChannelMessages("c1") != nil {
		t.Error("no provisional entry should be cached without a login")
	}
}

func TestPostMessageAttachmentPlaceholder(t *testing.T) {
	var inFlight []Message
	var s *Store
	svc := &fakeServices{
		postMessage: func(_ context.Context, channelID, content, _ string, att *FileAttach) (*RawMessage, error) {
			inFlight = s.Messages.ChannelMessages(channelID)
			if att == nil || att.Name != "cat.png" {
				t.Errorf("attachment = %+v, want cat.png", att)
			}
			return &RawMessage{ID: "srv-id", ChannelID: channelID, Content: content}, nil
		},
	}
	s = testStore(t, svc)
	loginSelf(s, "me")

	att := &FileAttach{Path: "/tmp/cat.png", Name: "cat.png", Mime: "image/png"}
	if err := s.Messages.PostMessage(context.Background(), "c1", "look", att); err != nil {
		t.Fatal(err)
	}
	if len(inFlight) != 1 || !strings.Contains(inFlight[0].Content, "Uploading cat.png") {
		t.Errorf("in-flight content = %q, want uploading placeholder", inFlight[0].Content)
	}
	// The placeholder never survives confirmation.
	if got := s.Messages.ChannelMessages("c1")[0].Content; got != "look" {
		t.Errorf("confirmed content = %q, want look", got)
	}
}

func TestAddMessageOnlyWhenCached(t *testing.T) {
	s := testStore(t, nil)

	tx := s.Begin()
	tx.AddMessage("c1", Message{RawMessage: RawMessage{ID: "m1", ChannelID: "c1"}})
	tx.Commit()
	if s.Messages.ChannelMessages("c1") != nil {
		t.Error("uncached channel must ignore incoming messages")
	}

	seedMessages(s, "c1", "m0")
	tx = s.Begin()
	tx.AddMessage("c1", Message{RawMessage: RawMessage{ID: "m1", ChannelID: "c1"}})
	tx.Commit()
	msgs := s.Messages.ChannelMessages("c1")
	if len(msgs) != 2 || msgs[0].ID != "m1" {
		t.Errorf("page = %v, want [m1 m0]", messageIDs(msgs))
	}
}

func TestUpdateAndDeleteMessage(t *testing.T) {
	s := testStore(t, nil)
	seedMessages(s, "c1", "m2", "m1")

	content := "edited"
	edited := int64(99)
	tx := s.Begin()
	tx.UpdateMessage("c1", "m1", MessagePatch{Content: &content, EditedAt: &edited})
	tx.Commit()
	msgs := s.Messages.ChannelMessages("c1")
	if msgs[1].Content != "edited" || msgs[1].EditedAt != 99 {
		t.Errorf("m1 = %+v, want edited", msgs[1])
	}

	tx = s.Begin()
	tx.DeleteMessage("c1", "m2")
	tx.DeleteMessage("c1", "ghost")
	tx.Commit()
	msgs = s.Messages.ChannelMessages("c1")
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("page = %v, want [m1]", messageIDs(msgs))
	}
}

func TestChannelPropertiesDraft(t *testing.T) {
	s := testStore(t, nil)

	s.Properties.SetContent("c1", "draft text")
	s.Properties.SetAttachment("c1", &FileAttach{Name: "a.png"})

	p := s.Properties.Get("c1")
	if p == nil || p.Content != "draft text" || p.Attachment == nil {
		t.Fatalf("property = %+v, want draft with attachment", p)
	}

	s.Properties.SetAttachment("c1", nil)
	if p := s.Properties.Get("c1"); p.Attachment != nil {
		t.Error("attachment not cleared")
	}

	s.Reset()
	if s.Properties.Get("c1") != nil {
		t.Error("drafts not cleared on reset")
	}
}

func messageIDs(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}
