package service

import (
	"context"
	"errors"
	"testing"

	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/repository"
	"github.com/thorvik/keyward/internal/app/resolver"
)

func TestLinkService_CreateLink(t *testing.T) {
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			if link.ID == "" {
				t.Fatal("expected id to be generated")
			}
			if link.KeywordsKey != "keyword-a/keyword-b" {
				t.Fatalf("expected sorted keywords key, got %q", link.KeywordsKey)
			}
			return nil
		},
	}
	svc := NewLinkService(nil, repo, newFakeCache(), nil)

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		OwnerUserID:    "u1",
		Keywords:       []string{"keyword-b", "keyword-a"},
		DestinationURL: "https://example.com",
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
}

func TestLinkService_CreateLink_RejectsBadIdentifier(t *testing.T) {
	svc := NewLinkService(nil, &mockLinkRepository{}, newFakeCache(), nil)

	bad := "x"
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		Identifier:     &bad,
		Keywords:       []string{"cv"},
		DestinationURL: "https://example.com",
	})
	if !errors.Is(err, resolver.ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}

	reserved := "admin"
	_, err = svc.CreateLink(context.Background(), CreateLinkInput{
		Identifier:     &reserved,
		Keywords:       []string{"cv"},
		DestinationURL: "https://example.com",
	})
	if !errors.Is(err, resolver.ErrReservedIdentifier) {
		t.Fatalf("expected ErrReservedIdentifier, got %v", err)
	}
}

func TestLinkService_CreateLink_RejectsKeywordCount(t *testing.T) {
	svc := NewLinkService(nil, &mockLinkRepository{}, newFakeCache(), nil)

	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		Keywords:       nil,
		DestinationURL: "https://example.com",
	})
	if !errors.Is(err, ErrKeywordCount) {
		t.Fatalf("expected ErrKeywordCount, got %v", err)
	}

	_, err = svc.CreateLink(context.Background(), CreateLinkInput{
		Keywords:       []string{"a", "b", "c", "d", "e", "f"},
		DestinationURL: "https://example.com",
	})
	if !errors.Is(err, ErrKeywordCount) {
		t.Fatalf("expected ErrKeywordCount, got %v", err)
	}
}

func TestLinkService_UpdateInvalidatesOldAndNewKeys(t *testing.T) {
	stored := &model.Link{
		ID:             "l1",
		Keywords:       []string{"a", "b"},
		KeywordsKey:    model.KeywordSetKey([]string{"a", "b"}),
		DestinationURL: "https://old.example.com",
		IsActive:       true,
	}
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, id string) (*model.Link, error) {
			cp := *stored
			return &cp, nil
		},
	}
	fc := newFakeCache()
	ctx := context.Background()

	// Pre-populate every key that could serve the old combination.
	fc.Set(ctx, "url:keywords:a:b", "stale", 0)
	fc.Set(ctx, "url:keywords:a", "stale", 0)
	fc.Set(ctx, "url:keywords:b", "stale", 0)

	svc := NewLinkService(nil, repo, fc, nil)
	_, err := svc.UpdateLink(ctx, "l1", UpdateLinkInput{Keywords: []string{"c"}})
	if err != nil {
		t.Fatalf("UpdateLink returned error: %v", err)
	}

	for _, key := range []string{"url:keywords:a:b", "url:keywords:a", "url:keywords:b", "url:keywords:c"} {
		if _, ok := fc.Get(ctx, key); ok {
			t.Fatalf("expected key %q to be invalidated", key)
		}
	}
}

func TestLinkService_DeleteInvalidates(t *testing.T) {
	id := "john"
	stored := &model.Link{
		ID:          "l1",
		Identifier:  &id,
		Keywords:    []string{"cv"},
		KeywordsKey: "cv",
	}
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, linkID string) (*model.Link, error) {
			cp := *stored
			return &cp, nil
		},
	}
	fc := newFakeCache()
	ctx := context.Background()
	fc.Set(ctx, "url:identifier:john:keywords:cv", "stale", 0)

	svc := NewLinkService(nil, repo, fc, nil)
	if err := svc.DeleteLink(ctx, "l1"); err != nil {
		t.Fatalf("DeleteLink returned error: %v", err)
	}
	if _, ok := fc.Get(ctx, "url:identifier:john:keywords:cv"); ok {
		t.Fatal("expected identifier key to be invalidated")
	}
}

func TestLinkService_GetLink_NotFound(t *testing.T) {
	svc := NewLinkService(nil, &mockLinkRepository{}, newFakeCache(), nil)
	_, err := svc.GetLink(context.Background(), "missing")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}
