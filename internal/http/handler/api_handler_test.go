package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/repository"
	"github.com/thorvik/keyward/internal/app/service"
)

type stubLinkService struct {
	createFn func(ctx context.Context, input service.CreateLinkInput) (*model.Link, error)
	getFn    func(ctx context.Context, id string) (*model.Link, error)
	updateFn func(ctx context.Context, id string, input service.UpdateLinkInput) (*model.Link, error)
	deleteFn func(ctx context.Context, id string) error
}

func (s *stubLinkService) CreateLink(ctx context.Context, input service.CreateLinkInput) (*model.Link, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, repository.ErrLinkNotFound
}

func (s *stubLinkService) GetLink(ctx context.Context, id string) (*model.Link, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, repository.ErrLinkNotFound
}

func (s *stubLinkService) ListLinks(context.Context, string, int, int) ([]model.Link, error) {
	return nil, nil
}

func (s *stubLinkService) UpdateLink(ctx context.Context, id string, input service.UpdateLinkInput) (*model.Link, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input)
	}
	return nil, repository.ErrLinkNotFound
}

func (s *stubLinkService) DeleteLink(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return repository.ErrLinkNotFound
}

func newAPIApp(svc service.LinkService) *fiber.App {
	app := fiber.New()
	NewAPIHandler(APIDeps{LinkService: svc}).Register(app)
	return app
}

func TestCreateLink_Created(t *testing.T) {
	svc := &stubLinkService{
		createFn: func(_ context.Context, input service.CreateLinkInput) (*model.Link, error) {
			return &model.Link{
				ID:             "link-1",
				OwnerUserID:    input.OwnerUserID,
				Keywords:       input.Keywords,
				DestinationURL: input.DestinationURL,
				IsActive:       true,
			}, nil
		},
	}
	app := newAPIApp(svc)

	body := `{"owner_user_id":"u1","keywords":["portfolio"],"destination_url":"https://example.com"}`
	req := httptest.NewRequest("POST", "/api/links", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out LinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out.ID != "link-1" || out.DestinationURL != "https://example.com" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestCreateLink_MissingDestinationIs400(t *testing.T) {
	app := newAPIApp(&stubLinkService{})

	req := httptest.NewRequest("POST", "/api/links", strings.NewReader(`{"keywords":["a"]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateLink_RouteTakenIs409(t *testing.T) {
	svc := &stubLinkService{
		createFn: func(context.Context, service.CreateLinkInput) (*model.Link, error) {
			return nil, repository.ErrRouteTaken
		},
	}
	app := newAPIApp(svc)

	body := `{"keywords":["portfolio"],"destination_url":"https://example.com"}`
	req := httptest.NewRequest("POST", "/api/links", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateLink_KeywordCountIs400(t *testing.T) {
	svc := &stubLinkService{
		createFn: func(context.Context, service.CreateLinkInput) (*model.Link, error) {
			return nil, service.ErrKeywordCount
		},
	}
	app := newAPIApp(svc)

	body := `{"keywords":[],"destination_url":"https://example.com"}`
	req := httptest.NewRequest("POST", "/api/links", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetLink_NotFoundIs404(t *testing.T) {
	app := newAPIApp(&stubLinkService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/links/nope", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateLink_PassesInputThrough(t *testing.T) {
	var gotID string
	var gotInput service.UpdateLinkInput
	svc := &stubLinkService{
		updateFn: func(_ context.Context, id string, input service.UpdateLinkInput) (*model.Link, error) {
			gotID, gotInput = id, input
			return &model.Link{ID: id, Keywords: input.Keywords, IsActive: true}, nil
		},
	}
	app := newAPIApp(svc)

	body := `{"keywords":["resume"],"clear_identifier":true}`
	req := httptest.NewRequest("PATCH", "/api/links/link-7", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotID != "link-7" {
		t.Fatalf("unexpected id %q", gotID)
	}
	if !gotInput.ClearIdentifier || len(gotInput.Keywords) != 1 || gotInput.Keywords[0] != "resume" {
		t.Fatalf("unexpected input %+v", gotInput)
	}
}

func TestDeleteLink_NoContent(t *testing.T) {
	svc := &stubLinkService{
		deleteFn: func(context.Context, string) error { return nil },
	}
	app := newAPIApp(svc)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/links/link-1", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}
