package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/handler"
	"github.com/noah-isme/lifegpa-api/internal/service"
)

type mockSeedService struct {
	err       error
	lastToken string
	lastReq   dto.SeedCategoriesRequest
	affected  int64
}

func (m *mockSeedService) SeedCategories(_ context.Context, token string, req dto.SeedCategoriesRequest) (int64, error) {
	m.lastToken = token
	m.lastReq = req
	if m.err != nil {
		return 0, m.err
	}
	return m.affected, nil
}

func seedRequest(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	body, err := json.Marshal(dto.SeedCategoriesRequest{UserID: "u1", Names: []string{"Health", "Career"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/tools/seed/categories", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seed-Token", token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSeedHandler_CategoriesSuccess(t *testing.T) {
	svc := &mockSeedService{affected: 2}
	app := fiber.New()
	handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v2/tools/seed"))

	resp := seedRequest(t, app, "secret")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Affected int64 `json:"affected"`
		} `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, int64(2), response.Data.Affected)
	require.Equal(t, "secret", svc.lastToken)
	require.Equal(t, []string{"Health", "Career"}, svc.lastReq.Names)
}

func TestSeedHandler_Errors(t *testing.T) {
	cases := map[error]int{
		service.ErrSeedDisabled:     fiber.StatusForbidden,
		service.ErrSeedUnauthorized: fiber.StatusForbidden,
		io.ErrUnexpectedEOF:         fiber.StatusInternalServerError,
	}

	for err, status := range cases {
		app := fiber.New()
		handler.NewSeedHandler(&mockSeedService{err: err}, zerolog.New(io.Discard)).Register(app.Group("/api/v2/tools/seed"))

		resp := seedRequest(t, app, "token")
		require.Equal(t, status, resp.StatusCode, err.Error())
	}
}

func TestSeedHandler_InvalidPayload(t *testing.T) {
	app := fiber.New()
	handler.NewSeedHandler(&mockSeedService{}, zerolog.New(io.Discard)).Register(app.Group("/api/v2/tools/seed"))

	req := httptest.NewRequest(http.MethodPost, "/api/v2/tools/seed/categories", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}
