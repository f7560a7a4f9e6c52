package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"salescoach/utils"
)

// TokenVerifier resolves a bearer token to the authenticated user's ID.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

// SupabaseTokenVerifier validates access tokens against the Supabase auth
// endpoint. The anon/service key goes in the apikey header, the user token
// in the Authorization header.
type SupabaseTokenVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSupabaseTokenVerifier(baseURL, apiKey string) *SupabaseTokenVerifier {
	return &SupabaseTokenVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *SupabaseTokenVerifier) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return uuid.Nil, fmt.Errorf("token rejected with status %d", resp.StatusCode)
	}

	var user struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode auth response: %w", err)
	}
	if user.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("auth response contained no user id")
	}
	return user.ID, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated user's ID in c.Locals("userID") for downstream handlers.
func RequireAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return utils.RespondWithCode(c, fiber.StatusUnauthorized, "Authorization required", "UNAUTHORIZED")
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return utils.RespondWithCode(c, fiber.StatusUnauthorized, "Authorization required", "UNAUTHORIZED")
		}

		userID, err := verifier.Verify(c.Context(), token)
		if err != nil {
			return utils.RespondWithCode(c, fiber.StatusUnauthorized, "Invalid or expired token", "INVALID_TOKEN")
		}

		c.Locals("userID", userID)
		return c.Next()
	}
}

// UserID returns the authenticated user set by RequireAuth.
func UserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("userID").(uuid.UUID)
	return id
}
