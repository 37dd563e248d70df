package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/baechuer/recsys-storefront/internal/domain"
)

type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// decodeError reads the backend's {"detail": ...} error body.
func decodeError(resp *http.Response) error {
	var body struct {
		Detail any `json:"detail"`
	}
	msg := fmt.Sprintf("unexpected status: %d", resp.StatusCode)
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			msg = s
		} else if b, err := json.Marshal(body.Detail); err == nil {
			msg = string(b)
		}
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Code:       "downstream_error",
		Message:    msg,
	}
}

func decodeJSON[T any](resp *http.Response) (T, error) {
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err)
	}
	return out, nil
}

// ProductQuery mirrors the backend's list filters.
type ProductQuery struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// CatalogClient reads products and recommendations. None of these calls need auth,
// except the personalised recommendations.
type CatalogClient struct {
	BaseURL string
	client  *Client
}

func NewCatalogClient(baseURL string, c *Client) *CatalogClient {
	return &CatalogClient{BaseURL: strings.TrimRight(baseURL, "/"), client: c}
}

func (c *CatalogClient) ListProducts(ctx context.Context, q ProductQuery) (*domain.ProductPage, error) {
	u := c.BaseURL + "/products/?" + q.Values().Encode()

	resp, err := c.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	page, err := decodeJSON[domain.ProductPage](resp)
	if err != nil {
		return nil, err
	}
	if page.Products == nil {
		page.Products = make([]domain.Product, 0)
	}
	return &page, nil
}

func (c *CatalogClient) GetProduct(ctx context.Context, productID int) (*domain.Product, error) {
	resp, err := c.client.Get(ctx, fmt.Sprintf("%s/products/%d", c.BaseURL, productID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	p, err := decodeJSON[domain.Product](resp)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *CatalogClient) GetRecommendations(ctx context.Context, productID, topK int) ([]domain.Product, error) {
	u := fmt.Sprintf("%s/recommendations/%d", c.BaseURL, productID)
	if topK > 0 {
		u += "?top_k=" + strconv.Itoa(topK)
	}
	return c.getProductList(ctx, u, "")
}

func (c *CatalogClient) GetUserRecommendations(ctx context.Context, userID domain.Identity, bearerToken string, topK int) ([]domain.Product, error) {
	u := fmt.Sprintf("%s/collab-recommendations/%s", c.BaseURL, url.PathEscape(userID.String()))
	if topK > 0 {
		u += "?top_k=" + strconv.Itoa(topK)
	}
	return c.getProductList(ctx, u, bearerToken)
}

func (c *CatalogClient) getProductList(ctx context.Context, u, bearerToken string) ([]domain.Product, error) {
	resp, err := c.client.Get(ctx, u, bearerHeaders(bearerToken))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	items, err := decodeJSON[[]domain.Product](resp)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]domain.Product, 0)
	}
	return items, nil
}

// InteractionClient records actions and reads a user's interaction log.
type InteractionClient struct {
	BaseURL string
	client  *Client
}

func NewInteractionClient(baseURL string, c *Client) *InteractionClient {
	return &InteractionClient{BaseURL: strings.TrimRight(baseURL, "/"), client: c}
}

// Record posts one interaction. Only transport failures are reported; the HTTP status
// is returned for logging and deliberately not interpreted.
func (c *InteractionClient) Record(ctx context.Context, kind domain.ActionKind, body domain.InteractionRequest, bearerToken string) (int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal interaction body: %w", err)
	}

	headers := bearerHeaders(bearerToken)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	resp, err := c.client.DoWithBody(ctx, http.MethodPost, c.BaseURL+kind.Endpoint(), bytes.NewReader(jsonBody), headers)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (c *InteractionClient) History(ctx context.Context, userID domain.Identity, bearerToken string) ([]domain.InteractionRecord, error) {
	u := fmt.Sprintf("%s/user/%s/history", c.BaseURL, url.PathEscape(userID.String()))

	resp, err := c.client.Get(ctx, u, bearerHeaders(bearerToken))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, domain.ErrUnauthorized
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	default:
		return nil, decodeError(resp)
	}

	h, err := decodeJSON[domain.UserHistory](resp)
	if err != nil {
		return nil, err
	}
	if h.History == nil {
		h.History = make([]domain.InteractionRecord, 0)
	}
	return h.History, nil
}

// AuthClient exchanges credentials for a bearer token.
type AuthClient struct {
	BaseURL string
	client  *Client
}

func NewAuthClient(baseURL string, c *Client) *AuthClient {
	return &AuthClient{BaseURL: strings.TrimRight(baseURL, "/"), client: c}
}

// Login posts the OAuth2 password form the backend expects.
func (c *AuthClient) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := c.client.DoWithBody(ctx, http.MethodPost, c.BaseURL+"/login", strings.NewReader(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	tok, err := decodeJSON[domain.Token](resp)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &StatusError{StatusCode: resp.StatusCode, Code: "downstream_error", Message: "login response carried no access_token"}
	}
	return &tok, nil
}
