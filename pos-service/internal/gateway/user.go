package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_pos/pos-service/internal/domain"
)

// RegisterRequest is the employee sign-up payload. The password travels
// already hashed.
type RegisterRequest struct {
	Name         string `json:"nombre"`
	Surname      string `json:"apellido"`
	StoreID      string `json:"tiendaId"`
	Role         string `json:"puesto"`
	Username     string `json:"usuario"`
	PasswordHash string `json:"contrasenaHash"`
}

type LoginResponse struct {
	Token    string
	Employee domain.Employee
}

type loginRequest struct {
	Username string `json:"usuario"`
	Password string `json:"password"`
}

type loginWire struct {
	Token    string           `json:"token"`
	Empleado *domain.Employee `json:"empleado"`
	User     *domain.Employee `json:"user"`
	Data     *loginWire       `json:"data"`
}

type messageWire struct {
	Message string `json:"message"`
}

func (c *Client) GetStores(ctx context.Context) ([]domain.Store, error) {
	body, err := c.do(ctx, http.MethodGet, "/user/tiendas", nil)
	if err != nil {
		return nil, err
	}
	raws, err := unwrapList(body)
	if err != nil {
		return nil, fmt.Errorf("stores: %w", err)
	}
	return normalizeStores(raws), nil
}

// Register creates an employee account and returns the backend's message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var out messageWire
	if err := c.doJSON(ctx, http.MethodPost, "/user/", req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Login exchanges credentials for a token and the employee record.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out loginWire
	if err := c.doJSON(ctx, http.MethodPut, "/user/", loginRequest{Username: username, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.Data != nil && out.Token == "" {
		out = *out.Data
	}

	emp := out.Empleado
	if emp == nil {
		emp = out.User
	}
	if out.Token == "" || emp == nil {
		return nil, fmt.Errorf("%w: login response without token or employee", ErrInvalidResponse)
	}
	return &LoginResponse{Token: out.Token, Employee: *emp}, nil
}
