package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/gateway"
	"github.com/fjod/go_pos/pos-service/internal/storage"
)

const (
	employeeKey = "empleado"
	tokenKey    = "token"
)

var (
	ErrNoSession = errors.New("no active session")
	ErrNoStore   = errors.New("employee has no assigned store")
)

// Backend is the part of the gateway the session needs.
type Backend interface {
	Login(ctx context.Context, username, password string) (*gateway.LoginResponse, error)
	Register(ctx context.Context, req gateway.RegisterRequest) (string, error)
}

// Store keeps the logged-in employee and token in the terminal's KV storage.
type Store struct {
	kv      storage.KV
	backend Backend
	log     *slog.Logger
}

func NewStore(kv storage.KV, backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{kv: kv, backend: backend, log: log}
}

func (s *Store) Login(ctx context.Context, username, password string) (*domain.Employee, error) {
	var v domain.Validator
	v.Required("usuario", username)
	v.Required("password", password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	resp, err := s.backend.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	data, err := json.Marshal(resp.Employee)
	if err != nil {
		return nil, fmt.Errorf("failed to encode employee: %w", err)
	}
	// empleado is written last; Current treats it as the session
	if err := s.kv.Set(ctx, tokenKey, []byte(resp.Token)); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	if err := s.kv.Set(ctx, employeeKey, data); err != nil {
		if derr := s.kv.Delete(ctx, tokenKey); derr != nil {
			s.log.WarnContext(ctx, "failed to roll back token", "error", derr)
		}
		return nil, fmt.Errorf("failed to persist employee: %w", err)
	}

	s.log.InfoContext(ctx, "employee logged in", "usuario", username, "store_id", resp.Employee.StoreID())
	emp := resp.Employee
	return &emp, nil
}

// Current returns the persisted employee. Missing or unreadable records mean
// there is no session.
func (s *Store) Current(ctx context.Context) (*domain.Employee, error) {
	data, err := s.kv.Get(ctx, employeeKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read employee: %w", err)
	}

	var emp domain.Employee
	if err := json.Unmarshal(data, &emp); err != nil {
		s.log.WarnContext(ctx, "discarding corrupt employee record", "error", err)
		return nil, ErrNoSession
	}
	return &emp, nil
}

func (s *Store) Token(ctx context.Context) (string, error) {
	data, err := s.kv.Get(ctx, tokenKey)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && len(data) == 0) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return string(data), nil
}

// StoreID is the current employee's store.
func (s *Store) StoreID(ctx context.Context) (string, error) {
	emp, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	id := emp.StoreID()
	if id == "" {
		return "", ErrNoStore
	}
	return id, nil
}

func (s *Store) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, employeeKey); err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if err := s.kv.Delete(ctx, tokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	s.log.InfoContext(ctx, "employee logged out")
	return nil
}

// Registration is what the sign-up form collects.
type Registration struct {
	Name     string `json:"nombre"`
	Surname  string `json:"apellido"`
	StoreID  string `json:"tiendaId"`
	Role     string `json:"puesto"`
	Username string `json:"usuario"`
	Password string `json:"contrasena"`
}

func (r Registration) Validate() error {
	var v domain.Validator
	v.Required("nombre", r.Name)
	v.Required("apellido", r.Surname)
	v.Required("tiendaId", r.StoreID)
	v.Required("puesto", r.Role)
	v.Required("usuario", r.Username)
	v.Required("contrasena", r.Password)
	return v.Err()
}

// Register validates the form and creates the account with a hashed password.
func (s *Store) Register(ctx context.Context, r Registration) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	msg, err := s.backend.Register(ctx, gateway.RegisterRequest{
		Name:         strings.TrimSpace(r.Name),
		Surname:      strings.TrimSpace(r.Surname),
		StoreID:      strings.TrimSpace(r.StoreID),
		Role:         strings.TrimSpace(r.Role),
		Username:     strings.TrimSpace(r.Username),
		PasswordHash: HashPassword(r.Password),
	})
	if err != nil {
		return "", fmt.Errorf("failed to register employee: %w", err)
	}
	s.log.InfoContext(ctx, "employee registered", "usuario", r.Username)
	return msg, nil
}

// HashPassword is the lowercase hex SHA-256 of the password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
