package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Employee is the session record persisted under the "empleado" key.
type Employee struct {
	ID       FlexString `json:"id,omitempty"`
	Username string     `json:"usuario,omitempty"`
	Name     string     `json:"nombre"`
	Surname  string     `json:"apellido"`
	Role     string     `json:"puesto"`
	Store    FlexString `json:"tienda,omitempty"`
	BranchID FlexString `json:"sucursalId,omitempty"`
}

// StoreID is the assigned store, falling back to the branch id older records carry.
func (e Employee) StoreID() string {
	if e.Store != "" {
		return string(e.Store)
	}
	return string(e.BranchID)
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.Name + " " + e.Surname)
}

// FlexString accepts a JSON string or number and keeps its text form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}
