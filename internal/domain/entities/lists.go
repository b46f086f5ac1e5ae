package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is a string array persisted as JSON text
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	if raw == "" {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fmt.Errorf("%w: tags: %v", ErrCorruptData, err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

// CredentialList is a credential array persisted as JSON text
type CredentialList []Credential

// Value implements driver.Valuer
func (l CredentialList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Credential(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *CredentialList) Scan(src interface{}) error {
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	if raw == "" {
		*l = CredentialList{}
		return nil
	}
	var out []Credential
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fmt.Errorf("%w: credentials: %v", ErrCorruptData, err)
	}
	if out == nil {
		out = []Credential{}
	}
	*l = out
	return nil
}

func textOf(src interface{}) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: unexpected column type %T", ErrCorruptData, src)
	}
}
