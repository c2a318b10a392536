package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is an ordered list of strings persisted as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("StringList: marshal: %w", err)
	}
	return string(raw), nil
}

func (l *StringList) Scan(src any) error {
	raw, err := scanText(src)
	if err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	if strings.TrimSpace(raw) == "" || raw == "null" {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fmt.Errorf("StringList: unmarshal: %w", err)
	}
	*l = StringList(out)
	return nil
}

// Contains reports whether value is one of the entries.
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if v == value {
			return true
		}
	}
	return false
}

// CSVList is an ordered list of identifiers persisted as a comma-joined string.
type CSVList []string

// ParseCSVList splits raw on commas, trimming blanks.
func ParseCSVList(raw string) CSVList {
	out := CSVList{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (l CSVList) Value() (driver.Value, error) {
	return l.String(), nil
}

func (l *CSVList) Scan(src any) error {
	raw, err := scanText(src)
	if err != nil {
		return fmt.Errorf("CSVList: %w", err)
	}
	*l = ParseCSVList(raw)
	return nil
}

func (l CSVList) String() string {
	clean := make([]string, 0, len(l))
	for _, v := range l {
		if v = strings.TrimSpace(v); v != "" {
			clean = append(clean, v)
		}
	}
	return strings.Join(clean, ",")
}

func scanText(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported scan type %T", src)
	}
}
