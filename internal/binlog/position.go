package binlog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-mysql-org/go-mysql/mysql"
)

// FormatPosition renders a position as "filename:position"
func FormatPosition(pos mysql.Position) string {
	return fmt.Sprintf("%s:%d", pos.Name, pos.Pos)
}

// ParsePosition parses "filename:position". A bare filename (older position
// files) is accepted with position 0. Filenames may contain colons.
func ParsePosition(s string) (mysql.Position, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return mysql.Position{}, fmt.Errorf("empty binlog position")
	}

	lastColon := strings.LastIndexByte(s, ':')
	if lastColon <= 0 || lastColon == len(s)-1 {
		return mysql.Position{Name: s}, nil
	}

	pos, err := strconv.ParseUint(s[lastColon+1:], 10, 32)
	if err != nil {
		return mysql.Position{Name: s}, nil
	}
	return mysql.Position{Name: s[:lastColon], Pos: uint32(pos)}, nil
}

// LoadPosition reads the position file. A missing or empty file yields
// ok=false and no error.
func LoadPosition(path string) (pos mysql.Position, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pos, false, nil
		}
		return pos, false, fmt.Errorf("failed to read position file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return pos, false, nil
	}
	pos, err = ParsePosition(string(data))
	if err != nil {
		return pos, false, err
	}
	return pos, true, nil
}

// SavePosition writes pos to the position file
func SavePosition(path string, pos mysql.Position) error {
	if err := os.WriteFile(path, []byte(FormatPosition(pos)), 0644); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}
