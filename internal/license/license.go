// Package license implements the trial counter and license-key gate in
// front of the generation commands. State lives in a small JSON file under
// the user config dir; keys are validated offline by checksum.
package license

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultTrialLimit is how many generations run before a key is required.
	DefaultTrialLimit = 30

	keyPrefix      = "CS"
	segLen         = 5
	checkLen       = 5
	checksumSalt   = "commitstream.v1:"
	base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
)

var (
	ErrTrialExpired = errors.New("trial limit reached: run \"commitstream activate <key>\" to continue")
	ErrInvalidKey   = errors.New("invalid license key")
)

// GenerateKey mints a key of the form CS-XXXXX-XXXXX-XXXXX-CCCCC, where the
// last group is a checksum over the three random segments.
func GenerateKey() (string, error) {
	segs := make([]string, 3)
	for i := range segs {
		b := make([]byte, segLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		s := make([]byte, segLen)
		for j, c := range b {
			s[j] = base32Alphabet[int(c)%len(base32Alphabet)]
		}
		segs[i] = string(s)
	}
	body := strings.Join(segs, "-")
	return keyPrefix + "-" + body + "-" + checksum(body), nil
}

func checksum(body string) string {
	sum := sha256.Sum256([]byte(checksumSalt + body))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:checkLen]
}

// Validate checks the shape and checksum of a key.
func Validate(key string) error {
	parts := strings.Split(strings.TrimSpace(key), "-")
	if len(parts) != 5 || parts[0] != keyPrefix {
		return fmt.Errorf("%w: want CS-XXXXX-XXXXX-XXXXX-CCCCC", ErrInvalidKey)
	}
	for _, seg := range parts[1:4] {
		if len(seg) != segLen {
			return fmt.Errorf("%w: want CS-XXXXX-XXXXX-XXXXX-CCCCC", ErrInvalidKey)
		}
		for _, r := range seg {
			if !strings.ContainsRune(base32Alphabet, r) {
				return fmt.Errorf("%w: segment holds characters outside A-Z2-7", ErrInvalidKey)
			}
		}
	}
	if len(parts[4]) != checkLen {
		return fmt.Errorf("%w: want CS-XXXXX-XXXXX-XXXXX-CCCCC", ErrInvalidKey)
	}
	if checksum(strings.Join(parts[1:4], "-")) != parts[4] {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidKey)
	}
	return nil
}

// State is the persisted gate state.
type State struct {
	Key  string `json:"key,omitempty"`
	Uses int    `json:"uses"`
}

func statePath() (string, error) {
	if dir := os.Getenv("COMMITSTREAM_STATE_DIR"); dir != "" {
		return filepath.Join(dir, "license.json"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "commitstream", "license.json"), nil
}

func loadState() (State, error) {
	var st State
	path, err := statePath()
	if err != nil {
		return st, err
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, err
	}
	return st, nil
}

func saveState(st State) error {
	path, err := statePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Gate decides whether a generation may run. Zero value uses
// DefaultTrialLimit.
type Gate struct {
	Limit int
}

func (g *Gate) limit() int {
	if g.Limit > 0 {
		return g.Limit
	}
	return DefaultTrialLimit
}

// Check returns nil when generation is allowed: either a stored key
// validates, or the trial counter is under the limit.
func (g *Gate) Check() error {
	st, err := loadState()
	if err != nil {
		return err
	}
	if st.Key != "" && Validate(st.Key) == nil {
		return nil
	}
	if st.Uses >= g.limit() {
		return ErrTrialExpired
	}
	return nil
}

// Record counts one successful generation. Licensed installs are not
// counted.
func (g *Gate) Record() error {
	st, err := loadState()
	if err != nil {
		return err
	}
	if st.Key != "" && Validate(st.Key) == nil {
		return nil
	}
	st.Uses++
	return saveState(st)
}

// Activate validates and persists a key.
func (g *Gate) Activate(key string) error {
	if err := Validate(key); err != nil {
		return err
	}
	st, err := loadState()
	if err != nil {
		return err
	}
	st.Key = strings.TrimSpace(key)
	return saveState(st)
}

// Status is a point-in-time view for display.
type Status struct {
	Licensed  bool
	Key       string
	Uses      int
	Limit     int
	Remaining int
}

func (g *Gate) Status() (Status, error) {
	st, err := loadState()
	if err != nil {
		return Status{}, err
	}
	s := Status{Key: st.Key, Uses: st.Uses, Limit: g.limit()}
	s.Licensed = st.Key != "" && Validate(st.Key) == nil
	if !s.Licensed {
		s.Remaining = max(0, s.Limit-s.Uses)
	}
	return s, nil
}
