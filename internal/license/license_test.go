package license

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyShape = regexp.MustCompile(`^CS-[A-Z2-7]{5}-[A-Z2-7]{5}-[A-Z2-7]{5}-[0-9A-F]{5}$`)

func TestGenerateKeyShapeAndValidity(t *testing.T) {
	for range 20 {
		key, err := GenerateKey()
		require.NoError(t, err)
		assert.Regexp(t, keyShape, key)
		assert.NoError(t, Validate(key))
	}
}

func TestChecksumIsStable(t *testing.T) {
	a := checksum("AAAAA-BBBBB-CCCCC")
	b := checksum("AAAAA-BBBBB-CCCCC")
	assert.Equal(t, a, b)
	assert.Len(t, a, checkLen)
	assert.Regexp(t, `^[0-9A-F]{5}$`, a)
	assert.NotEqual(t, a, checksum("AAAAA-BBBBB-CCCCD"))
}

func TestValidateRejectsMalformedKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"wrong prefix", "XX-AAAAA-BBBBB-CCCCC-12345"},
		{"too few groups", "CS-AAAAA-BBBBB-12345"},
		{"short segment", "CS-AAA-BBBBB-CCCCC-12345"},
		{"lowercase segment", "CS-aaaaa-BBBBB-CCCCC-12345"},
		{"digit outside base32", "CS-AAAA1-BBBBB-CCCCC-12345"},
		{"short checksum", "CS-AAAAA-BBBBB-CCCCC-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestValidateRejectsTamperedBody(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	// Flip one body character while keeping the old checksum.
	b := []byte(key)
	if b[3] == 'A' {
		b[3] = 'B'
	} else {
		b[3] = 'A'
	}
	assert.ErrorIs(t, Validate(string(b)), ErrInvalidKey)
}

func TestGateTrialFlow(t *testing.T) {
	t.Setenv("COMMITSTREAM_STATE_DIR", t.TempDir())
	g := &Gate{Limit: 3}

	require.NoError(t, g.Check())
	st, err := g.Status()
	require.NoError(t, err)
	assert.False(t, st.Licensed)
	assert.Equal(t, 0, st.Uses)
	assert.Equal(t, 3, st.Remaining)

	for range 3 {
		require.NoError(t, g.Check())
		require.NoError(t, g.Record())
	}

	assert.ErrorIs(t, g.Check(), ErrTrialExpired)
	st, err = g.Status()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Uses)
	assert.Equal(t, 0, st.Remaining)
}

func TestGateActivateUnlocksAndStopsCounting(t *testing.T) {
	t.Setenv("COMMITSTREAM_STATE_DIR", t.TempDir())
	g := &Gate{Limit: 1}

	require.NoError(t, g.Record())
	require.ErrorIs(t, g.Check(), ErrTrialExpired)

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, g.Activate(key))

	require.NoError(t, g.Check())
	require.NoError(t, g.Record())

	st, err := g.Status()
	require.NoError(t, err)
	assert.True(t, st.Licensed)
	assert.Equal(t, key, st.Key)
	// Licensed generations leave the trial counter alone.
	assert.Equal(t, 1, st.Uses)
}

func TestGateActivateRejectsBadKey(t *testing.T) {
	t.Setenv("COMMITSTREAM_STATE_DIR", t.TempDir())
	g := &Gate{}

	err := g.Activate("CS-AAAAA-BBBBB-CCCCC-NOTIT")
	assert.ErrorIs(t, err, ErrInvalidKey)

	st, err := g.Status()
	require.NoError(t, err)
	assert.False(t, st.Licensed)
	assert.Empty(t, st.Key)
}

func TestStateFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COMMITSTREAM_STATE_DIR", dir)
	g := &Gate{}

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, g.Activate(key))
	require.NoError(t, g.Record())

	b, err := os.ReadFile(filepath.Join(dir, "license.json"))
	require.NoError(t, err)

	var st State
	require.NoError(t, json.Unmarshal(b, &st))
	assert.Equal(t, key, st.Key)
	assert.Equal(t, 0, st.Uses)
}

func TestGateDefaultLimit(t *testing.T) {
	t.Setenv("COMMITSTREAM_STATE_DIR", t.TempDir())
	g := &Gate{}

	st, err := g.Status()
	require.NoError(t, err)
	assert.Equal(t, DefaultTrialLimit, st.Limit)
	assert.Equal(t, DefaultTrialLimit, st.Remaining)
}
