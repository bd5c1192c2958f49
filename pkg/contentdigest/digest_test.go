package contentdigest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func TestFromBytes(t *testing.T) {
	content := []byte("hello world")
	assert.Equal(t, sha(content), FromBytes(content).String())
}

func TestFromReader_ChunkingDoesNotChangeDigest(t *testing.T) {
	content := bytes.Repeat([]byte("layer-data-"), 10000)

	whole, n, err := FromReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)

	oneByte, _, err := FromReader(iotest.OneByteReader(bytes.NewReader(content)))
	require.NoError(t, err)

	d := NewDigester()
	for i := 0; i < len(content); i += 777 {
		end := min(i+777, len(content))
		_, _ = d.Hash().Write(content[i:end])
	}

	assert.Equal(t, whole, oneByte)
	assert.Equal(t, whole, d.Digest())
	assert.Equal(t, sha(content), whole.String())
}

func TestFromReader_ReadError(t *testing.T) {
	_, _, err := FromReader(iotest.ErrReader(errors.New("boom")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestParse(t *testing.T) {
	valid := sha([]byte("x"))

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid sha256", valid, false},
		{"empty", "", true},
		{"missing algorithm", strings.TrimPrefix(valid, "sha256:"), true},
		{"uppercase hex", strings.ToUpper(valid), true},
		{"short hex", "sha256:abc", true},
		{"sha512", "sha512:" + strings.Repeat("a", 128), true},
		{"unknown algorithm", "md5:d41d8cd98f00b204e9800998ecf8427e", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, d.String())
		})
	}
}

func TestVerifyingReader_Match(t *testing.T) {
	content := []byte("blob content")
	vr := NewVerifyingReader(bytes.NewReader(content), FromBytes(content))

	got, err := io.ReadAll(vr)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), vr.BytesRead())
}

func TestVerifyingReader_Mismatch(t *testing.T) {
	vr := NewVerifyingReader(strings.NewReader("actual"), FromBytes([]byte("expected")))

	_, err := io.ReadAll(vr)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestVerifyingReader_PropagatesReadError(t *testing.T) {
	readErr := errors.New("connection reset")
	vr := NewVerifyingReader(iotest.ErrReader(readErr), FromBytes(nil))

	_, err := io.ReadAll(vr)
	assert.ErrorIs(t, err, readErr)
	assert.NotErrorIs(t, err, ErrMismatch)
}
