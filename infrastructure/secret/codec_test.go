package secret

import (
	"strings"
	"testing"

	"social-scheduler/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewCodec(t *testing.T) {
	_, err := NewCodec("")
	assert.ErrorIs(t, err, model.ErrConfiguration)

	_, err = NewCodec("short")
	assert.ErrorIs(t, err, model.ErrConfiguration)

	c, err := NewCodec(testKey)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCodec_RoundTrip(t *testing.T) {
	c, err := NewCodec(testKey)
	require.NoError(t, err)

	inputs := []string{
		"",
		"access-token-123",
		"héllo wörld ✓ 日本語 🚀",
		strings.Repeat("x", 4096),
	}
	for _, in := range inputs {
		env, err := c.Encrypt(in)
		require.NoError(t, err)

		ivHex, cipherHex, ok := strings.Cut(env, ":")
		require.True(t, ok)
		assert.Len(t, ivHex, 24)
		assert.NotEmpty(t, cipherHex)

		out, err := c.Decrypt(env)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestCodec_FreshIVPerCall(t *testing.T) {
	c, _ := NewCodec(testKey)
	a, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	b, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, strings.SplitN(a, ":", 2)[0], strings.SplitN(b, ":", 2)[0])
}

func TestCodec_DecryptRejectsBadEnvelopes(t *testing.T) {
	c, _ := NewCodec(testKey)
	env, _ := c.Encrypt("secret")
	iv, ct, _ := strings.Cut(env, ":")

	tampered := []byte(ct)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}

	cases := map[string]string{
		"no_separator": "deadbeef",
		"bad_iv_hex":   "zz:" + ct,
		"short_iv":     "abcd:" + ct,
		"bad_cipher":   iv + ":nothex",
		"tampered":     iv + ":" + string(tampered),
		"empty":        "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(in)
			assert.ErrorIs(t, err, model.ErrDecryption)
		})
	}

	other, _ := NewCodec("fedcba9876543210fedcba9876543210")
	_, err := other.Decrypt(env)
	assert.ErrorIs(t, err, model.ErrDecryption)
}

func TestCodec_HashAndID(t *testing.T) {
	c, _ := NewCodec(testKey)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", c.Hash(""))
	assert.Len(t, c.Hash("state"), 64)

	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id := c.GenerateID()
		assert.Len(t, id, 32)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
