package social

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"social-scheduler/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"ascii", "abcdef", 5, "abcde..."},
		{"multibyte kept whole", "héllo wörld", 4, "héll..."},
		{"runes not bytes", strings.Repeat("é", 5), 5, strings.Repeat("é", 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestProviderMessage_MultibyteDetail(t *testing.T) {
	detail := strings.Repeat("a", 199) + strings.Repeat("é", 10)
	require.Greater(t, len(detail), 200)
	body, err := json.Marshal(map[string]string{"detail": detail})
	require.NoError(t, err)

	msg := providerMessage(body)
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasPrefix(msg, ": "+strings.Repeat("a", 199)+"é"))
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Equal(t, 200+len(": ")+len("..."), utf8.RuneCountInString(msg))

	err = classifyStatus(422, body)
	assert.ErrorIs(t, err, model.ErrTerminalPublish)
	assert.True(t, utf8.ValidString(err.Error()))
}

func TestProviderMessage_FieldPrecedence(t *testing.T) {
	assert.Equal(t, ": d", providerMessage([]byte(`{"title":"t","message":"m","detail":"d"}`)))
	assert.Equal(t, ": m", providerMessage([]byte(`{"title":"t","message":"m"}`)))
	assert.Equal(t, ": t", providerMessage([]byte(`{"title":"t"}`)))
	assert.Empty(t, providerMessage([]byte(`not json`)))
	assert.Empty(t, providerMessage([]byte(`{}`)))
}
