package prompt

import (
	"bufio"
	"os"
	"strings"
	"testing"

	"AccessDeck/internal/i18n"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = i18n.Init()
	os.Exit(m.Run())
}

func TestReadAnswer(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("  alice \n\nlast"))

	got, err := readAnswer(r, "admin")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	got, err = readAnswer(r, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", got)

	got, err = readAnswer(r, "")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = readAnswer(r, "")
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	i18n.SetLanguage("en")
	assert.True(t, parseBool("Y", false))
	assert.True(t, parseBool("yes", false))
	assert.False(t, parseBool("no", true))
	assert.True(t, parseBool("", true))
	assert.False(t, parseBool("maybe", false))

	i18n.SetLanguage("es")
	defer i18n.SetLanguage("en")
	assert.True(t, parseBool("s", false))
}
