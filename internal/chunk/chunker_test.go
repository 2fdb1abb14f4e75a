package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesParameters(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", 500, 50, false},
		{"zero overlap", 100, 0, false},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
		{"negative overlap", 100, -5, true},
		{"zero size", 0, 0, true},
		{"negative size", -10, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.size, c.Size())
				assert.Equal(t, tt.overlap, c.Overlap())
			}
		})
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	c := Default()

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := Default()

	chunks := c.Split("A. B. C.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A. B. C.", chunks[0])
}

func TestSplit_ShortTextIsTrimmed(t *testing.T) {
	c := Default()

	chunks := c.Split("  hello world \n")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

// With no separators at all, windows have exactly the configured size and
// consecutive chunks overlap by exactly the configured overlap.
func TestSplit_NoSeparators_FixedWindows(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	chunks := c.Split("0123456789ABCDEFGHIJ")
	require.Equal(t, []string{"0123456789", "89ABCDEFGH", "GHIJ"}, chunks)

	// Overlap property: the last 2 chars of chunk i open chunk i+1.
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-2:]
		assert.True(t, strings.HasPrefix(chunks[i+1], tail),
			"chunk %d should overlap chunk %d", i+1, i)
	}
}

func TestSplit_NoSeparators_AllButLastFullSize(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("x", 50)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks[:len(chunks)-1] {
		assert.Len(t, chunk, 10, "chunk %d", i)
	}
	assert.LessOrEqual(t, len(chunks[len(chunks)-1]), 10)
}

func TestSplit_BreaksAtSentenceBoundary(t *testing.T) {
	c, err := New(20, 5)
	require.NoError(t, err)

	chunks := c.Split("First sentence. Second sentence continues well past the window.")
	require.NotEmpty(t, chunks)

	// The first window [0,20) contains ". " at offset 14, so the first
	// chunk ends just past it (then trailing space is trimmed).
	assert.Equal(t, "First sentence.", chunks[0])
}

func TestSplit_SeparatorPriorityOrder(t *testing.T) {
	c, err := New(30, 5)
	require.NoError(t, err)

	// Window contains both "\n" (late) and ". " (early). The period wins
	// because separator types are checked in priority order, not by
	// position within the window.
	text := "Alpha. Beta gamma\ndelta epsilon zeta eta theta iota kappa"
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Alpha.", chunks[0])
}

func TestSplit_NewlineUsedWhenNoSentenceEnd(t *testing.T) {
	c, err := New(30, 5)
	require.NoError(t, err)

	text := "alpha beta gamma\ndelta epsilon zeta eta theta iota"
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "alpha beta gamma", chunks[0])
}

func TestSplit_QuestionAndExclamationBoundaries(t *testing.T) {
	c, err := New(20, 2)
	require.NoError(t, err)

	chunks := c.Split("Really? Yes indeed, absolutely, and then some more words")
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Really?", chunks[0])

	chunks = c.Split("Stop! Then keep going with plenty of extra words here")
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Stop!", chunks[0])
}

func TestSplit_SeparatorAtWindowStartIgnored(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	// ". " occurs only at the very start of the window; a boundary there
	// would produce an empty advance, so it must be ignored.
	chunks := c.Split(". aaaaaaaaaaaaaaaaaaaa")
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk)
	}
}

func TestSplit_MultiByteRunesStayIntact(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("日本語テキスト処理", 4)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.True(t, strings.ContainsRune(text, []rune(chunk)[0]))
		assert.LessOrEqual(t, len([]rune(chunk)), 10)
	}
}

func TestSplit_CoversWholeText(t *testing.T) {
	c := Default()

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	// Every chunk is a substring of the input and nothing exceeds the window.
	for i, chunk := range chunks {
		assert.Contains(t, text, chunk, "chunk %d", i)
		assert.LessOrEqual(t, len([]rune(chunk)), c.Size(), "chunk %d", i)
	}
}
