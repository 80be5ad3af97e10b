package refdata

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeWordFreqFile(t *testing.T, dir string, entries map[string]float64) {
	var buf bytes.Buffer
	buf.Write(wordFreqMagic[:])
	binary.Write(&buf, binary.LittleEndian, uint32(supportedVersion))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	for word, pct := range entries {
		binary.Write(&buf, binary.LittleEndian, uint16(len(word)))
		buf.WriteString(word)
		binary.Write(&buf, binary.LittleEndian, pct)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "word_frequencies.bin"), buf.Bytes(), 0644))
}

func TestLoadWordFrequencies(t *testing.T) {
	dir := t.TempDir()
	writeWordFreqFile(t, dir, map[string]float64{"the": 99.0, "serendipity": 2.0})

	tables, err := Load(dir)
	require.NoError(t, err)
	require.InDelta(t, 99.0, tables.WordFrequencies.Percentile("THE"), 1e-9)
	require.InDelta(t, 2.0, tables.WordFrequencies.Percentile("serendipity"), 1e-9)
	require.Equal(t, -1.0, tables.WordFrequencies.Percentile("unknown"))
}

func TestLoadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	data := append([]byte("BADMAGIC"), make([]byte, 8)...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "word_frequencies.bin"), data, 0644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadStopwords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stopwords.en.txt"), []byte("the\na\n# comment\nis\n"), 0644))

	tables, err := Load(dir)
	require.NoError(t, err)
	require.True(t, tables.IsStopword("THE"))
	require.True(t, tables.IsStopword("is"))
	require.False(t, tables.IsStopword("comment"))
}

func TestLoadEmptyDirDegradesGracefully(t *testing.T) {
	tables, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, tables.WordFrequencies)
	require.Empty(t, tables.Stopwords)
}
