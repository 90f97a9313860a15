package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken/siftcluster/pkg/core/feature"
)

const blobsCSV = `# x,y,scale,orientation,descriptor...
0,0,2,0.1,1,2,3,4
1,0,2,0.2,1,2,3,4
0,1,2,0.3,1,2,3,4
1,1,2,0.4,1,2,3,4
10,10,2,0,1,2,3,4
11,10,2,0,1,2,3,4
10,11,2,0,1,2,3,4
11,11,2,0,1,2,3,4
`

func TestReadFeatures(t *testing.T) {
	features, err := readFeatures(strings.NewReader(blobsCSV))
	require.NoError(t, err)
	require.Len(t, features, 8)

	assert.Equal(t, 1.0, features[1].X)
	assert.Equal(t, 0.2, features[1].Orientation)
	assert.Equal(t, []float64{1, 2, 3, 4}, features[7].Descriptor)
}

func TestReadFeaturesRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"too few columns":   "1,2,3,4\n",
		"not a number":      "1,2,3,4,x\n",
		"mixed descriptors": "0,0,1,0,1,2\n1,1,1,0,1\n",
		"empty":             "# nothing\n",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readFeatures(strings.NewReader(input))
			assert.Error(t, err)
		})
	}

	_, err := readFeatures(strings.NewReader("0,0,1,0,1,2\n1,1,1,0,1\n"))
	assert.ErrorIs(t, err, feature.ErrInvalidDimension)
}

func TestReadFeaturesReportsFileLine(t *testing.T) {
	input := "# header\n# more comments\n\n0,0,1,0,1\n1,1,1,0,x\n"

	_, err := readFeatures(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5:")
}

func TestImportListAndCluster(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "blobs.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(blobsCSV), 0644))

	run := func(args ...string) string {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "none.yaml"), "--data-dir", filepath.Join(dir, "data")}, args...))
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	assert.Contains(t, run("import", "blobs", csvPath), "Imported 8 features")
	listing := run("list")
	assert.Contains(t, listing, "1 feature sets")
	assert.Contains(t, listing, "blobs\t8 features\t4 dims")

	out := run("cluster", "blobs", "--min-k", "2", "--max-k", "3", "--repetitions", "2", "--labels")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "k="), "got %q", lines[0])

	labels := 0
	for _, line := range lines {
		if strings.Count(line, "\t") == 1 {
			labels++
		}
	}
	assert.Equal(t, 8, labels)

	assert.Contains(t, run("delete", "blobs"), `Deleted "blobs"`)
	assert.Contains(t, run("list"), "No feature sets stored")
}
