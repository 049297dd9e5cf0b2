package gtsp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/viewplan/internal/config"
)

func TestWriteProblem_FullMatrix(t *testing.T) {
	t.Parallel()

	p, err := BuildProblem(context.Background(), overlapping(), euclid, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteProblem(&buf, p, config.FormatFullMatrix))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	want := []string{
		"NAME : PathPlanning",
		"TYPE : AGTSP",
		"COMMENT : 5 configurations in 3 sets",
		"DIMENSION : 5",
		"GTSP_SETS : 3",
		"EDGE_WEIGHT_TYPE : EXPLICIT",
		"EDGE_WEIGHT_FORMAT : FULL_MATRIX",
		"EDGE_WEIGHT_SECTION",
	}
	if diff := cmp.Diff(want, lines[:8]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	// Every entry is right-aligned in 11 columns.
	assert.Len(t, lines[8], 5*11)
	assert.Equal(t, "        100", lines[8][4*11:])

	tail := []string{"GTSP_SET_SECTION", "1 1 3 -1", "2 2 4 -1", "3 5 -1", "EOF"}
	if diff := cmp.Diff(tail, lines[13:]); diff != "" {
		t.Errorf("sets mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteProblem_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		format string
	}{
		{format: config.FormatFullMatrix},
		{format: config.FormatUpperRow},
	} {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()

			p, err := BuildProblem(context.Background(), threeByTwo(), euclid, Options{})
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, WriteProblem(&buf, p, tc.format))
			got, err := ReadProblem(&buf)
			require.NoError(t, err)

			assert.Equal(t, p.Size, got.Size)
			assert.Equal(t, p.Groups, got.Groups)
			assert.Equal(t, p.Membership, got.Membership)
			assert.Equal(t, []int{1, 2, 3}, got.GroupIDs)
			for i := range p.Weights {
				for j := range p.Weights[i] {
					if i == j {
						continue
					}
					assert.Equal(t, p.Weights[i][j], got.Weights[i][j], "(%d,%d)", i, j)
				}
			}
		})
	}
}

func TestWriteProblem_UpperRowNeedsSymmetry(t *testing.T) {
	t.Parallel()

	p, err := BuildProblem(context.Background(), overlapping(), euclid, Options{})
	require.NoError(t, err)
	assert.Error(t, WriteProblem(&bytes.Buffer{}, p, config.FormatUpperRow))
	assert.Error(t, WriteProblem(&bytes.Buffer{}, p, "LOWER_ROW"))
}

func TestReadProblem_Malformed(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"no weights":    "DIMENSION : 2\nGTSP_SETS : 1\nEOF\n",
		"short weights": "DIMENSION : 2\nGTSP_SETS : 1\nEDGE_WEIGHT_FORMAT : FULL_MATRIX\nEDGE_WEIGHT_SECTION\n0 1 2\n",
		"bad node":      "DIMENSION : 2\nGTSP_SETS : 1\nEDGE_WEIGHT_FORMAT : FULL_MATRIX\nEDGE_WEIGHT_SECTION\n0 1\n1 0\nGTSP_SET_SECTION\n1 1 3 -1\nEOF\n",
		"orphan node":   "DIMENSION : 2\nGTSP_SETS : 1\nEDGE_WEIGHT_FORMAT : FULL_MATRIX\nEDGE_WEIGHT_SECTION\n0 1\n1 0\nGTSP_SET_SECTION\n1 1 -1\nEOF\n",
	} {
		_, err := ReadProblem(strings.NewReader(in))
		assert.Error(t, err, name)
	}
}

func TestParams_RoundTrip(t *testing.T) {
	t.Parallel()

	in := Params{ProblemFile: "/tmp/x/gtsp.gtsp", TourFile: "/tmp/x/tour.tour", Runs: 3}
	var buf bytes.Buffer
	require.NoError(t, WriteParams(&buf, in))
	assert.Equal(t, "PROBLEM_FILE = /tmp/x/gtsp.gtsp\nOUTPUT_TOUR_FILE = /tmp/x/tour.tour\nRUNS = 3\nEOF\n", buf.String())

	got, err := ParseParams(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	compact, err := ParseParams(strings.NewReader("PROBLEM_FILE=/a\nOUTPUT_TOUR_FILE=/b\n"))
	require.NoError(t, err)
	assert.Equal(t, "/a", compact.ProblemFile)

	_, err = ParseParams(strings.NewReader("PROBLEM_FILE = /a\nEOF\n"))
	assert.Error(t, err)
}

func TestParseTour(t *testing.T) {
	t.Parallel()

	in := `NAME : PathPlanning.4.tour
COMMENT : Length = 242
COMMENT : Found by GLKH
TYPE : TOUR
DIMENSION : 3
TOUR_SECTION
2
5 4
-1
EOF
`
	tf, err := ParseTour(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, TourFile{Nodes: []int{1, 4, 3}, Length: 242, HasLength: true}, tf)

	noLength, err := ParseTour(strings.NewReader("TOUR_SECTION\n1\n2\n-1\n"))
	require.NoError(t, err)
	assert.False(t, noLength.HasLength)
	assert.Equal(t, []int{0, 1}, noLength.Nodes)
}

func TestParseTour_Malformed(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"no section":   "NAME : x\nEOF\n",
		"unterminated": "TOUR_SECTION\n1\n2\n",
		"zero node":    "TOUR_SECTION\n0\n-1\n",
		"empty":        "TOUR_SECTION\n-1\n",
		"bad length":   "COMMENT : Length = lots\nTOUR_SECTION\n1\n-1\n",
		"not a number": "TOUR_SECTION\nx\n-1\n",
	} {
		_, err := ParseTour(strings.NewReader(in))
		assert.True(t, errors.Is(err, ErrMalformedTour), "%s: %v", name, err)
	}
}

func TestWriteTour(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteTour(&buf, "PathPlanning", []int{1, 4, 3}, 242))
	tf, err := ParseTour(&buf)
	require.NoError(t, err)
	assert.Equal(t, TourFile{Nodes: []int{1, 4, 3}, Length: 242, HasLength: true}, tf)
}
