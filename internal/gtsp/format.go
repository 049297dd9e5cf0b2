package gtsp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/viewplan/internal/config"
)

// WriteProblem writes p in the GTSPLIB format read by GLKH. format is
// config.FormatFullMatrix or config.FormatUpperRow; the latter requires a
// symmetric matrix and omits the diagonal.
func WriteProblem(w io.Writer, p *Problem, format string) error {
	typ := "AGTSP"
	switch format {
	case config.FormatFullMatrix:
	case config.FormatUpperRow:
		if !p.Symmetric() {
			return fmt.Errorf("gtsp: %s needs a symmetric matrix", format)
		}
		typ = "GTSP"
	default:
		return fmt.Errorf("gtsp: unknown edge weight format %q", format)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "NAME : PathPlanning\n")
	fmt.Fprintf(bw, "TYPE : %s\n", typ)
	fmt.Fprintf(bw, "COMMENT : %d configurations in %d sets\n", p.Size, len(p.Groups))
	fmt.Fprintf(bw, "DIMENSION : %d\n", p.Size)
	fmt.Fprintf(bw, "GTSP_SETS : %d\n", len(p.Groups))
	fmt.Fprintf(bw, "EDGE_WEIGHT_TYPE : EXPLICIT\n")
	fmt.Fprintf(bw, "EDGE_WEIGHT_FORMAT : %s\n", format)
	fmt.Fprintf(bw, "EDGE_WEIGHT_SECTION\n")
	for i, row := range p.Weights {
		start := 0
		if format == config.FormatUpperRow {
			start = i + 1
			if start == p.Size {
				continue
			}
		}
		for _, v := range row[start:] {
			fmt.Fprintf(bw, "%11d", v)
		}
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "GTSP_SET_SECTION\n")
	for k, nodes := range p.Groups {
		fmt.Fprintf(bw, "%d", k+1)
		for _, n := range nodes {
			fmt.Fprintf(bw, " %d", n+1)
		}
		fmt.Fprintf(bw, " -1\n")
	}
	fmt.Fprintf(bw, "EOF\n")
	return bw.Flush()
}

// ReadProblem parses a problem written by WriteProblem. The result has no
// Costs and its GroupIDs are the 1-based set indices of the file.
func ReadProblem(r io.Reader) (*Problem, error) {
	s := newTokenScanner(r)
	var (
		format  string
		size    int
		numSets int
		p       *Problem
	)
	for s.next() {
		key, value := s.keyValue()
		switch key {
		case "DIMENSION":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("gtsp: bad DIMENSION %q", value)
			}
			size = n
		case "GTSP_SETS":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("gtsp: bad GTSP_SETS %q", value)
			}
			numSets = n
		case "EDGE_WEIGHT_FORMAT":
			format = value
		case "EDGE_WEIGHT_SECTION":
			if size == 0 {
				return nil, fmt.Errorf("gtsp: EDGE_WEIGHT_SECTION before DIMENSION")
			}
			p = &Problem{Size: size, Weights: make([][]int64, size), Sentinel: Sentinel(numSets)}
			for i := range p.Weights {
				p.Weights[i] = make([]int64, size)
			}
			if err := readWeights(s, p, format); err != nil {
				return nil, err
			}
		case "GTSP_SET_SECTION":
			if p == nil || numSets == 0 {
				return nil, fmt.Errorf("gtsp: GTSP_SET_SECTION before weights")
			}
			if err := readSets(s, p, numSets); err != nil {
				return nil, err
			}
		case "EOF":
			if p == nil || p.Groups == nil {
				return nil, fmt.Errorf("gtsp: incomplete problem file")
			}
			return p, nil
		}
	}
	if err := s.err(); err != nil {
		return nil, fmt.Errorf("failed to read problem: %w", err)
	}
	if p == nil || p.Groups == nil {
		return nil, fmt.Errorf("gtsp: incomplete problem file")
	}
	return p, nil
}

func readWeights(s *tokenScanner, p *Problem, format string) error {
	for i := 0; i < p.Size; i++ {
		start := 0
		if format == config.FormatUpperRow {
			start = i + 1
		}
		for j := start; j < p.Size; j++ {
			v, err := s.int()
			if err != nil {
				return fmt.Errorf("gtsp: weight (%d,%d): %w", i, j, err)
			}
			p.Weights[i][j] = v
			if format == config.FormatUpperRow {
				p.Weights[j][i] = v
			}
		}
	}
	return nil
}

func readSets(s *tokenScanner, p *Problem, numSets int) error {
	p.Groups = make([][]int, numSets)
	p.GroupIDs = make([]int, numSets)
	p.Membership = make([]int, p.Size)
	for i := range p.Membership {
		p.Membership[i] = -1
	}
	for k := 0; k < numSets; k++ {
		id, err := s.int()
		if err != nil || id < 1 || int(id) > numSets {
			return fmt.Errorf("gtsp: bad set index in GTSP_SET_SECTION")
		}
		set := int(id) - 1
		p.GroupIDs[set] = int(id)
		for {
			v, err := s.int()
			if err != nil {
				return fmt.Errorf("gtsp: set %d: %w", id, err)
			}
			if v == -1 {
				break
			}
			if v < 1 || int(v) > p.Size {
				return fmt.Errorf("gtsp: set %d: node %d out of range", id, v)
			}
			p.Groups[set] = append(p.Groups[set], int(v)-1)
			p.Membership[v-1] = set
		}
	}
	for i, k := range p.Membership {
		if k < 0 {
			return fmt.Errorf("gtsp: node %d belongs to no set", i+1)
		}
	}
	return nil
}

// Params is the control file of a GLKH run.
type Params struct {
	ProblemFile string
	TourFile    string
	// Runs and Seed are omitted when zero.
	Runs int
	Seed int
}

// WriteParams writes the control file. Paths should be absolute because
// the engine may run in another directory.
func WriteParams(w io.Writer, p Params) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "PROBLEM_FILE = %s\n", p.ProblemFile)
	fmt.Fprintf(bw, "OUTPUT_TOUR_FILE = %s\n", p.TourFile)
	if p.Runs > 0 {
		fmt.Fprintf(bw, "RUNS = %d\n", p.Runs)
	}
	if p.Seed > 0 {
		fmt.Fprintf(bw, "SEED = %d\n", p.Seed)
	}
	fmt.Fprintf(bw, "EOF\n")
	return bw.Flush()
}

// ParseParams reads a control file. Unknown keys are ignored.
func ParseParams(r io.Reader) (Params, error) {
	var p Params
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "EOF" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "PROBLEM_FILE":
			p.ProblemFile = value
		case "OUTPUT_TOUR_FILE":
			p.TourFile = value
		case "RUNS":
			p.Runs, _ = strconv.Atoi(value)
		case "SEED":
			p.Seed, _ = strconv.Atoi(value)
		}
	}
	if err := sc.Err(); err != nil {
		return p, fmt.Errorf("failed to read params: %w", err)
	}
	if p.ProblemFile == "" || p.TourFile == "" {
		return p, fmt.Errorf("gtsp: params need PROBLEM_FILE and OUTPUT_TOUR_FILE")
	}
	return p, nil
}

// TourFile is a parsed engine tour. Nodes are 0-based.
type TourFile struct {
	Nodes []int
	// Length is the engine-reported cost; HasLength is false when the file
	// carries no length comment.
	Length    int64
	HasLength bool
}

// ParseTour reads a TOUR_SECTION terminated by -1 and the optional
// "COMMENT : Length = <n>" line.
func ParseTour(r io.Reader) (TourFile, error) {
	var tf TourFile
	s := newTokenScanner(r)
	for s.next() {
		key, value := s.keyValue()
		switch key {
		case "COMMENT":
			if name, n, ok := strings.Cut(value, "="); ok && strings.TrimSpace(name) == "Length" {
				v, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
				if err != nil {
					return tf, fmt.Errorf("%w: bad length %q", ErrMalformedTour, n)
				}
				tf.Length, tf.HasLength = v, true
			}
		case "TOUR_SECTION":
			for {
				v, err := s.int()
				if err != nil {
					return tf, fmt.Errorf("%w: unterminated TOUR_SECTION", ErrMalformedTour)
				}
				if v == -1 {
					break
				}
				if v < 1 {
					return tf, fmt.Errorf("%w: node %d", ErrMalformedTour, v)
				}
				tf.Nodes = append(tf.Nodes, int(v)-1)
			}
			if len(tf.Nodes) == 0 {
				return tf, fmt.Errorf("%w: empty tour", ErrMalformedTour)
			}
			return tf, nil
		}
	}
	if err := s.err(); err != nil {
		return tf, fmt.Errorf("failed to read tour: %w", err)
	}
	return tf, fmt.Errorf("%w: no TOUR_SECTION", ErrMalformedTour)
}

// WriteTour writes nodes (0-based) as a GLKH tour file.
func WriteTour(w io.Writer, name string, nodes []int, length int64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "NAME : %s\n", name)
	fmt.Fprintf(bw, "COMMENT : Length = %d\n", length)
	fmt.Fprintf(bw, "TYPE : TOUR\n")
	fmt.Fprintf(bw, "DIMENSION : %d\n", len(nodes))
	fmt.Fprintf(bw, "TOUR_SECTION\n")
	for _, n := range nodes {
		fmt.Fprintf(bw, "%d\n", n+1)
	}
	fmt.Fprintf(bw, "-1\nEOF\n")
	return bw.Flush()
}

// tokenScanner walks a TSPLIB file line by line for keywords and token by
// token inside numeric sections.
type tokenScanner struct {
	sc     *bufio.Scanner
	line   string
	tokens []string
}

func newTokenScanner(r io.Reader) *tokenScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &tokenScanner{sc: sc}
}

// next advances to the next non-empty line.
func (s *tokenScanner) next() bool {
	for s.sc.Scan() {
		s.line = strings.TrimSpace(s.sc.Text())
		if s.line != "" {
			s.tokens = nil
			return true
		}
	}
	return false
}

// keyValue splits "KEY : value" or "KEY: value". A bare keyword has an
// empty value.
func (s *tokenScanner) keyValue() (string, string) {
	key, value, _ := strings.Cut(s.line, ":")
	return strings.TrimSpace(key), strings.TrimSpace(value)
}

// int returns the next integer token, crossing line boundaries.
func (s *tokenScanner) int() (int64, error) {
	for len(s.tokens) == 0 {
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return 0, err
			}
			return 0, io.ErrUnexpectedEOF
		}
		s.tokens = strings.Fields(s.sc.Text())
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return strconv.ParseInt(tok, 10, 64)
}

func (s *tokenScanner) err() error {
	return s.sc.Err()
}
