package main

import (
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

// Every command resolves its arguments into one of these before running.
// Optional arguments are explicit fields with their defaults filled in, and
// malformed input fails here with ErrInvalidParameter.

type termRequest struct {
	Term string
}

type docTermRequest struct {
	DocID int
	Term  string
}

type bm25TFRequest struct {
	DocID  int
	Term   string
	Params ranker.Params
}

type queryRequest struct {
	Query string
	Limit int
}

type hybridRequest struct {
	Query  string
	Limit  int
	Fusion executor.Fusion
	Alpha  float64
	RRFK   int
}

type chunkRequest struct {
	Text    string
	Size    int
	Overlap int
}

type textRequest struct {
	Text string
}

type normalizeRequest struct {
	Scores []float64
}

func parseTermRequest(c *cli.Context) (termRequest, error) {
	if err := expectArgs(c, 1, 1); err != nil {
		return termRequest{}, err
	}
	term, err := nonBlank("term", c.Args().Get(0))
	return termRequest{Term: term}, err
}

func parseDocTermRequest(c *cli.Context) (docTermRequest, error) {
	if err := expectArgs(c, 2, 2); err != nil {
		return docTermRequest{}, err
	}
	id, err := parseDocID(c.Args().Get(0))
	if err != nil {
		return docTermRequest{}, err
	}
	term, err := nonBlank("term", c.Args().Get(1))
	return docTermRequest{DocID: id, Term: term}, err
}

// parseBM25TFRequest reads doc_id term [k1 [b]]. Omitted parameters come
// from defaults.
func parseBM25TFRequest(c *cli.Context, defaults ranker.Params) (bm25TFRequest, error) {
	if err := expectArgs(c, 2, 4); err != nil {
		return bm25TFRequest{}, err
	}
	id, err := parseDocID(c.Args().Get(0))
	if err != nil {
		return bm25TFRequest{}, err
	}
	term, err := nonBlank("term", c.Args().Get(1))
	if err != nil {
		return bm25TFRequest{}, err
	}
	req := bm25TFRequest{DocID: id, Term: term, Params: defaults}
	if c.NArg() >= 3 {
		if req.Params.K1, err = parseFloat("k1", c.Args().Get(2)); err != nil {
			return req, err
		}
	}
	if c.NArg() == 4 {
		if req.Params.B, err = parseFloat("b", c.Args().Get(3)); err != nil {
			return req, err
		}
	}
	return req, req.Params.Validate()
}

func parseQueryRequest(c *cli.Context) (queryRequest, error) {
	if err := expectArgs(c, 1, 1); err != nil {
		return queryRequest{}, err
	}
	query, err := nonBlank("query", c.Args().Get(0))
	if err != nil {
		return queryRequest{}, err
	}
	limit := c.Int("limit")
	if limit < 1 {
		return queryRequest{}, apperrors.Errorf(apperrors.ErrInvalidParameter, "--limit must be positive, got %d", limit)
	}
	return queryRequest{Query: query, Limit: limit}, nil
}

func parseHybridRequest(c *cli.Context) (hybridRequest, error) {
	q, err := parseQueryRequest(c)
	if err != nil {
		return hybridRequest{}, err
	}
	alpha := c.Float64("alpha")
	if alpha < 0 || alpha > 1 {
		return hybridRequest{}, apperrors.Errorf(apperrors.ErrInvalidParameter, "--alpha must be within [0, 1], got %v", alpha)
	}
	fusion, err := executor.ParseFusion(c.String("fusion"))
	if err != nil {
		return hybridRequest{}, err
	}
	k := c.Int("rrf-k")
	if k < 1 {
		return hybridRequest{}, apperrors.Errorf(apperrors.ErrInvalidParameter, "--rrf-k must be positive, got %d", k)
	}
	return hybridRequest{Query: q.Query, Limit: q.Limit, Fusion: fusion, Alpha: alpha, RRFK: k}, nil
}

// parseChunkRequest reads the text argument and the named size flag. Size
// and overlap are checked by the chunker itself.
func parseChunkRequest(c *cli.Context, sizeFlag string) (chunkRequest, error) {
	if err := expectArgs(c, 1, 1); err != nil {
		return chunkRequest{}, err
	}
	return chunkRequest{
		Text:    c.Args().Get(0),
		Size:    c.Int(sizeFlag),
		Overlap: c.Int("overlap"),
	}, nil
}

func parseTextRequest(c *cli.Context) (textRequest, error) {
	if err := expectArgs(c, 1, 1); err != nil {
		return textRequest{}, err
	}
	text, err := nonBlank("text", c.Args().Get(0))
	return textRequest{Text: text}, err
}

func parseNormalizeRequest(c *cli.Context) (normalizeRequest, error) {
	if c.NArg() == 0 {
		return normalizeRequest{}, apperrors.Errorf(apperrors.ErrInvalidParameter, "at least one score is required")
	}
	scores := make([]float64, c.NArg())
	for i, arg := range c.Args().Slice() {
		v, err := parseFloat("score", arg)
		if err != nil {
			return normalizeRequest{}, err
		}
		scores[i] = v
	}
	return normalizeRequest{Scores: scores}, nil
}

func expectArgs(c *cli.Context, lo, hi int) error {
	if n := c.NArg(); n < lo || n > hi {
		want := strconv.Itoa(lo)
		if hi != lo {
			want += "-" + strconv.Itoa(hi)
		}
		return apperrors.Errorf(apperrors.ErrInvalidParameter,
			"%s takes %s argument(s), got %d (usage: %s %s)", c.Command.Name, want, n, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func parseDocID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, apperrors.Errorf(apperrors.ErrInvalidParameter, "doc_id must be a non-negative integer, got %q", s)
	}
	return id, nil
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.Errorf(apperrors.ErrInvalidParameter, "%s must be a number, got %q", name, s)
	}
	return v, nil
}

func nonBlank(name, s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", apperrors.Errorf(apperrors.ErrInvalidParameter, "%s must not be blank", name)
	}
	return s, nil
}
