package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/fusion"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/hybrid-search/internal/semantic/chunker"
)

const (
	defaultLimit     = 5
	defaultChunkSize = 200
	snippetLength    = 100
)

func limitFlag() cli.Flag {
	return &cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: defaultLimit}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "build",
			Usage:  "Build and persist the inverted index",
			Action: buildCommand,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "chunks", Usage: "Also build the chunk embedding index"},
			},
		},
		{
			Name:      "search",
			Usage:     "List documents containing any query token",
			ArgsUsage: "<query>",
			Action:    searchCommand,
			Flags:     []cli.Flag{limitFlag()},
		},
		{Name: "tf", Usage: "Term frequency of a term in a document", ArgsUsage: "<doc_id> <term>", Action: tfCommand},
		{Name: "idf", Usage: "Inverse document frequency of a term", ArgsUsage: "<term>", Action: idfCommand},
		{Name: "tfidf", Usage: "TF-IDF of a term in a document", ArgsUsage: "<doc_id> <term>", Action: tfidfCommand},
		{Name: "bm25idf", Usage: "BM25 IDF of a term", ArgsUsage: "<term>", Action: bm25IDFCommand},
		{Name: "bm25tf", Usage: "BM25 saturated TF of a term in a document", ArgsUsage: "<doc_id> <term> [k1] [b]", Action: bm25TFCommand},
		{
			Name:      "bm25search",
			Usage:     "Rank documents with BM25",
			ArgsUsage: "<query>",
			Action:    bm25SearchCommand,
			Flags:     []cli.Flag{limitFlag()},
		},
		{
			Name:      "chunk",
			Usage:     "Split text into fixed-size word windows",
			ArgsUsage: "<text>",
			Action:    chunkCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "chunk-size", Usage: "Words per chunk", Value: defaultChunkSize},
				&cli.IntFlag{Name: "overlap", Usage: "Words shared by consecutive chunks"},
			},
		},
		{
			Name:      "semantic-chunk",
			Usage:     "Split text into overlapping sentence windows",
			ArgsUsage: "<text>",
			Action:    semanticChunkCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "max-chunk-size", Usage: "Sentences per chunk", Value: chunker.DefaultWindowSize},
				&cli.IntFlag{Name: "overlap", Usage: "Sentences shared by consecutive chunks", Value: chunker.DefaultOverlap},
			},
		},
		{Name: "embed-text", Usage: "Embed a text and print the vector summary", ArgsUsage: "<text>", Action: embedTextCommand},
		{Name: "embed-chunks", Usage: "Load or build the chunk embedding index", Action: embedChunksCommand},
		{
			Name:      "search-chunked",
			Usage:     "Rank documents by their most similar chunk",
			ArgsUsage: "<query>",
			Action:    searchChunkedCommand,
			Flags:     []cli.Flag{limitFlag()},
		},
		{Name: "normalize", Usage: "Min-max normalize a list of scores", ArgsUsage: "<score>...", Action: normalizeCommand},
		{
			Name:      "hybrid",
			Usage:     "Fuse BM25 and semantic rankings",
			ArgsUsage: "<query>",
			Action:    hybridCommand,
			Flags: []cli.Flag{
				limitFlag(),
				&cli.StringFlag{Name: "fusion", Value: string(executor.FusionWeighted), Usage: "weighted (normalised scores) or rrf (reciprocal rank)"},
				&cli.Float64Flag{Name: "alpha", Usage: "Keyword weight in [0, 1] for weighted fusion; defaults to search.hybridAlpha"},
				&cli.IntFlag{Name: "rrf-k", Value: fusion.DefaultRRFK, Usage: "Rank constant for rrf fusion"},
			},
		},
		serveCommandDef(),
	}
}

func buildCommand(c *cli.Context) error {
	e := envFrom(c)
	ctx := commandContext(c)
	withChunks := c.Bool("chunks")

	docs, err := loadDocuments(ctx, e.cfg)
	if err != nil {
		return err
	}
	engine, cleanup, err := newEngine(e, engineOptions{semantic: withChunks, notify: true})
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.BuildLexical(ctx, docs); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Indexed %d documents, %d terms -> %s\n",
		engine.Index().DocCount(), engine.Index().TermCount(), engine.IndexPath())
	if withChunks {
		if err := engine.BuildChunks(ctx, docs); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Embedded %d chunks -> %s\n", engine.Chunks().Len(), engine.ChunksPath())
	}
	return nil
}

// openIndex returns an engine with the persisted inverted index loaded.
func openIndex(c *cli.Context) (*indexer.Engine, error) {
	engine, cleanup, err := newEngine(envFrom(c), engineOptions{})
	if err != nil {
		return nil, err
	}
	cleanup()
	return engine, loadLexical(engine)
}

func searchCommand(c *cli.Context) error {
	req, err := parseQueryRequest(c)
	if err != nil {
		return err
	}
	engine, err := openIndex(c)
	if err != nil {
		return err
	}
	out := envFrom(c).out
	tokens := engine.Index().Tokenizer().Tokenize(req.Query)
	snap := engine.Index().Snapshot()
	fmt.Fprintf(out, "Searching for: %s\n", req.Query)
	fmt.Fprintf(out, "Search tokens: %v\n", tokens)

	seen := make(map[int]struct{})
	for _, token := range tokens {
		ids := snap.GetDocuments(token)
		if len(ids) == 0 {
			fmt.Fprintf(out, "No results found for token '%s'\n", token)
			continue
		}
		for _, id := range ids {
			if len(seen) >= req.Limit {
				return nil
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			text, err := snap.DocText(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "(%d) %s\n", id, executor.Snippet(text, snippetLength))
		}
	}
	return nil
}

func tfCommand(c *cli.Context) error {
	req, err := parseDocTermRequest(c)
	if err != nil {
		return err
	}
	engine, err := openIndex(c)
	if err != nil {
		return err
	}
	term := engine.Index().Tokenizer().NormalizeTerm(req.Term)
	tf, err := engine.Index().TermFrequency(req.DocID, term)
	if err != nil {
		return err
	}
	fmt.Fprintf(envFrom(c).out, "Term frequency of '%s' in document %d: %d\n", term, req.DocID, tf)
	return nil
}

func idfCommand(c *cli.Context) error {
	req, err := parseTermRequest(c)
	if err != nil {
		return err
	}
	engine, err := openIndex(c)
	if err != nil {
		return err
	}
	term := engine.Index().Tokenizer().NormalizeTerm(req.Term)
	fmt.Fprintf(envFrom(c).out, "Inverse document frequency of '%s': %.2f\n", term, engine.Scorer().IDF(term))
	return nil
}

func tfidfCommand(c *cli.Context) error {
	req, err := parseDocTermRequest(c)
	if err != nil {
		return err
	}
	engine, err := openIndex(c)
	if err != nil {
		return err
	}
	term := engine.Index().Tokenizer().NormalizeTerm(req.Term)
	score, err := engine.Scorer().TFIDF(req.DocID, term)
	if err != nil {
		return err
	}
	fmt.Fprintf(envFrom(c).out, "TF-IDF score of '%s' in document '%d': %.2f\n", term, req.DocID, score)
	return nil
}

func bm25IDFCommand(c *cli.Context) error {
	req, err := parseTermRequest(c)
	if err != nil {
		return err
	}
	engine, err := openIndex(c)
	if err != nil {
		return err
	}
	term := engine.Index().Tokenizer().NormalizeTerm(req.Term)
	fmt.Fprintf(envFrom(c).out, "BM25 IDF score of '%s': %.2f\n", req.Term, engine.Scorer().BM25IDF(term))
	return nil
}

func bm25TFCommand(c *cli.Context) error {
	req, err := parseBM25TFRequest(c, bm25Params(envFrom(c).cfg))
	if err != nil {
		return err
	}
	engine, err := openIndex(c)
	if err != nil {
		return err
	}
	term := engine.Index().Tokenizer().NormalizeTerm(req.Term)
	score, err := engine.Scorer().BM25TF(req.DocID, term, req.Params)
	if err != nil {
		return err
	}
	fmt.Fprintf(envFrom(c).out, "BM25 TF score of '%s' in document '%d': %.2f\n", req.Term, req.DocID, score)
	return nil
}

func bm25SearchCommand(c *cli.Context) error {
	req, err := parseQueryRequest(c)
	if err != nil {
		return err
	}
	engine, err := openIndex(c)
	if err != nil {
		return err
	}
	terms := engine.Index().Tokenizer().Tokenize(req.Query)
	snap := engine.Index().Snapshot()
	ranked, err := ranker.NewScorer(snap).Rank(terms, bm25Params(envFrom(c).cfg), req.Limit)
	if err != nil {
		return err
	}
	out := envFrom(c).out
	for i, d := range ranked {
		text, err := snap.DocText(d.DocID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d. (%d) %s - Score: %.2f\n", i+1, d.DocID, executor.Snippet(text, snippetLength), d.Score)
	}
	return nil
}

func chunkCommand(c *cli.Context) error {
	req, err := parseChunkRequest(c, "chunk-size")
	if err != nil {
		return err
	}
	chunks, err := chunker.FixedChunk(req.Text, req.Size, req.Overlap)
	if err != nil {
		return err
	}
	out := envFrom(c).out
	fmt.Fprintf(out, "Chunking %d characters\n", len(strings.Join(strings.Fields(req.Text), " ")))
	printNumbered(c, chunks)
	return nil
}

func semanticChunkCommand(c *cli.Context) error {
	req, err := parseChunkRequest(c, "max-chunk-size")
	if err != nil {
		return err
	}
	chunks, err := chunker.SemanticChunk(req.Text, req.Size, req.Overlap)
	if err != nil {
		return err
	}
	out := envFrom(c).out
	fmt.Fprintf(out, "Semantically chunking %d characters\n", len(strings.Join(chunker.SplitSentences(req.Text), " ")))
	printNumbered(c, chunks)
	return nil
}

func printNumbered(c *cli.Context, lines []string) {
	for i, line := range lines {
		fmt.Fprintf(envFrom(c).out, "%d. %s\n", i+1, line)
	}
}

func embedTextCommand(c *cli.Context) error {
	req, err := parseTextRequest(c)
	if err != nil {
		return err
	}
	emb, err := newEmbedder(envFrom(c), nil)
	if err != nil {
		return err
	}
	vec, err := emb.EmbedText(commandContext(c), req.Text)
	if err != nil {
		return err
	}
	out := envFrom(c).out
	fmt.Fprintf(out, "Text: %s\n", req.Text)
	fmt.Fprintf(out, "First 3 dimensions: %v\n", vec[:min(3, len(vec))])
	fmt.Fprintf(out, "Dimensions: %d\n", len(vec))
	return nil
}

// openChunks returns an engine whose chunk index is loaded from the cache
// or built from docs when the cache is unusable.
func openChunks(c *cli.Context, docs []corpus.Document) (*indexer.Engine, error) {
	engine, cleanup, err := newEngine(envFrom(c), engineOptions{semantic: true, notify: true})
	if err != nil {
		return nil, err
	}
	defer cleanup()
	if err := engine.LoadOrBuildChunks(commandContext(c), docs); err != nil {
		return nil, err
	}
	return engine, nil
}

func embedChunksCommand(c *cli.Context) error {
	docs, err := loadDocuments(commandContext(c), envFrom(c).cfg)
	if err != nil {
		return err
	}
	engine, err := openChunks(c, docs)
	if err != nil {
		return err
	}
	fmt.Fprintf(envFrom(c).out, "Generated %d chunked embeddings\n", engine.Chunks().Len())
	return nil
}

func searchChunkedCommand(c *cli.Context) error {
	req, err := parseQueryRequest(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	docs, err := loadDocuments(ctx, envFrom(c).cfg)
	if err != nil {
		return err
	}
	engine, err := openChunks(c, docs)
	if err != nil {
		return err
	}
	results, err := engine.Chunks().Search(ctx, req.Query, req.Limit)
	if err != nil {
		return err
	}
	byID := corpus.ByID(docs)
	out := envFrom(c).out
	for i, r := range results {
		doc := byID[r.DocID]
		fmt.Fprintf(out, "\n%d. %s (score: %.4f)\n", i+1, doc.Title, r.Score)
		fmt.Fprintf(out, "   %s...\n", executor.Snippet(doc.Description, snippetLength))
	}
	return nil
}

func normalizeCommand(c *cli.Context) error {
	req, err := parseNormalizeRequest(c)
	if err != nil {
		return err
	}
	for _, s := range fusion.MinMaxNormalize(req.Scores) {
		fmt.Fprintf(envFrom(c).out, "* %.4f\n", s)
	}
	return nil
}

func hybridCommand(c *cli.Context) error {
	e := envFrom(c)
	if !c.IsSet("alpha") {
		if err := c.Set("alpha", fmt.Sprint(e.cfg.Search.HybridAlpha)); err != nil {
			return err
		}
	}
	req, err := parseHybridRequest(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	docs, err := loadDocuments(ctx, e.cfg)
	if err != nil {
		return err
	}
	engine, err := openChunks(c, docs)
	if err != nil {
		return err
	}
	if err := loadLexical(engine); err != nil {
		return err
	}
	result, err := executor.New(engine, docs, nil).Execute(ctx, executor.Request{
		Mode:   executor.ModeHybrid,
		Query:  req.Query,
		Limit:  req.Limit,
		Params: bm25Params(e.cfg),
		Fusion: req.Fusion,
		Alpha:  req.Alpha,
		RRFK:   req.RRFK,
	})
	if err != nil {
		return err
	}
	for i, h := range result.Results {
		fmt.Fprintf(e.out, "%d. %s (score: %.4f, keyword: %s, semantic: %s)\n",
			i+1, h.Title, h.Score, optionalScore(h.KeywordScore), optionalScore(h.SemanticScore))
	}
	return nil
}

func optionalScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *s)
}
