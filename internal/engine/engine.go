// Package engine owns the document corpus and composes the tokenizer,
// vector space and entropy model into indexing, ranked search and
// relevance feedback.
package engine

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/resonant-engine/backend/internal/config"
	"github.com/resonant-engine/backend/internal/crawler"
	"github.com/resonant-engine/backend/internal/entropy"
	"github.com/resonant-engine/backend/internal/hilbert"
	"github.com/resonant-engine/backend/internal/metrics"
	"github.com/resonant-engine/backend/internal/tokenizer"
)

// jumpThreshold is the minimum query-document dot product for a quantum
// jump to touch a document.
const jumpThreshold = 0.1

// SearchResult is one ranked hit with its scoring breakdown.
type SearchResult struct {
	Title            string
	Path             string
	Snippet          string
	Resonance        float64
	DeltaEntropy     float64
	Score            float64
	QuantumScore     float64
	PersistenceScore float64
}

// Engine is the ranking engine. The corpus is guarded by an RW mutex:
// ingest, refresh and jumps are writers; Search is a reader (the shared
// vocabulary has its own lock inside the tokenizer).
type Engine struct {
	cfg     config.EngineConfig
	logger  *logrus.Entry
	metrics *metrics.Metrics

	tokenizer *tokenizer.Tokenizer

	mu   sync.RWMutex
	docs []*Document
}

// NewEngine creates an empty engine with its own vocabulary.
func NewEngine(cfg config.EngineConfig, logger *logrus.Entry, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logger.WithField("component", "engine"),
		metrics:   m,
		tokenizer: tokenizer.NewTokenizer(),
	}
}

// Tokenizer exposes the engine-owned vocabulary handle.
func (e *Engine) Tokenizer() *tokenizer.Tokenizer {
	return e.tokenizer
}

// Len returns the corpus size.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Documents returns a snapshot of the corpus slice. The pointed-to
// documents are live engine state; callers must not mutate them while the
// engine is in use.
func (e *Engine) Documents() []*Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Document, len(e.docs))
	copy(out, e.docs)
	return out
}

// Ingest tokenizes, vectorizes and scores a document and appends it to
// the corpus. A document whose text tokenizes to nothing is silently
// dropped; the return value reports whether the document was indexed.
func (e *Engine) Ingest(title, path, text string) bool {
	tokens := e.tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		e.metrics.DocsDroppedEmpty.Inc()
		e.logger.WithField("path", path).Debug("Dropping document with empty token sequence")
		return false
	}

	vec := hilbert.BuildVector(tokens)
	dense := hilbert.ToDense(vec, e.cfg.DenseDimension)

	doc := &Document{
		Title:         title,
		Path:          path,
		Text:          text,
		Vector:        vec,
		Dual:          hilbert.BuildDualVector(tokens),
		Entropy:       entropy.Shannon(tokens),
		Timestamp:     time.Now(),
		Reversibility: 1.0,
		Buffering:     entropy.BufferingCapacity(dense),
	}
	doc.history.push(dense)

	e.mu.Lock()
	e.docs = append(e.docs, doc)
	e.mu.Unlock()

	e.metrics.DocsIndexed.Inc()
	return true
}

// IngestCrawled indexes one crawler record.
func (e *Engine) IngestCrawled(doc crawler.Document) bool {
	return e.Ingest(doc.Title, doc.URL, doc.Text)
}

// Run consumes the bounded ingestion channel until it closes or the
// context is cancelled, indexing every record. This is the single
// ingesting consumer; the channel capacity is the crawler's backpressure.
func (e *Engine) Run(ctx context.Context, docs <-chan crawler.Document) {
	for {
		select {
		case <-ctx.Done():
			return
		case doc, ok := <-docs:
			if !ok {
				return
			}
			e.IngestCrawled(doc)
		}
	}
}

// RefreshRelationships recomputes every document's reversibility against
// the dense projections of all other documents and appends the current
// dense snapshot to its bounded history. Quadratic in corpus size; the
// engine never runs this implicitly, callers invoke it before Search to
// keep reversibility current.
func (e *Engine) RefreshRelationships() {
	e.mu.Lock()
	defer e.mu.Unlock()

	dense := make([][]float64, len(e.docs))
	for i, doc := range e.docs {
		dense[i] = hilbert.ToDense(doc.Vector, e.cfg.DenseDimension)
	}

	for i, doc := range e.docs {
		others := make([][]float64, 0, len(dense)-1)
		for j, v := range dense {
			if j != i {
				others = append(others, v)
			}
		}
		doc.Reversibility = entropy.Reversibility(dense[i], others)
		doc.history.push(dense[i])
	}
}

// Search answers a ranked query over the corpus. Tokenizing the query may
// grow the shared vocabulary. An empty query or corpus yields no results;
// at most topK results are returned, ordered by combined score with ties
// broken by insertion order.
func (e *Engine) Search(query string, topK int) []SearchResult {
	start := time.Now()
	defer func() {
		e.metrics.SearchesTotal.Inc()
		e.metrics.SearchLatency.Observe(time.Since(start).Seconds())
	}()

	queryTokens := e.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 || topK <= 0 {
		return nil
	}
	queryVec := hilbert.BuildVector(queryTokens)
	queryDual := hilbert.BuildDualVector(queryTokens)
	queryEntropy := entropy.Shannon(queryTokens)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.docs) == 0 {
		return nil
	}

	now := time.Now()
	type scored struct {
		result   SearchResult
		combined float64
	}
	results := make([]scored, 0, len(e.docs))

	for _, doc := range e.docs {
		resonance := hilbert.DotProduct(queryVec, doc.Vector)
		deltaEntropy := math.Abs(doc.Entropy - queryEntropy)
		standard := resonance - deltaEntropy*e.cfg.EntropyWeight

		ageDays := now.Sub(doc.Timestamp).Hours() / 24

		quantum := 0.0
		if e.cfg.UseQuantumScore {
			quantum = e.quantumScore(queryVec, queryDual, doc, ageDays)
		}

		persistence := 0.0
		if e.cfg.UsePersistenceScore {
			persistence = e.persistenceScore(doc, ageDays, deltaEntropy)
		}

		results = append(results, scored{
			result: SearchResult{
				Title:            doc.Title,
				Path:             doc.Path,
				Snippet:          snippet(doc.Text),
				Resonance:        resonance,
				DeltaEntropy:     deltaEntropy,
				Score:            standard,
				QuantumScore:     quantum,
				PersistenceScore: persistence,
			},
			combined: e.combine(standard, quantum, persistence),
		})
	}

	// Stable keeps insertion order on ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].combined > results[j].combined
	})

	if len(results) > topK {
		results = results[:topK]
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = r.result
	}
	return out
}

// ApplyQuantumJump is the relevance-feedback operator: every document
// resonating with the query above the jump threshold has its
// reversibility nudged toward the (clamped) feedback term and, when older
// than a day, its apparent age halved. Documents at or below the
// threshold are left untouched.
func (e *Engine) ApplyQuantumJump(query string, importance float64) {
	queryTokens := e.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return
	}
	queryVec := hilbert.BuildVector(queryTokens)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	boosted := 0
	for _, doc := range e.docs {
		resonance := hilbert.DotProduct(queryVec, doc.Vector)
		if resonance <= jumpThreshold {
			continue
		}

		doc.history.push(hilbert.ToDense(doc.Vector, e.cfg.DenseDimension))
		doc.Reversibility = doc.Reversibility*0.9 + 0.1*clamp01(resonance*importance)

		if age := now.Sub(doc.Timestamp); age > 24*time.Hour {
			doc.Timestamp = doc.Timestamp.Add(age / 2)
		}
		boosted++
	}

	if boosted > 0 {
		e.logger.WithFields(logrus.Fields{
			"query":   query,
			"boosted": boosted,
		}).Debug("Applied quantum jump")
	}
}

// quantumScore blends complex resonance and the dual channel. Decay grows
// with document age, capped at 100 days.
func (e *Engine) quantumScore(queryVec hilbert.PrimeVector, queryDual hilbert.DualVector, doc *Document, ageDays float64) float64 {
	decay := 0.01 * math.Min(ageDays, 100)
	res := hilbert.Resonance(queryVec, doc.Vector, decay)
	dualScore := hilbert.DualScore(queryDual, doc.Dual)
	return real(res)*0.6 + math.Abs(imag(res))*0.2 + dualScore*0.2
}

// persistenceScore applies the thermodynamic model, then an entropy-gap
// penalty against the query.
func (e *Engine) persistenceScore(doc *Document, ageDays, deltaEntropy float64) float64 {
	pressure := entropy.Pressure(ageDays, e.cfg.UpdateFrequency, e.cfg.TrendDecay)
	persistence := entropy.PersistenceScore(doc.Reversibility, pressure, doc.Buffering, e.cfg.Fragility)
	return persistence * math.Exp(-deltaEntropy*e.cfg.EntropyWeight)
}

// combine applies the feature-dependent score weighting: 50/25/25 with
// both extras enabled, 70/30 with one, standard alone otherwise.
func (e *Engine) combine(standard, quantum, persistence float64) float64 {
	switch {
	case e.cfg.UseQuantumScore && e.cfg.UsePersistenceScore:
		return standard*0.5 + quantum*0.25 + persistence*0.25
	case e.cfg.UseQuantumScore:
		return standard*0.7 + quantum*0.3
	case e.cfg.UsePersistenceScore:
		return standard*0.7 + persistence*0.3
	default:
		return standard
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
