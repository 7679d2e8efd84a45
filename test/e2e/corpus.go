// Package e2e provides end-to-end tests over the full HTTP API with a
// realistic article corpus.
package e2e

import (
	"fmt"
	"strings"

	"github.com/newsdesk/kiji/internal/models"
)

// NewsArticle is an article entry in the E2E corpus.
type NewsArticle struct {
	ID     string
	Title  string
	Body   string
	Source string
}

// QueryCase defines a query and the article ID(s) that must appear in keyword
// search results. At least one of ExpectedArticleIDs must be present.
type QueryCase struct {
	Query              string
	ExpectedArticleIDs []string
	Description        string
}

// Corpus holds articles and query cases for E2E tests.
type Corpus struct {
	Articles      []NewsArticle
	Cases         []QueryCase
	TotalArticles int
	TotalQueries  int
}

// BuildCorpus returns a corpus of tech-news articles with varied content and
// query cases. Each article carries a unique signature phrase so queries can
// assert the correct article is returned.
func BuildCorpus() *Corpus {
	articles := buildArticles()
	cases := buildQueryCases(articles)
	return &Corpus{
		Articles:      articles,
		Cases:         cases,
		TotalArticles: len(articles),
		TotalQueries:  len(cases),
	}
}

func buildArticles() []NewsArticle {
	topics := []struct {
		title  string
		source string
		body   string
	}{
		{"Kernel 6.15 Released", "lwn.net", "The Linux kernel 6.15 release brings scheduler improvements. Kernel scheduler latency drops for interactive workloads, and the new release widens Rust driver support."},
		{"GPU Supply Chain Update", "reuters.com", "GPU supply chain constraints are easing after two tight quarters. Foundry capacity for accelerator dies has expanded, and GPU shipment lead times are down to eight weeks."},
		{"PostgreSQL 17 Performance", "postgresql.org", "PostgreSQL 17 speeds up vacuum and improves logical replication. PostgreSQL vacuum memory usage drops by an order of magnitude on large tables."},
		{"Rust in the Standard Library", "rust-lang.org", "The Rust project stabilized several async traits this cycle. Rust async traits in the standard library remove the need for external crates in many services."},
		{"Kubernetes 1.31 Ships", "kubernetes.io", "Kubernetes 1.31 promotes several storage features to stable. Kubernetes volume populators and recovery from resize failures are now generally available."},
		{"WebAssembly Outside the Browser", "bytecodealliance.org", "WASI preview builds make WebAssembly practical on servers. WebAssembly component model tooling matured enough for production plugin systems."},
		{"SQLite WAL Internals", "sqlite.org", "SQLite write-ahead logging trades durability configuration for concurrency. SQLite WAL mode lets readers proceed while a single writer appends."},
		{"RISC-V Laptops Arrive", "theregister.com", "The first credible RISC-V laptops reached developers this month. RISC-V laptop performance now approaches entry-level ARM designs."},
		{"TLS Certificate Lifetimes Shrink", "feisty.duck", "Browser vendors agreed to shorter TLS certificate lifetimes. TLS certificate automation becomes mandatory as maximum validity falls to ninety days."},
		{"Quantum Error Correction Milestone", "nature.com", "A research team demonstrated below-threshold quantum error correction. Quantum error correction overhead fell enough to run small logical circuits."},
		{"Local LLM Inference on CPUs", "ggml.ai", "Quantized models make local LLM inference viable on commodity CPUs. Local inference with four-bit quantization fits a capable model in sixteen gigabytes."},
		{"Vector Database Consolidation", "db-engines.com", "The vector database market is consolidating around a few engines. Vector similarity search is increasingly a feature of general-purpose databases rather than a product."},
		{"eBPF for Observability", "ebpf.io", "eBPF programs now back most new observability agents. eBPF kernel probes collect latency histograms without instrumenting applications."},
		{"Zig Reaches 0.14", "ziglang.org", "Zig 0.14 reworks the build system and async IO. Zig comptime guarantees stay intact while incremental compilation lands."},
		{"HTTP/3 Adoption Crosses Half", "cloudflare.com", "More than half of requests to large CDNs now use HTTP/3. HTTP/3 QUIC transport cuts tail latency on lossy mobile networks."},
		{"Open Source License Disputes", "opensource.org", "License changes at infrastructure vendors sparked forks. Open source license disputes pushed several projects to foundations this year."},
		{"ARM Server Market Share", "anandtech.com", "ARM server chips passed a fifth of new cloud deployments. ARM server market share grows fastest in compute-heavy batch workloads."},
		{"Container Image Signing", "sigstore.dev", "Keyless signing is becoming the default for container images. Container image signing with short-lived certificates removes long-term key management."},
		{"Time-Series Compression Advances", "vldb.org", "New delta-of-delta codecs compress metrics further. Time-series compression ratios above twenty to one are now routine for monitoring data."},
		{"Fuzzing Finds Codec Bugs", "oss-fuzz.com", "Continuous fuzzing uncovered parsing bugs in a popular media codec. Fuzzing coverage of format parsers keeps finding memory-safety issues."},
	}

	out := make([]NewsArticle, 0, len(topics))
	for i, t := range topics {
		out = append(out, NewsArticle{
			ID:     fmt.Sprintf("e2e-article-%03d", i+1),
			Title:  t.title,
			Body:   t.body,
			Source: t.source,
		})
	}
	return out
}

func buildQueryCases(articles []NewsArticle) []QueryCase {
	if len(articles) == 0 {
		return nil
	}
	phrases := []string{
		"kernel scheduler latency",
		"GPU supply chain",
		"PostgreSQL vacuum",
		"Rust async traits",
		"Kubernetes volume populators",
		"WebAssembly component model",
		"SQLite WAL",
		"RISC-V laptop",
		"TLS certificate automation",
		"quantum error correction",
		"local LLM inference",
		"vector similarity search",
		"eBPF kernel probes",
		"Zig comptime",
		"HTTP/3 QUIC",
		"open source license disputes",
		"ARM server market share",
		"container image signing",
		"time-series compression",
		"fuzzing coverage",
	}
	var cases []QueryCase
	used := make(map[string]bool)
	for _, p := range phrases {
		for _, a := range articles {
			if containsPhrase(a, p) && !used[a.ID] {
				cases = append(cases, QueryCase{
					Query:              p,
					ExpectedArticleIDs: []string{a.ID},
					Description:        fmt.Sprintf("query %q should return article %s", p, a.ID),
				})
				used[a.ID] = true
				break
			}
		}
	}
	return cases
}

func containsPhrase(a NewsArticle, phrase string) bool {
	return containsFold(a.Title, phrase) || containsFold(a.Body, phrase)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ToArticleInputs converts the corpus articles to models.ArticleInput for ingestion.
func (c *Corpus) ToArticleInputs() []*models.ArticleInput {
	out := make([]*models.ArticleInput, len(c.Articles))
	for i := range c.Articles {
		a := &c.Articles[i]
		out[i] = &models.ArticleInput{
			ID:     a.ID,
			Title:  a.Title,
			Body:   a.Body,
			Source: a.Source,
		}
	}
	return out
}
