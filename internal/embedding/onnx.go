//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/pkg/utils"
)

// ONNXEmbedder runs a local sentence-transformer model through ONNX Runtime.
// Requires CGO and the onnxruntime shared library.
//
// The session is loaded lazily on the first Embed or Available call; concurrent
// first calls are serialized by sync.Once so the model is never double-loaded.
// After loading, the session itself is guarded by a mutex because ONNX Runtime
// sessions with pre-bound tensors are not safe for concurrent Run.
type ONNXEmbedder struct {
	modelPath  string
	dimensions int
	maxTokens  int
	batchSize  int

	loadOnce sync.Once
	loadErr  error

	cache     *lruCache
	tokenizer tokenizer

	mu                  sync.Mutex
	session             *ort.AdvancedSession
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
}

// NewONNXEmbedder creates an ONNX embedder. The model is not loaded until the
// first Embed or Available call.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, batchSize, cacheSize int) *ONNXEmbedder {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &ONNXEmbedder{
		modelPath:  modelPath,
		dimensions: dimensions,
		maxTokens:  maxTokens,
		batchSize:  batchSize,
		cache:      newLRUCache(cacheSize),
		tokenizer:  &wordHashTokenizer{},
	}
}

// load builds the ONNX session and pre-allocated tensors. Called exactly once.
func (e *ONNXEmbedder) load() {
	e.loadOnce.Do(func() {
		if err := ort.InitializeEnvironment(); err != nil {
			e.loadErr = fmt.Errorf("%w: initialize ONNX runtime: %w", models.ErrModelUnavailable, err)
			return
		}
		inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.tokenize("", e.maxTokens)
		shape := ort.NewShape(1, int64(e.maxTokens))

		inputIDsTensor, err := ort.NewTensor(shape, inputIDs)
		if err != nil {
			e.loadErr = fmt.Errorf("%w: create input_ids tensor: %w", models.ErrModelUnavailable, err)
			return
		}
		attentionMaskTensor, err := ort.NewTensor(shape, attentionMask)
		if err != nil {
			inputIDsTensor.Destroy()
			e.loadErr = fmt.Errorf("%w: create attention_mask tensor: %w", models.ErrModelUnavailable, err)
			return
		}
		tokenTypeIDsTensor, err := ort.NewTensor(shape, tokenTypeIDs)
		if err != nil {
			inputIDsTensor.Destroy()
			attentionMaskTensor.Destroy()
			e.loadErr = fmt.Errorf("%w: create token_type_ids tensor: %w", models.ErrModelUnavailable, err)
			return
		}
		outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(e.dimensions)), make([]float32, e.dimensions))
		if err != nil {
			inputIDsTensor.Destroy()
			attentionMaskTensor.Destroy()
			tokenTypeIDsTensor.Destroy()
			e.loadErr = fmt.Errorf("%w: create output tensor: %w", models.ErrModelUnavailable, err)
			return
		}
		session, err := ort.NewAdvancedSession(
			e.modelPath,
			[]string{"input_ids", "attention_mask", "token_type_ids"},
			[]string{"output"},
			[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
			[]ort.ArbitraryTensor{outputTensor},
			nil,
		)
		if err != nil {
			inputIDsTensor.Destroy()
			attentionMaskTensor.Destroy()
			tokenTypeIDsTensor.Destroy()
			outputTensor.Destroy()
			e.loadErr = fmt.Errorf("%w: create ONNX session for %s: %w", models.ErrModelUnavailable, e.modelPath, err)
			return
		}
		e.session = session
		e.inputIDsTensor = inputIDsTensor
		e.attentionMaskTensor = attentionMaskTensor
		e.tokenTypeIDsTensor = tokenTypeIDsTensor
		e.outputTensor = outputTensor
	})
}

// Embed returns one normalized vector per text, order-preserving. Large inputs
// are processed in bounded sub-batches.
func (e *ONNXEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.load()
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return inBatches(ctx, texts, e.batchSize, func(ctx context.Context, batch []string) ([][]float32, error) {
		out := make([][]float32, len(batch))
		for i, text := range batch {
			if err := ctx.Err(); err != nil {
				return nil, models.ContextErr(err)
			}
			vec, err := e.embedOne(text)
			if err != nil {
				return nil, err
			}
			out[i] = vec
		}
		return out, nil
	})
}

func (e *ONNXEmbedder) embedOne(text string) ([]float32, error) {
	if cached, ok := e.cache.get(text); ok {
		return cached, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	vec := make([]float32, e.dimensions)
	copy(vec, e.outputTensor.GetData()[:e.dimensions])
	utils.NormalizeL2(vec)
	e.cache.put(text, vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// Available loads the model if needed and reports whether it is usable.
func (e *ONNXEmbedder) Available() bool {
	e.load()
	return e.loadErr == nil
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
