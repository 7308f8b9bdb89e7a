//go:build onnx

package main

import (
	"fmt"
	"log"

	"github.com/meshpay/payops-agent/config"
	"github.com/meshpay/payops-agent/recall"
	"github.com/meshpay/payops-agent/recall/embedder/onnx"
)

// newEmbedder loads the local ONNX transformer model for incident embedding.
func newEmbedder(cfg *config.Config) (recall.Embedder, func(), error) {
	emb, err := onnx.New(onnx.Config{
		ModelPath:     cfg.OnnxModelPath,
		TokenizerPath: cfg.OnnxTokenizerPath,
		RuntimePath:   cfg.OnnxRuntimePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load onnx embedder: %w", err)
	}
	log.Printf("[MAIN] onnx embedder loaded from %s", cfg.OnnxModelPath)
	return emb, func() {
		if err := emb.Close(); err != nil {
			log.Printf("[MAIN] onnx embedder close: %v", err)
		}
	}, nil
}
