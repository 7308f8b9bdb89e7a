//go:build !onnx

package main

import (
	"github.com/meshpay/payops-agent/config"
	"github.com/meshpay/payops-agent/recall"
	"github.com/meshpay/payops-agent/recall/embedder/mock"
)

// newEmbedder returns the deterministic hash embedder. Build with -tags onnx
// to embed incidents with a local transformer model instead.
func newEmbedder(_ *config.Config) (recall.Embedder, func(), error) {
	return mock.New(), func() {}, nil
}
