package token

import (
	"bytes"
	"fmt"

	"fscope/internal/fscope"
)

// testHeader is prepended to payloads by TestSealer so sealed tokens are
// distinguishable from arbitrary bytes while staying deterministic.
var testHeader = []byte("FSTOK\x00\x00\x00")

// TestSealer is a simple, deterministic sealer for testing. It prepends a
// fixed 8-byte header when sealing and requires it when opening. It provides
// no secrecy.
type TestSealer struct{}

var _ fscope.TokenSealer = (*TestSealer)(nil)

// NewTestSealer creates a new TestSealer.
func NewTestSealer() *TestSealer {
	return &TestSealer{}
}

func (*TestSealer) Seal(plaintext []byte) ([]byte, error) {
	return append(append([]byte{}, testHeader...), plaintext...), nil
}

func (*TestSealer) Open(sealed []byte) ([]byte, error) {
	if !bytes.HasPrefix(sealed, testHeader) {
		return nil, fmt.Errorf("invalid test token header")
	}
	return bytes.Clone(sealed[len(testHeader):]), nil
}
