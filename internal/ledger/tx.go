package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/signer"
	"golang.org/x/crypto/sha3"
)

// Transaction is the signed envelope of a state-changing call.
type Transaction struct {
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Target    string          `json:"target"`
	Method    string          `json:"method"`
	Args      json.RawMessage `json:"args"`
	Signature string          `json:"signature,omitempty"`
}

func NewTransaction(from string, nonce uint64, target, method string, args any) (*Transaction, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s.%s args: %w", target, method, err)
	}
	return &Transaction{From: from, Nonce: nonce, Target: target, Method: method, Args: raw}, nil
}

// SigningHash is the keccak256 digest the sender signs.
func (t *Transaction) SigningHash() []byte {
	unsigned := *t
	unsigned.Signature = ""
	b, _ := json.Marshal(unsigned)
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}

// Hash identifies the signed transaction.
func (t *Transaction) Hash() string {
	h := sha3.NewLegacyKeccak256()
	h.Write(t.SigningHash())
	h.Write([]byte(t.Signature))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func (t *Transaction) Sign(s signer.Signer) error {
	if s.Address() != t.From {
		return fmt.Errorf("signer %s cannot sign for %s", s.Address(), t.From)
	}
	sig, err := s.Sign(t.SigningHash())
	if err != nil {
		return err
	}
	t.Signature = signer.EncodeSignature(sig)
	return nil
}

// Verify checks that the envelope was signed by From.
func (t *Transaction) Verify() error {
	sig, err := signer.DecodeSignature(t.Signature)
	if err != nil {
		return Reject(CodeBadSignature, "%v", err)
	}
	if !signer.Verify(t.From, t.SigningHash(), sig) {
		return Reject(CodeBadSignature, "transaction not signed by %s", t.From)
	}
	return nil
}
