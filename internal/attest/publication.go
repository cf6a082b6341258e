package attest

import (
	"encoding/json"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

type publication struct {
	CertificateID   string        `json:"certificateId"`
	LockID          string        `json:"lockId"`
	Amount          amount.Amount `json:"amount"`
	MintedAmount    amount.Amount `json:"mintedAmount"`
	Beneficiary     string        `json:"beneficiary"`
	SettlementRef   string        `json:"settlementRef"`
	Stage3Signature string        `json:"stage3Signature"`
}

// PublicationDocument is the canonical JSON that the publication code
// addresses. The archive stores exactly these bytes.
func PublicationDocument(c *models.Certificate) ([]byte, error) {
	return json.Marshal(publication{
		CertificateID:   c.ID,
		LockID:          c.LockID,
		Amount:          c.Amount,
		MintedAmount:    c.MintedAmount,
		Beneficiary:     c.Beneficiary,
		SettlementRef:   c.SettlementRef,
		Stage3Signature: c.Stage3Signature,
	})
}

// PublicationCode returns the CIDv1 (raw, sha2-256) of the publication
// document.
func PublicationCode(c *models.Certificate) (string, error) {
	doc, err := PublicationDocument(c)
	if err != nil {
		return "", err
	}
	sum, err := multihash.Sum(doc, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
