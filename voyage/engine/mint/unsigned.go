package mint

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// unsignedTx is the payload the client signs and submits. The asset id
// binds the signature to the exact asset the server agreed to issue.
type unsignedTx struct {
	Wallet      string `json:"wallet"`
	AssetID     string `json:"asset_id"`
	MetadataURI string `json:"metadata_uri"`
	Collection  string `json:"collection"`
	IssuedAt    int64  `json:"issued_at"`
}

// EncodeUnsignedTx serializes the mint instruction for client signing.
// Deterministic for fixed inputs so cached replays stay byte-identical.
func EncodeUnsignedTx(wallet, assetID, metadataURI, collection string, issuedAt time.Time) string {
	payload, _ := json.Marshal(unsignedTx{
		Wallet:      wallet,
		AssetID:     assetID,
		MetadataURI: metadataURI,
		Collection:  collection,
		IssuedAt:    issuedAt.Unix(),
	})
	return base64.StdEncoding.EncodeToString(payload)
}
