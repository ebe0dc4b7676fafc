package model

// PaymentIntent is a recipient extracted from a scanned code.
type PaymentIntent struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount,omitempty"`
	Name      string `json:"name,omitempty"`
	// Token is set when the code names a token contract, as in EIP-681 transfers.
	Token string `json:"token,omitempty"`
	// Native is set when Amount is denominated in the chain's native coin.
	Native  bool   `json:"native,omitempty"`
	ChainID uint64 `json:"chain_id,omitempty"`
	Format  string `json:"format"`
}
