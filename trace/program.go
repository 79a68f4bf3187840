package trace

import (
	"github.com/gagliardetto/solana-go"
)

// ProgramId is the address of an invoked program exactly as the runtime
// printed it.
type ProgramId string

func (p ProgramId) String() string {
	return string(p)
}

// PublicKey decodes the address. Log lines produced by tests or foreign
// runtimes may carry ids that are not valid 32 byte keys.
func (p ProgramId) PublicKey() (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(string(p))
}

var knownPrograms = map[string]string{
	"11111111111111111111111111111111":             "system",
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA":  "spl_token",
	"TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb":  "spl_token_2022",
	"ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL": "spl_associated_token_account",
	"ComputeBudget111111111111111111111111111111":  "compute_budget",
	"MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr":  "spl_memo",
	"AddressLookupTab1e1111111111111111111111111":  "address_lookup_table",
}

// Name returns a short name for well-known native and SPL programs, or ""
// when the program is not one of them.
func (p ProgramId) Name() string {
	key, err := p.PublicKey()
	if err != nil {
		return ""
	}
	return knownPrograms[key.String()]
}
