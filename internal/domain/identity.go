package domain

// Identity is the wallet identity active on this device. The in-memory
// copy owned by the wallet service is authoritative while the process
// runs; the persisted mirror is authoritative at startup.
type Identity struct {
	Address    string
	Credential string
	Connected  bool
}

// TransactionReceipt is the ledger's acknowledgement of a submitted
// transfer.
type TransactionReceipt struct {
	TxID    string
	Message string
}

// ChainInfo is a summary of the ledger chain state.
type ChainInfo struct {
	Length int
}
