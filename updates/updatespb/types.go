// Package updatespb holds the wire-level shapes of the upstream
// blockchain-updates stream, mirrored from the `waves.events` /
// `waves.events.grpc` protobuf schema. No .proto source accompanied this
// spec's retrieval pack, so these are hand-maintained structs rather than
// protoc-gen-go output; field names and nesting match the upstream schema
// closely enough for updates.Normalize to type-switch on, which is the
// only thing that consumes this package.
package updatespb

// SubscribeRequest is the request message for the Subscribe streaming RPC.
// ToHeight is always left at zero (no upper bound) by this client.
type SubscribeRequest struct {
	FromHeight int32
	ToHeight   int32
}

// SubscribeEvent wraps one BlockchainUpdated envelope off the wire.
type SubscribeEvent struct {
	Update *BlockchainUpdated
}

// BlockchainUpdated is the envelope carried by every streamed event.
type BlockchainUpdated struct {
	ID     []byte
	Height int32
	Update Update
}

// Update is the Append/Rollback oneof. Exactly one field is set.
type Update struct {
	Append   *Append
	Rollback *RollbackUpdate
}

// RollbackUpdate carries no fields of its own; the target block id is
// read off the enclosing BlockchainUpdated.ID.
type RollbackUpdate struct{}

// Append carries the transaction_ids/metadata lists plus the block or
// microblock body. The transactions parallel to those lists are the ones
// inside the body (Block.Transactions or MicroBlockInner.Transactions);
// updates.Normalize does not read the Transactions field of Append.
type Append struct {
	Body                 Body
	TransactionIDs       [][]byte
	Transactions         []SignedTransaction
	TransactionsMetadata []TransactionMetadata
}

// Body is the Block/MicroBlock oneof of an Append.
type Body struct {
	Block      *BlockBody
	MicroBlock *MicroBlockBody
}

type BlockBody struct {
	Block *Block
}

type Block struct {
	Header       *BlockHeader
	Transactions []SignedTransaction
}

type BlockHeader struct {
	Timestamp int64
}

type MicroBlockBody struct {
	MicroBlock *SignedMicroBlock
}

type SignedMicroBlock struct {
	TotalBlockID []byte
	MicroBlock   *MicroBlockInner
}

type MicroBlockInner struct {
	Transactions []SignedTransaction
}

// SignedTransaction carries either a native Waves transaction or a bare
// marker for a foreign/ethereum transaction (whose actual payload lives
// entirely in the paired TransactionMetadata.Ethereum).
type SignedTransaction struct {
	Proofs   [][]byte
	Waves    *WavesTransaction
	Ethereum *EthereumTransactionMarker
}

type EthereumTransactionMarker struct{}

// WavesTransaction is the native transaction envelope. Data is non-nil
// only for transaction kinds this pipeline cares about (invoke script);
// other kinds are represented with Data == nil and are skipped upstream
// of this struct by op_type dispatch.
type WavesTransaction struct {
	Fee             *Amount
	Timestamp       int64
	SenderPublicKey []byte
	Data            *TransactionData
}

type TransactionData struct {
	InvokeScript *InvokeScriptTransactionData
}

type InvokeScriptTransactionData struct {
	Payments []Amount
}

type Amount struct {
	Amount  int64
	AssetID []byte
}

// TransactionMetadata is the per-transaction metadata the upstream sends
// alongside the raw transaction body.
type TransactionMetadata struct {
	SenderAddress []byte
	Metadata      Metadata
}

// Metadata is the InvokeScript/Ethereum oneof.
type Metadata struct {
	InvokeScript *InvokeScriptMetadata
	Ethereum     *EthereumMetadata
}

type InvokeScriptMetadata struct {
	DAppAddress  []byte
	Payments     []Amount
	FunctionName string
	Arguments    []Argument
}

type EthereumMetadata struct {
	SenderPublicKey []byte
	Fee             int64
	Timestamp       int64
	Action          EthereumAction
}

// EthereumAction is the Ethereum metadata's action oneof; only Invoke is
// relevant to this pipeline, other action kinds leave Invoke nil.
type EthereumAction struct {
	Invoke *InvokeScriptMetadata
}

// Argument is one element of an InvokeScriptMetadata's argument list.
// Exactly one field is set; List is recursive.
type Argument struct {
	Integer *int64
	Binary  []byte
	String  *string
	Boolean *bool
	CaseObj []byte
	List    []Argument
}
