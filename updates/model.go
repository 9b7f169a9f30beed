// Package updates holds the pipeline-internal Event/Transaction model and
// the pure Normalize function that turns one upstream envelope into zero
// or one Event.
package updates

import (
	"encoding/json"
	"time"
)

// Event is the pipeline-internal sum type produced by Normalize: either an
// Append or a Rollback. Implemented as an interface with two concrete
// types rather than a tagged struct, the same shape go-ethereum uses for
// its transaction-envelope sum type (core/types.TxData).
type Event interface {
	// BlockID returns the id this event targets: the appended block's id,
	// or the block id a rollback reverts to.
	BlockID() string
	event()
}

// Append extends the chain by one block or microblock.
type Append struct {
	BlockIDValue string
	Height       uint32
	Timestamp    *uint64 // nil for a microblock that hasn't inherited one yet
	IsMicroblock bool
	Transactions []Transaction
}

func (a *Append) BlockID() string { return a.BlockIDValue }
func (*Append) event()            {}

// Rollback instructs the consumer to revert to the state as of a
// previously seen block id.
type Rollback struct {
	BlockIDValue string
}

func (r *Rollback) BlockID() string { return r.BlockIDValue }
func (*Rollback) event()            {}

// TransactionType is the upstream transaction-type discriminator.
type TransactionType uint8

const (
	TxTypeInvokeScript        TransactionType = 16
	TxTypeEthereumTransaction TransactionType = 18
)

// OperationType is the op_type this pipeline records. Only one value
// exists today; the persisted schema's enum is extensible.
type OperationType string

const OpTypeInvokeScript OperationType = "invoke_script"

// WavesAssetID is the literal asset id substituted when the upstream
// amount carries no asset (the chain's native asset).
const WavesAssetID = "WAVES"

// Amount is a (quantity, asset) pair. AssetID defaults to WavesAssetID
// when the upstream field is empty.
type Amount struct {
	AmountValue int64  `json:"amount"`
	AssetID     string `json:"id"`
}

// NewAmount builds an Amount, substituting WavesAssetID for an empty id.
func NewAmount(amount int64, assetID string) Amount {
	if assetID == "" {
		assetID = WavesAssetID
	}
	return Amount{AmountValue: amount, AssetID: assetID}
}

// Call is the invoked function name plus its arguments.
type Call struct {
	Function string `json:"function"`
	Args     []Arg  `json:"args"`
}

// TimestampEncoding selects how Transaction.Timestamp is rendered to
// JSON; see SPEC_FULL.md §9 (Open Questions: two divergent timestamp
// encodings exist upstream, pin one per deployment).
type TimestampEncoding int

const (
	TimestampUnixMillis TimestampEncoding = iota
	TimestampRFC3339
)

// ParseTimestampEncoding parses the TIMESTAMP_ENCODING config value.
func ParseTimestampEncoding(s string) (TimestampEncoding, error) {
	switch s {
	case "", "unix_millis":
		return TimestampUnixMillis, nil
	case "rfc3339":
		return TimestampRFC3339, nil
	default:
		return 0, errUnknownTimestampEncoding(s)
	}
}

type errUnknownTimestampEncoding string

func (e errUnknownTimestampEncoding) Error() string {
	return "unknown TIMESTAMP_ENCODING: " + string(e)
}

// Timestamp carries a transaction timestamp (milliseconds since epoch)
// together with the encoding to use when it is marshaled to JSON for
// persistence.
type Timestamp struct {
	Millis   uint64
	Encoding TimestampEncoding
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch t.Encoding {
	case TimestampRFC3339:
		s := time.UnixMilli(int64(t.Millis)).UTC().Format("2006-01-02T15:04:05.000Z07:00")
		return json.Marshal(s)
	default:
		return json.Marshal(t.Millis)
	}
}

// Transaction is a normalized script-invocation transaction, the only
// class of transaction this system records. JSON field names match the
// upstream operations-service's historical wire shape exactly (op_type
// renders as "type", tx_type as "origin_transaction_type") so existing
// consumers of the persisted `operation` column keep working unchanged.
type Transaction struct {
	ID              string          `json:"id"`
	OpType          OperationType   `json:"type"`
	TxType          TransactionType `json:"origin_transaction_type"`
	Height          uint32          `json:"height"`
	Timestamp       Timestamp       `json:"timestamp"`
	Fee             Amount          `json:"fee"`
	Sender          string          `json:"sender"`
	SenderPublicKey string          `json:"sender_public_key"`
	Proofs          []string        `json:"proofs"`
	Dapp            string          `json:"dapp"`
	Payment         []Amount        `json:"payment"`
	Call            Call            `json:"call"`
}
