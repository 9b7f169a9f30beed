package updates

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/wavesplatform/operations-service/updates/updatespb"
)

// ArgEncodingRegime selects how binary/case_obj arguments and string
// arguments are encoded. Exactly one regime must be pinned per
// deployment; see SPEC_FULL.md §9.
type ArgEncodingRegime int

const (
	// RegimeBase58 encodes binary/case_obj as plain base58 and leaves
	// strings untouched.
	RegimeBase58 ArgEncodingRegime = iota
	// RegimeBase64Unicode encodes binary/case_obj as "base64:"-prefixed
	// standard base64 and repairs strings with fixUnicodeString.
	RegimeBase64Unicode
)

// ParseArgEncodingRegime parses the ARGUMENT_ENCODING_REGIME config value.
func ParseArgEncodingRegime(s string) (ArgEncodingRegime, error) {
	switch s {
	case "", "base58":
		return RegimeBase58, nil
	case "base64":
		return RegimeBase64Unicode, nil
	default:
		return 0, fmt.Errorf("unknown ARGUMENT_ENCODING_REGIME: %s", s)
	}
}

// Normalizer is a pure, deterministic, referentially transparent mapping
// from one upstream envelope to zero-or-one Event. It holds only the two
// pinned encoding choices; it carries no other mutable state.
type Normalizer struct {
	regime    ArgEncodingRegime
	tsEncode  TimestampEncoding
}

// NewNormalizer builds a Normalizer pinned to the given regimes.
func NewNormalizer(regime ArgEncodingRegime, tsEncode TimestampEncoding) *Normalizer {
	return &Normalizer{regime: regime, tsEncode: tsEncode}
}

// ErrUnparsableUpdate is returned when the envelope's update is neither
// Append nor Rollback, or an Append body is malformed.
var ErrUnparsableUpdate = errors.New("failed to parse blockchain update")

// Normalize converts one upstream envelope into an Event. It returns
// ErrUnparsableUpdate (wrapped with detail) for any structurally invalid
// envelope; normalize(envelope) applied twice to equal inputs returns
// equal results (it touches no shared, mutable state).
func (n *Normalizer) Normalize(src *updatespb.BlockchainUpdated) (Event, error) {
	height := uint32(src.Height)

	switch {
	case src.Update.Append != nil:
		return n.normalizeAppend(src.ID, height, src.Update.Append)
	case src.Update.Rollback != nil:
		return &Rollback{BlockIDValue: base58.Encode(src.ID)}, nil
	default:
		return nil, ErrUnparsableUpdate
	}
}

func (n *Normalizer) normalizeAppend(envelopeID []byte, height uint32, append_ *updatespb.Append) (Event, error) {
	body := append_.Body

	isMicroblock, id, timestamp, txs, err := extractBody(envelopeID, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparsableUpdate, err)
	}

	if len(append_.TransactionIDs) != len(txs) || len(txs) != len(append_.TransactionsMetadata) {
		panic("internal error: transaction_ids, transactions and transactions_metadata have unequal length")
	}

	transactions, err := n.convertTransactions(append_.TransactionIDs, txs, append_.TransactionsMetadata, height)
	if err != nil {
		return nil, err
	}

	var tsPtr *uint64
	if timestamp != nil {
		v := *timestamp
		tsPtr = &v
	}

	return &Append{
		BlockIDValue: base58.Encode(id),
		Height:       height,
		Timestamp:    tsPtr,
		IsMicroblock: isMicroblock,
		Transactions: transactions,
	}, nil
}

func extractBody(envelopeID []byte, body updatespb.Body) (isMicroblock bool, id []byte, timestamp *uint64, txs []updatespb.SignedTransaction, err error) {
	switch {
	case body.Block != nil && body.Block.Block != nil:
		b := body.Block.Block
		id = envelopeID
		if b.Header != nil {
			ts := uint64(b.Header.Timestamp)
			timestamp = &ts
		}
		return false, id, timestamp, b.Transactions, nil
	case body.MicroBlock != nil && body.MicroBlock.MicroBlock != nil:
		mb := body.MicroBlock.MicroBlock
		if mb.MicroBlock == nil {
			return false, nil, nil, nil, errors.New("microblock body is nil")
		}
		return true, mb.TotalBlockID, nil, mb.MicroBlock.Transactions, nil
	default:
		return false, nil, nil, nil, errors.New("append body is neither Block nor MicroBlock")
	}
}

func (n *Normalizer) convertTransactions(ids [][]byte, txs []updatespb.SignedTransaction, metas []updatespb.TransactionMetadata, height uint32) ([]Transaction, error) {
	result := make([]Transaction, 0, len(txs))
	for i := range txs {
		tx, skip, err := n.convertTx(ids[i], &txs[i], &metas[i], height)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		result = append(result, tx)
	}
	return result, nil
}

func (n *Normalizer) convertTx(id []byte, tx *updatespb.SignedTransaction, meta *updatespb.TransactionMetadata, height uint32) (Transaction, bool, error) {
	opType, txType, ok := extractOpAndTxType(meta)
	if !ok {
		return Transaction{}, true, nil
	}

	data, err := extractTransactionData(tx, meta)
	if err != nil {
		return Transaction{}, false, err
	}
	invoke, err := extractInvokeScriptData(tx, meta)
	if err != nil {
		return Transaction{}, false, err
	}

	payment, err := invoke.payments()
	if err != nil {
		return Transaction{}, false, err
	}
	call := n.convertCall(invoke.functionName(), invoke.arguments())

	proofs := make([]string, len(tx.Proofs))
	for i, p := range tx.Proofs {
		proofs[i] = base58.Encode(p)
	}

	return Transaction{
		ID:              base58.Encode(id),
		OpType:          opType,
		TxType:          txType,
		Height:          height,
		Timestamp:       Timestamp{Millis: data.timestamp(), Encoding: n.tsEncode},
		Fee:             data.fee(),
		Sender:          base58.Encode(meta.SenderAddress),
		SenderPublicKey: base58.Encode(data.senderPublicKey()),
		Proofs:          proofs,
		Dapp:            base58.Encode(invoke.dappAddress()),
		Payment:         payment,
		Call:            call,
	}, false, nil
}

func extractOpAndTxType(meta *updatespb.TransactionMetadata) (OperationType, TransactionType, bool) {
	switch {
	case meta.Metadata.InvokeScript != nil:
		return OpTypeInvokeScript, TxTypeInvokeScript, true
	case meta.Metadata.Ethereum != nil && meta.Metadata.Ethereum.Action.Invoke != nil:
		return OpTypeInvokeScript, TxTypeEthereumTransaction, true
	default:
		return "", 0, false
	}
}

// transactionData is the polymorphic (fee, timestamp, sender public key)
// projection over the two transaction flavors. A sum type with
// pattern-matched accessors — no open dispatch needed for two variants.
type transactionData struct {
	waves *updatespb.WavesTransaction
	eth   *updatespb.EthereumMetadata
}

func extractTransactionData(tx *updatespb.SignedTransaction, meta *updatespb.TransactionMetadata) (transactionData, error) {
	switch {
	case tx.Waves != nil:
		return transactionData{waves: tx.Waves}, nil
	case tx.Ethereum != nil && meta.Metadata.Ethereum != nil:
		return transactionData{eth: meta.Metadata.Ethereum}, nil
	default:
		return transactionData{}, fmt.Errorf("%w: unexpected transaction contents", ErrUnparsableUpdate)
	}
}

func (d transactionData) fee() Amount {
	if d.waves != nil {
		return convertAmount(d.waves.Fee)
	}
	return NewAmount(d.eth.Fee, "")
}

func (d transactionData) senderPublicKey() []byte {
	if d.waves != nil {
		return d.waves.SenderPublicKey
	}
	return d.eth.SenderPublicKey
}

func (d transactionData) timestamp() uint64 {
	if d.waves != nil {
		return uint64(d.waves.Timestamp)
	}
	return uint64(d.eth.Timestamp)
}

type invokeScriptData struct {
	wavesData *updatespb.InvokeScriptTransactionData
	meta      *updatespb.InvokeScriptMetadata
}

func extractInvokeScriptData(tx *updatespb.SignedTransaction, meta *updatespb.TransactionMetadata) (invokeScriptData, error) {
	var wavesData *updatespb.InvokeScriptTransactionData
	switch {
	case tx.Waves != nil:
		if tx.Waves.Data == nil || tx.Waves.Data.InvokeScript == nil {
			return invokeScriptData{}, fmt.Errorf("%w: unexpected InvokeScript transaction contents", ErrUnparsableUpdate)
		}
		wavesData = tx.Waves.Data.InvokeScript
	case tx.Ethereum != nil:
		// No inner tx body for foreign transactions; all fields below
		// come from metadata.
	default:
		return invokeScriptData{}, fmt.Errorf("%w: unexpected transaction contents", ErrUnparsableUpdate)
	}

	var metaRef *updatespb.InvokeScriptMetadata
	switch {
	case meta.Metadata.InvokeScript != nil:
		metaRef = meta.Metadata.InvokeScript
	case meta.Metadata.Ethereum != nil && meta.Metadata.Ethereum.Action.Invoke != nil:
		metaRef = meta.Metadata.Ethereum.Action.Invoke
	default:
		return invokeScriptData{}, fmt.Errorf("%w: unexpected InvokeScript metadata contents", ErrUnparsableUpdate)
	}

	return invokeScriptData{wavesData: wavesData, meta: metaRef}, nil
}

func (d invokeScriptData) dappAddress() []byte { return d.meta.DAppAddress }
func (d invokeScriptData) functionName() string { return d.meta.FunctionName }
func (d invokeScriptData) arguments() []updatespb.Argument { return d.meta.Arguments }

func (d invokeScriptData) payments() ([]Amount, error) {
	source := d.meta.Payments
	if d.wavesData != nil {
		if !amountsEqual(d.wavesData.Payments, d.meta.Payments) {
			panic("internal error: invoke script payments in tx body and metadata diverge")
		}
		source = d.wavesData.Payments
	}
	out := make([]Amount, len(source))
	for i, a := range source {
		out[i] = convertAmount(&a)
	}
	return out, nil
}

func amountsEqual(a, b []updatespb.Amount) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Amount != b[i].Amount || string(a[i].AssetID) != string(b[i].AssetID) {
			return false
		}
	}
	return true
}

func convertAmount(a *updatespb.Amount) Amount {
	if a == nil {
		return NewAmount(0, "")
	}
	if len(a.AssetID) == 0 {
		return NewAmount(a.Amount, "")
	}
	return NewAmount(a.Amount, base58.Encode(a.AssetID))
}

func (n *Normalizer) convertCall(function string, args []updatespb.Argument) Call {
	return Call{Function: function, Args: n.convertArgs(args)}
}

func (n *Normalizer) convertArgs(args []updatespb.Argument) []Arg {
	out := make([]Arg, len(args))
	for i, a := range args {
		out[i] = n.convertArg(a)
	}
	return out
}

func (n *Normalizer) convertArg(a updatespb.Argument) Arg {
	switch {
	case a.Integer != nil:
		return IntegerArg(*a.Integer)
	case a.Binary != nil:
		return BinaryArg(n.encodeBinary(a.Binary))
	case a.String != nil:
		return StringArg(n.encodeString(*a.String))
	case a.Boolean != nil:
		return BooleanArg(*a.Boolean)
	case a.CaseObj != nil:
		return CaseObjArg(n.encodeBinary(a.CaseObj))
	default:
		return ListArg(n.convertArgs(a.List))
	}
}

func (n *Normalizer) encodeBinary(b []byte) string {
	if n.regime == RegimeBase64Unicode {
		return "base64:" + base64.StdEncoding.EncodeToString(b)
	}
	return base58.Encode(b)
}

func (n *Normalizer) encodeString(s string) string {
	if n.regime == RegimeBase64Unicode {
		return fixUnicodeString(s)
	}
	return s
}
