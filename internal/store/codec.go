package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// encodeDetails serializes a detail payload to its TEXT column value.
// Nil details map to NULL.
func encodeDetails(d model.Details) (any, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	return string(raw), nil
}

func decodeDetails(raw sql.NullString) (model.Details, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	d := model.Details{}
	if err := json.Unmarshal([]byte(raw.String), &d); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return d, nil
}

func encodeHopChain(chain []string) (any, error) {
	if chain == nil {
		return nil, nil
	}
	raw, err := json.Marshal(chain)
	if err != nil {
		return nil, fmt.Errorf("marshal hop chain: %w", err)
	}
	return string(raw), nil
}

func decodeHopChain(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var chain []string
	if err := json.Unmarshal([]byte(raw.String), &chain); err != nil {
		return nil, fmt.Errorf("unmarshal hop chain: %w", err)
	}
	return chain, nil
}

func decodeAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return amount, nil
}

// scanFlowEvent reads one flow_events row in column order:
// id, txid, vout, block_height, block_time, from_address, from_type,
// from_details, to_address, to_type, to_details, flow_type, amount,
// classification_level, intermediary_wallet, hop_chain, analysis_timestamp,
// data_source.
func scanFlowEvent(scan func(dest ...any) error) (model.FlowEvent, error) {
	var (
		ev           model.FlowEvent
		fromDetails  sql.NullString
		toDetails    sql.NullString
		amount       string
		intermediary sql.NullString
		hopChain     sql.NullString
		analysisTS   sql.NullInt64
	)

	if err := scan(
		&ev.ID,
		&ev.TxID,
		&ev.Vout,
		&ev.BlockHeight,
		&ev.BlockTime,
		&ev.FromAddress,
		&ev.FromType,
		&fromDetails,
		&ev.ToAddress,
		&ev.ToType,
		&toDetails,
		&ev.FlowType,
		&amount,
		&ev.ClassificationLevel,
		&intermediary,
		&hopChain,
		&analysisTS,
		&ev.DataSource,
	); err != nil {
		return model.FlowEvent{}, err
	}

	var err error
	if ev.FromDetails, err = decodeDetails(fromDetails); err != nil {
		return model.FlowEvent{}, err
	}
	if ev.ToDetails, err = decodeDetails(toDetails); err != nil {
		return model.FlowEvent{}, err
	}
	if ev.HopChain, err = decodeHopChain(hopChain); err != nil {
		return model.FlowEvent{}, err
	}
	if ev.Amount, err = decodeAmount(amount); err != nil {
		return model.FlowEvent{}, err
	}
	if intermediary.Valid {
		v := intermediary.String
		ev.IntermediaryWallet = &v
	}
	if analysisTS.Valid {
		v := analysisTS.Int64
		ev.AnalysisTimestamp = &v
	}
	return ev, nil
}

const flowEventColumns = `id, txid, vout, block_height, block_time,
	from_address, from_type, from_details,
	to_address, to_type, to_details,
	flow_type, amount,
	classification_level, intermediary_wallet, hop_chain, analysis_timestamp, data_source`
