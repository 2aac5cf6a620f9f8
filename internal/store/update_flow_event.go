package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// ClassificationPatch is a partial update of a flow event's enhancement
// columns. Nil fields are left untouched. SetHopChain/SetIntermediary must be
// set to write (or clear) the corresponding nullable columns.
type ClassificationPatch struct {
	ClassificationLevel *int

	SetIntermediary    bool
	IntermediaryWallet *string

	SetHopChain bool
	HopChain    []string

	AnalysisTimestamp *int64
	DataSource        *model.DataSource

	FromType    *model.AddressType
	FromDetails model.Details
	ToType      *model.AddressType
	ToDetails   model.Details
}

// UpdateFlowEventClassification applies a partial update to one flow event.
// Applying the same patch twice leaves the row unchanged.
func (s *Store) UpdateFlowEventClassification(ctx context.Context, id int64, patch ClassificationPatch) error {
	start := time.Now()
	var err error
	defer func() {
		s.observe("update_flow_event_classification", err, start)
	}()

	var (
		sets []string
		args []any
	)

	if patch.ClassificationLevel != nil {
		sets = append(sets, "classification_level = ?")
		args = append(args, *patch.ClassificationLevel)
	}
	if patch.SetIntermediary {
		sets = append(sets, "intermediary_wallet = ?")
		if patch.IntermediaryWallet != nil {
			args = append(args, *patch.IntermediaryWallet)
		} else {
			args = append(args, nil)
		}
	}
	if patch.SetHopChain {
		encoded, encErr := encodeHopChain(patch.HopChain)
		if encErr != nil {
			err = encErr
			return err
		}
		sets = append(sets, "hop_chain = ?")
		args = append(args, encoded)
	}
	if patch.AnalysisTimestamp != nil {
		sets = append(sets, "analysis_timestamp = ?")
		args = append(args, *patch.AnalysisTimestamp)
	}
	if patch.DataSource != nil {
		sets = append(sets, "data_source = ?")
		args = append(args, string(*patch.DataSource))
	}
	if patch.FromType != nil {
		sets = append(sets, "from_type = ?")
		args = append(args, string(*patch.FromType))
	}
	if patch.FromDetails != nil {
		encoded, encErr := encodeDetails(patch.FromDetails)
		if encErr != nil {
			err = encErr
			return err
		}
		sets = append(sets, "from_details = ?")
		args = append(args, encoded)
	}
	if patch.ToType != nil {
		sets = append(sets, "to_type = ?")
		args = append(args, string(*patch.ToType))
	}
	if patch.ToDetails != nil {
		encoded, encErr := encodeDetails(patch.ToDetails)
		if encErr != nil {
			err = encErr
			return err
		}
		sets = append(sets, "to_details = ?")
		args = append(args, encoded)
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE flow_events SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update flow event %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for flow event %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("flow event %d not found", id)
	}
	return nil
}

// GetFlowEventByID returns one flow event.
func (s *Store) GetFlowEventByID(ctx context.Context, id int64) (*model.FlowEvent, error) {
	start := time.Now()
	var err error
	defer func() {
		s.observe("get_flow_event_by_id", err, start)
	}()

	query := `SELECT ` + flowEventColumns + ` FROM flow_events WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)
	ev, err := scanFlowEvent(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get flow event %d: %w", id, err)
	}
	return &ev, nil
}
