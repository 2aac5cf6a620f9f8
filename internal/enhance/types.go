package enhance

import (
	"context"
	"time"

	"github.com/fluxsignal/exchange-flow-backend/internal/indexer"
	"github.com/fluxsignal/exchange-flow-backend/internal/model"
	"github.com/fluxsignal/exchange-flow-backend/internal/store"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=enhance

type (
	// Store is the persistence surface the engine reads unknowns from and
	// writes classifications back to.
	Store interface {
		GetUnknownWallets(ctx context.Context, retryAfter time.Duration) (*store.UnknownWallets, error)
		UpdateFlowEventClassification(ctx context.Context, id int64, patch store.ClassificationPatch) error
	}

	// Chain is the upstream capability subset the engine traverses with.
	Chain interface {
		GetTransaction(ctx context.Context, txid string) (*indexer.Tx, error)
		GetAddressTransactions(ctx context.Context, addr string) ([]indexer.AddressTx, error)
	}

	// Classifier answers operator lookups and owns the registry snapshot.
	Classifier interface {
		IsNodeOperator(addr string) (model.NodeOperator, bool)
		SnapshotAge() time.Duration
		RefreshNodeOperators(ctx context.Context) error
	}

	// Metrics records engine outcomes.
	Metrics interface {
		ObserveRun(err error, started time.Time)
		ObserveEvent(outcome string)
		ObserveHit(level int)
		ObserveCircular()
	}
)

// Detection methods written into enhanced detail payloads.
const (
	methodCurrentAPI           = "current_api"
	methodHistoricalCoinbase   = "historical_coinbase"
	methodHistoricalConnection = "historical_connection"
)

// Operator status values written into enhanced detail payloads.
const (
	statusActive     = "active"
	statusHistorical = "historical"
)

// Event outcomes for metrics.
const (
	outcomeEnhanced = "enhanced"
	outcomeMiss     = "miss"
	outcomeError    = "error"
)

// refreshAfter is the classifier snapshot staleness that triggers a registry
// refresh at the start of a run.
const refreshAfter = 10 * time.Minute

// task pairs one unknown flow event with its traversal direction: buys look
// forward along money leaving the unknown buyer; sells look backward along
// money that reached the unknown seller.
type task struct {
	event     model.FlowEvent
	wallet    string
	direction indexer.Direction
}

// RunReport summarizes one enhancement run.
type RunReport struct {
	Analyzed int           `json:"analyzed"`
	Enhanced int           `json:"enhanced"`
	Missed   int           `json:"missed"`
	Errors   int           `json:"errors"`
	Took     time.Duration `json:"took"`
}

// Counters are engine-lifetime totals.
type Counters struct {
	Runs               int64 `json:"runs"`
	EventsEnhanced     int64 `json:"events_enhanced"`
	EventsMissed       int64 `json:"events_missed"`
	CircularDetections int64 `json:"circular_detections"`
}
