// Package classify maps addresses onto the known exchange, foundation, and
// node operator sets.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fluxsignal/exchange-flow-backend/internal/model"
)

// ExchangeEntry is one row of the static exchange list.
type ExchangeEntry struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Logo    string `json:"logo"`
}

// FoundationEntry is one row of the static foundation list.
type FoundationEntry struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// AddressBook is the static configuration file: exchange and foundation
// addresses, loaded once at startup and immutable afterwards.
type AddressBook struct {
	Exchanges  []ExchangeEntry   `json:"exchanges"`
	Foundation []FoundationEntry `json:"foundation"`
}

// LoadAddressBook reads the static address list from path.
func LoadAddressBook(path string) (*AddressBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address book %s: %w", path, err)
	}
	book := &AddressBook{}
	if err := json.Unmarshal(raw, book); err != nil {
		return nil, fmt.Errorf("parse address book %s: %w", path, err)
	}
	return book, nil
}

// operatorSnapshot is the immutable result of one registry refresh. The whole
// snapshot is swapped atomically so readers never observe a partial set.
type operatorSnapshot struct {
	byAddress map[string]model.NodeOperator
	fetchedAt time.Time
}

// Metrics records registry refresh outcomes.
type Metrics interface {
	ObserveRefresh(err error, operators int, started time.Time)
}

// Classifier answers constant-time address classification queries.
type Classifier struct {
	logger      *zap.Logger
	httpClient  *http.Client
	registryURL string
	metrics     Metrics

	exchanges  map[string]ExchangeEntry
	foundation map[string]string

	operators atomic.Pointer[operatorSnapshot]
}

// New builds a Classifier from the static address book. The node operator set
// starts empty until the first refresh.
func New(book *AddressBook, registryURL string, httpClient *http.Client, metrics Metrics, logger *zap.Logger) *Classifier {
	exchanges := make(map[string]ExchangeEntry, len(book.Exchanges))
	for _, e := range book.Exchanges {
		exchanges[e.Address] = e
	}
	foundation := make(map[string]string, len(book.Foundation))
	for _, f := range book.Foundation {
		foundation[f.Address] = f.Name
	}

	c := &Classifier{
		logger:      logger.Named("classifier"),
		httpClient:  httpClient,
		registryURL: registryURL,
		metrics:     metrics,
		exchanges:   exchanges,
		foundation:  foundation,
	}
	c.operators.Store(&operatorSnapshot{byAddress: map[string]model.NodeOperator{}})
	return c
}

// Classify evaluates exchange, foundation, node operator, unknown — in that
// order.
func (c *Classifier) Classify(addr string) model.Classification {
	if e, ok := c.exchanges[addr]; ok {
		return model.Classification{
			Type:    model.AddressExchange,
			Details: model.ExchangeDetails(e.Name, e.Logo),
		}
	}
	if name, ok := c.foundation[addr]; ok {
		return model.Classification{
			Type:    model.AddressFoundation,
			Details: model.FoundationDetails(name),
		}
	}
	if op, ok := c.IsNodeOperator(addr); ok {
		return model.Classification{
			Type:    model.AddressNodeOperator,
			Details: model.NodeOperatorDetails(op),
		}
	}
	return model.Classification{Type: model.AddressUnknown}
}

// IsNodeOperator reports whether addr is in the current operator snapshot.
func (c *Classifier) IsNodeOperator(addr string) (model.NodeOperator, bool) {
	snap := c.operators.Load()
	op, ok := snap.byAddress[addr]
	return op, ok
}

// SnapshotAge returns the time since the operator set was last replaced.
// A never-refreshed classifier reports a very large age.
func (c *Classifier) SnapshotAge() time.Duration {
	snap := c.operators.Load()
	if snap.fetchedAt.IsZero() {
		return time.Duration(1<<62 - 1)
	}
	return time.Since(snap.fetchedAt)
}

// OperatorCount returns the size of the current operator snapshot.
func (c *Classifier) OperatorCount() int {
	return len(c.operators.Load().byAddress)
}

// RefreshNodeOperators replaces the operator snapshot from the registry
// endpoint. Fail-open: on any error the previous snapshot stays in place and
// the error is returned for logging only.
func (c *Classifier) RefreshNodeOperators(ctx context.Context) (err error) {
	started := time.Now()
	operators := 0
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveRefresh(err, operators, started)
		}
	}()

	records, err := c.fetchRegistry(ctx)
	if err != nil {
		c.logger.Warn("node registry refresh failed; keeping previous snapshot", zap.Error(err))
		return err
	}

	byAddress := groupByPaymentAddress(records)
	operators = len(byAddress)
	c.operators.Store(&operatorSnapshot{byAddress: byAddress, fetchedAt: time.Now()})
	c.logger.Info("node operator snapshot replaced",
		zap.Int("records", len(records)),
		zap.Int("operators", operators),
	)
	return nil
}
